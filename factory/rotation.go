/*
Package factory converts external rotation and roster definitions into
planning entities.

PURPOSE:
  Rotations are usually named by their shape ("7x7", "14x7", "21x7").
  The factory accepts either that shorthand or explicit JSON, validates
  the cycle, and produces a planning.RotationSpec. fixtures.go does the
  same for whole YAML rosters used by `calendario seed` and the demo
  scenarios.

JSON SCHEMA:
  {
    "id": 2,
    "name": "14x7",
    "work_days": 14,
    "rest_days": 7,
    "active": true
  }

  work_days/rest_days may be omitted when name is a shorthand.

USAGE:
  f := factory.NewRotationFactory()
  spec, err := f.ParseRotation(`{"id": 1, "name": "7x7"}`)

SEE ALSO:
  - planning/rotation.go: Cycle validation
  - fixtures.go: YAML rosters
*/
package factory

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/GDiazF/calendario/planning"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RotationJSON is the JSON representation of a rotation.
type RotationJSON struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	WorkDays int    `json:"work_days,omitempty" yaml:"work_days"`
	RestDays int    `json:"rest_days,omitempty" yaml:"rest_days"`
	Active   *bool  `json:"active,omitempty" yaml:"active"` // default true
}

// =============================================================================
// ROTATION FACTORY
// =============================================================================

// RotationFactory converts rotation definitions to planning.RotationSpec.
type RotationFactory struct{}

func NewRotationFactory() *RotationFactory {
	return &RotationFactory{}
}

// ParseRotation parses a JSON string into a RotationSpec.
func (f *RotationFactory) ParseRotation(jsonStr string) (*planning.RotationSpec, error) {
	var rj RotationJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse rotation JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON fills missing day counts from the name and validates the cycle.
func (f *RotationFactory) FromJSON(rj RotationJSON) (*planning.RotationSpec, error) {
	spec := &planning.RotationSpec{
		ID:       planning.RotationID(rj.ID),
		Name:     rj.Name,
		WorkDays: rj.WorkDays,
		RestDays: rj.RestDays,
		Active:   rj.Active == nil || *rj.Active,
	}

	if spec.WorkDays == 0 && spec.RestDays == 0 {
		work, rest, err := ParseRotationName(rj.Name)
		if err != nil {
			return nil, err
		}
		spec.WorkDays, spec.RestDays = work, rest
	}

	if _, err := spec.Cycle(); err != nil {
		return nil, err
	}
	if spec.Name == "" {
		spec.Name = spec.Label()
	}
	return spec, nil
}

// ToJSON is the inverse of FromJSON.
func ToJSON(spec planning.RotationSpec) RotationJSON {
	active := spec.Active
	return RotationJSON{
		ID:       int64(spec.ID),
		Name:     spec.Label(),
		WorkDays: spec.WorkDays,
		RestDays: spec.RestDays,
		Active:   &active,
	}
}

var shorthand = regexp.MustCompile(`^\s*(\d+)\s*[xX]\s*(\d+)\s*$`)

// ParseRotationName reads "NxM" shorthand: N work days, M rest days.
func ParseRotationName(name string) (workDays, restDays int, err error) {
	m := shorthand.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q is not NxM", planning.ErrInvalidCycle, name)
	}
	workDays, _ = strconv.Atoi(m[1])
	restDays, _ = strconv.Atoi(m[2])
	if _, err := planning.NewRotationCycle(workDays, restDays); err != nil {
		return 0, 0, err
	}
	return workDays, restDays, nil
}

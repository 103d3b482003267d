/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built rosters that populate the database with realistic
	data for demos. Each scenario is a YAML roster embedded in the binary
	(scenarios/*.yaml) in the same format `calendario seed` reads.

AVAILABLE SCENARIOS:

	mina-norte:        One person, 7x7 rotation, leave during a rest block
	faenas-paralelas:  Three sites, overrides, no-rotation site, absences
	cuadrilla:         Six-person crew with staggered 14x14 starts

HOW SCENARIOS WORK:
 1. Parse and resolve the YAML (factory.LoadRoster)
 2. Check every assignment against the resolver
 3. Reset database (clear all data)
 4. Import rotations, sites, persons, assignments, leaves, absences

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "faenas-paralelas"}

ADDING NEW SCENARIOS:
 1. Drop a roster into scenarios/
 2. Add an entry to the 'scenarios' slice

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - factory/fixtures.go: Roster schema
  - cmd/calendario/seed.go: Same import from a file
*/
package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/GDiazF/calendario/factory"
	"github.com/GDiazF/calendario/store/sqlite"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "mina-norte",
		Name:        "Mina Norte",
		Description: "One person on a 7x7 rotation with a medical leave during the first rest block",
		Month:       "2025-01",
	},
	{
		ID:          "faenas-paralelas",
		Name:        "Faenas paralelas",
		Description: "Three sites, a rotation override, a site without rotation and overlapping absences",
		Month:       "2025-03",
	},
	{
		ID:          "cuadrilla",
		Name:        "Cuadrilla",
		Description: "Six-person crew with staggered 14x14 starts and one inactive worker",
		Month:       "2025-04",
	},
}

// ListScenarios returns all available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, map[string]any{"scenario": s})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenario": nil})
}

// LoadScenario resets the database and imports a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ds, err := LoadScenarioDataset(req.ScenarioID)
	if err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusNotFound, "Unknown scenario", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := ImportDataset(ctx, h.Store, ds); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to import scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded",
		zap.String("scenario", req.ScenarioID),
		zap.Int("persons", len(ds.Persons)),
		zap.Int("assignments", len(ds.Assignments)))

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"scenario_id": req.ScenarioID,
		"persons":     len(ds.Persons),
		"assignments": len(ds.Assignments),
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// IMPORT
// =============================================================================

var errUnknownScenario = errors.New("unknown scenario")

// LoadScenarioDataset parses an embedded scenario and checks its assignments.
func LoadScenarioDataset(id string) (*factory.Dataset, error) {
	found := false
	for _, s := range scenarios {
		found = found || s.ID == id
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", errUnknownScenario, id)
	}

	f, err := scenarioFS.Open("scenarios/" + id + ".yaml")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := factory.NewRotationFactory().LoadRoster(f)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", id, err)
	}
	if err := errors.Join(ds.CheckAssignments()...); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", id, err)
	}
	return ds, nil
}

// ImportDataset writes a resolved roster, keeping its IDs. It does not
// reset the store first.
func ImportDataset(ctx context.Context, store *sqlite.Store, ds *factory.Dataset) error {
	for _, r := range ds.Rotations {
		if _, err := store.SaveRotation(ctx, r); err != nil {
			return fmt.Errorf("rotation %d: %w", r.ID, err)
		}
	}
	for _, s := range ds.Sites {
		if _, err := store.SaveSite(ctx, s); err != nil {
			return fmt.Errorf("site %d: %w", s.ID, err)
		}
	}
	for _, p := range ds.Persons {
		if _, err := store.SavePerson(ctx, p); err != nil {
			return fmt.Errorf("person %d: %w", p.ID, err)
		}
	}
	for _, a := range ds.Assignments {
		if _, err := store.SaveAssignment(ctx, a); err != nil {
			return fmt.Errorf("assignment %d: %w", a.ID, err)
		}
	}
	for _, l := range ds.Leaves {
		if _, err := store.SaveMedicalLeave(ctx, l); err != nil {
			return fmt.Errorf("leave %d: %w", l.ID, err)
		}
	}
	for _, a := range ds.Absences {
		if _, err := store.SaveAbsence(ctx, a); err != nil {
			return fmt.Errorf("absence %d: %w", a.ID, err)
		}
	}
	return nil
}

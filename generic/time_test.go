package generic

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.March, 15), d)
	assert.Equal(t, "2025-03-15", d.String())

	for _, bad := range []string{"", "15/03/2025", "2025-02-30", "2025-3-1"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDateOf_DropsClockAndZone(t *testing.T) {
	santiago := time.FixedZone("CLT", -3*60*60)
	d := DateOf(time.Date(2025, 1, 31, 23, 30, 0, 0, santiago))

	assert.Equal(t, "2025-01-31", d.String())
	assert.Equal(t, time.UTC, d.Time.Location())
}

func TestDate_Arithmetic(t *testing.T) {
	d := MustParseDate("2024-02-28")

	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, 2, d.DaysUntil(MustParseDate("2024-03-01")))
	assert.Equal(t, -28, d.DaysUntil(MustParseDate("2024-01-31")))
}

func TestDaysBetween_AcrossCenturies(t *testing.T) {
	// GIVEN: Two dates more than 292 years apart
	from := MustParseDate("2025-01-01")
	to := MustParseDate("2400-01-01")

	// THEN: The day count does not saturate
	assert.Equal(t, 136965, DaysBetween(from, to))
	assert.Equal(t, -136965, DaysBetween(to, from))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2025, time.January))
	assert.Equal(t, 28, DaysInMonth(2025, time.February))
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 30, DaysInMonth(2025, time.April))
	assert.Equal(t, "2025-12-31", EndOfMonth(2025, time.December).String())
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Start Date  `json:"start"`
		End   *Date `json:"end"`
	}

	data, err := json.Marshal(payload{Start: MustParseDate("2025-01-01")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2025-01-01","end":null}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2025-06-30","end":"2025-07-01"}`), &p))
	assert.Equal(t, "2025-06-30", p.Start.String())
	require.NotNil(t, p.End)
	assert.Equal(t, "2025-07-01", p.End.String())

	assert.ErrorIs(t, json.Unmarshal([]byte(`{"start":20250101}`), &p), ErrInvalidDate)
}

func TestMinMaxDate(t *testing.T) {
	a, b := MustParseDate("2025-01-01"), MustParseDate("2025-01-02")

	assert.Equal(t, a, MinDate(a, b))
	assert.Equal(t, b, MaxDate(a, b))
	assert.Equal(t, a, MinDate(a, a))
}

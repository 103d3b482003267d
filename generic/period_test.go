package generic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func period(start, end string) Period {
	return Period{Start: MustParseDate(start), End: MustParseDate(end)}
}

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(MustParseDate("2025-01-01"), MustParseDate("2025-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	_, err = NewPeriod(MustParseDate("2025-01-02"), MustParseDate("2025-01-01"))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.True(t, IsClientError(err))
}

func TestMonthPeriod(t *testing.T) {
	p := MonthPeriod(2024, time.February)

	assert.Equal(t, "[2024-02-01, 2024-02-29]", p.String())
	assert.Equal(t, 29, p.Len())
	days := p.Days()
	require.Len(t, days, 29)
	assert.Equal(t, p.Start, days[0])
	assert.Equal(t, p.End, days[28])
}

func TestPeriod_Contains(t *testing.T) {
	p := period("2025-03-03", "2025-03-07")

	assert.True(t, p.Contains(MustParseDate("2025-03-03")))
	assert.True(t, p.Contains(MustParseDate("2025-03-07")))
	assert.False(t, p.Contains(MustParseDate("2025-03-02")))
	assert.False(t, p.Contains(MustParseDate("2025-03-08")))
}

func TestPeriod_Intersect(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Period
		want   Period
		wantOK bool
	}{
		{"inside", period("2025-01-01", "2025-01-31"), period("2025-01-10", "2025-01-12"), period("2025-01-10", "2025-01-12"), true},
		{"straddles start", period("2025-01-01", "2025-01-31"), period("2024-12-28", "2025-01-02"), period("2025-01-01", "2025-01-02"), true},
		{"touching", period("2025-01-01", "2025-01-31"), period("2025-01-31", "2025-02-05"), period("2025-01-31", "2025-01-31"), true},
		{"disjoint", period("2025-01-01", "2025-01-31"), period("2025-02-01", "2025-02-05"), Period{}, false},
		{"inverted", period("2025-01-01", "2025-01-31"), period("2025-01-10", "2025-01-05"), Period{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Intersect(tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, tt.b.Overlaps(tt.a))
		})
	}
}

func TestPeriod_EmptyHasNoDays(t *testing.T) {
	p := period("2025-01-05", "2025-01-01")

	assert.False(t, p.Valid())
	assert.Zero(t, p.Len())
	assert.Empty(t, p.Days())
}

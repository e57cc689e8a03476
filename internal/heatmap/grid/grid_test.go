package grid

import (
	"math"
	"testing"
	"time"

	"github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDateTruncatesTimestamps(t *testing.T) {
	cases := []string{
		"2024-03-05",
		"2024-03-05 17:45:00",
		"2024-03-05T23:59:59Z",
		"2024-03-05T23:30:00+05:00",
	}
	for _, raw := range cases {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, date("2024-03-05"), got, raw)
	}

	_, err := ParseDate("not a date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDaysIsInclusiveAndGapFree(t *testing.T) {
	days := Days(date("2024-02-27"), date("2024-03-02"))
	require.Len(t, days, 5)
	assert.Equal(t, date("2024-02-29"), days[2])
	assert.Equal(t, date("2024-03-02"), days[4])

	assert.Nil(t, Days(date("2024-03-02"), date("2024-03-01")))
}

func TestPreviousYearSameWeekday(t *testing.T) {
	got := PreviousYearSameWeekday(date("2023-09-11"))
	assert.Equal(t, date("2022-09-12"), got)
	assert.Equal(t, time.Monday, got.Weekday())

	for d := date("2023-01-01"); d.Before(date("2025-01-01")); d = d.AddDate(0, 0, 1) {
		prev := PreviousYearSameWeekday(d)
		diff := int(d.Sub(prev).Hours() / 24)
		assert.Equal(t, d.Weekday(), prev.Weekday())
		assert.GreaterOrEqual(t, diff, 358)
		assert.LessOrEqual(t, diff, 364)
	}
}

func TestPivotBuildsDenseAxesAndSumsDuplicates(t *testing.T) {
	obs := []Observation{
		{ReportDate: date("2024-01-01"), StayDate: date("2024-01-03"), Value: 2},
		{ReportDate: date("2024-01-01"), StayDate: date("2024-01-03"), Value: 3},
		{ReportDate: date("2024-01-02"), StayDate: date("2024-01-01"), Value: 0},
		{ReportDate: date("2023-12-31"), StayDate: date("2024-01-01"), Value: 99},
	}

	g := Pivot(obs, date("2024-01-01"), date("2024-01-04"))

	require.Len(t, g.Rows, 4)
	require.Len(t, g.Columns, 4)
	assert.Equal(t, date("2024-01-04"), g.Rows[3])

	assert.Equal(t, domain.Value(5), g.Cells[2][0])
	assert.Equal(t, domain.Value(0), g.Cells[0][1], "an observed zero is a value, not missing")
	assert.Equal(t, domain.Missing, g.Cells[3][3], "no observation means missing")
	assert.Equal(t, 2, g.ValidCount())
}

func TestSanitizeDropsNonFiniteAndHugeValues(t *testing.T) {
	g := domain.Grid{Cells: [][]domain.Cell{{
		domain.Value(math.NaN()),
		domain.Value(math.Inf(1)),
		domain.Value(-2e10),
		domain.Value(1e10),
		domain.Missing,
	}}}

	out, replaced := Sanitize(g)
	assert.Equal(t, 3, replaced)
	assert.Equal(t, []domain.Cell{domain.Missing, domain.Missing, domain.Missing, domain.Value(1e10), domain.Missing}, out.Cells[0])
	assert.True(t, g.Cells[0][1].Valid, "input must be left intact")
}

func TestNormalizeMapsIntoUnitInterval(t *testing.T) {
	g := domain.Grid{Cells: [][]domain.Cell{
		{domain.Value(10), domain.Missing},
		{domain.Value(20), domain.Value(30)},
	}}

	out, normalized := Normalize(g)
	require.True(t, normalized)
	assert.Equal(t, 0.0, out.Cells[0][0].Value)
	assert.Equal(t, 0.5, out.Cells[1][0].Value)
	assert.Equal(t, 1.0, out.Cells[1][1].Value)
	assert.False(t, out.Cells[0][1].Valid)
}

func TestNormalizeDegenerateRangePassesThrough(t *testing.T) {
	g := domain.Grid{Cells: [][]domain.Cell{{domain.Value(7), domain.Value(7), domain.Missing}}}
	out, normalized := Normalize(g)
	assert.False(t, normalized)
	assert.Equal(t, g.Cells, out.Cells)

	empty := domain.Grid{Cells: [][]domain.Cell{{domain.Missing}}}
	_, normalized = Normalize(empty)
	assert.False(t, normalized)
}

func TestCombineBounds(t *testing.T) {
	a := domain.Grid{Cells: [][]domain.Cell{{domain.Value(3), domain.Value(8)}}}
	b := domain.Grid{Cells: [][]domain.Cell{{domain.Value(-1), domain.Missing}}}
	empty := domain.Grid{Cells: [][]domain.Cell{{domain.Missing}}}

	bounds, ok := CombineBounds(a, empty, b)
	require.True(t, ok)
	assert.Equal(t, &domain.ColorBounds{Min: -1, Max: 8}, bounds)

	_, ok = CombineBounds(empty)
	assert.False(t, ok)
}

func TestTickIndices(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, TickIndices(3, 12))

	ticks := TickIndices(557, 12)
	require.Len(t, ticks, 12)
	assert.Equal(t, 0, ticks[0])
	assert.Equal(t, 556, ticks[11])
	for i := 1; i < len(ticks); i++ {
		assert.Greater(t, ticks[i], ticks[i-1])
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, TickIndices(13, 15))
	assert.Nil(t, TickIndices(0, 12))
}

package grid

import (
	"time"

	"github.com/smallbiznis/rateboard/internal/heatmap/domain"
)

// Observation is one source row reduced to the two date axes and the
// selected value.
type Observation struct {
	ReportDate time.Time
	StayDate   time.Time
	Value      float64
}

// Pivot sums observations into a dense grid whose both axes span start..end.
// Observations outside the range are ignored. Cells that received no
// observation stay missing.
func Pivot(observations []Observation, start, end time.Time) domain.Grid {
	days := Days(start, end)
	index := make(map[time.Time]int, len(days))
	for i, d := range days {
		index[d] = i
	}

	cells := make([][]domain.Cell, len(days))
	for i := range cells {
		cells[i] = make([]domain.Cell, len(days))
	}

	for _, obs := range observations {
		row, ok := index[Day(obs.StayDate)]
		if !ok {
			continue
		}
		col, ok := index[Day(obs.ReportDate)]
		if !ok {
			continue
		}
		cell := &cells[row][col]
		cell.Value += obs.Value
		cell.Valid = true
	}

	return domain.Grid{Rows: days, Columns: days, Cells: cells}
}

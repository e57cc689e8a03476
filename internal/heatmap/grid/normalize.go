package grid

import "github.com/smallbiznis/rateboard/internal/heatmap/domain"

// Range returns the global minimum and maximum over valid cells.
func Range(g domain.Grid) (low, high float64, ok bool) {
	for _, row := range g.Cells {
		for _, c := range row {
			if !c.Valid {
				continue
			}
			if !ok {
				low, high, ok = c.Value, c.Value, true
				continue
			}
			if c.Value < low {
				low = c.Value
			}
			if c.Value > high {
				high = c.Value
			}
		}
	}
	return low, high, ok
}

// Normalize rescales valid cells to [0,1] using the grid-wide minimum and maximum.
// When every value is equal (or there are none) the grid is returned
// unchanged and the second result is false.
func Normalize(g domain.Grid) (domain.Grid, bool) {
	low, high, ok := Range(g)
	if !ok || high == low {
		return g, false
	}
	span := high - low
	out := g.Clone()
	for i, row := range out.Cells {
		for j, c := range row {
			if c.Valid {
				out.Cells[i][j].Value = (c.Value - low) / span
			}
		}
	}
	return out, true
}

// CombineBounds merges several ranges into one. Grids without values are skipped.
func CombineBounds(grids ...domain.Grid) (*domain.ColorBounds, bool) {
	var combined *domain.ColorBounds
	for _, g := range grids {
		low, high, ok := Range(g)
		if !ok {
			continue
		}
		if combined == nil {
			combined = &domain.ColorBounds{Min: low, Max: high}
			continue
		}
		if low < combined.Min {
			combined.Min = low
		}
		if high > combined.Max {
			combined.Max = high
		}
	}
	return combined, combined != nil
}

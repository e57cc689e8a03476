package grid

import (
	"math"

	"github.com/smallbiznis/rateboard/internal/heatmap/domain"
)

// MaxMagnitude is the largest absolute value a cell may carry.
const MaxMagnitude = 1e10

// Sanitize turns non-finite or oversized values into missing cells and
// reports how many were replaced. The input grid is not modified.
func Sanitize(g domain.Grid) (domain.Grid, int) {
	out := g.Clone()
	replaced := 0
	for i, row := range out.Cells {
		for j, c := range row {
			if !c.Valid {
				continue
			}
			if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) || math.Abs(c.Value) > MaxMagnitude {
				out.Cells[i][j] = domain.Missing
				replaced++
			}
		}
	}
	return out, replaced
}

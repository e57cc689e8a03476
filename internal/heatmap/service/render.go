package service

import (
	"time"

	"github.com/samber/lo"
	heatmap "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"github.com/smallbiznis/rateboard/internal/heatmap/grid"
)

// fillRenderAxes copies the grid into the model with stay dates running from
// latest to earliest, and picks evenly spaced tick labels for both axes.
func fillRenderAxes(model *heatmap.RenderModel, g heatmap.Grid, tickCount int) {
	n := len(g.Rows)
	model.Columns = lo.Map(g.Columns, func(d time.Time, _ int) string { return grid.FormatDate(d) })
	model.Rows = make([]string, n)
	model.Cells = make([][]heatmap.Cell, n)
	for i := 0; i < n; i++ {
		src := n - 1 - i
		model.Rows[i] = grid.FormatDate(g.Rows[src])
		model.Cells[i] = append([]heatmap.Cell(nil), g.Cells[src]...)
	}

	model.XTicks = ticks(model.Columns, tickCount)
	model.YTicks = ticks(model.Rows, tickCount)
}

func ticks(labels []string, count int) []heatmap.Tick {
	return lo.Map(grid.TickIndices(len(labels), count), func(idx int, _ int) heatmap.Tick {
		return heatmap.Tick{Index: idx, Label: labels[idx]}
	})
}

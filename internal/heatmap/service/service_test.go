package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/heatmap/dataset"
	heatmap "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, files map[string]string) heatmap.Service {
	t.Helper()
	svc, _ := newTestServiceWithHolder(t, files)
	return svc
}

func newTestServiceWithHolder(t *testing.T, files map[string]string) (heatmap.Service, *config.DashboardConfigHolder) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	dash := config.DefaultDashboardConfig()
	dash.Heatmap.Datasets = []config.DatasetConfig{
		{Name: "Pickup Data", File: "pickup.csv", ValueColumn: "total_rooms"},
		{Name: "Forecasted Revenue Data", File: "revenue.csv", ValueColumn: "revenue"},
	}
	holder := config.NewStaticDashboardConfigHolder(dash)
	cfg := config.Config{DataDir: dir, Cache: config.CacheConfig{Driver: config.CacheDriverMemory}}
	log := zap.NewNop()

	return NewService(Params{
		Config:    cfg,
		Dashboard: holder,
		Registry:  dataset.NewRegistry(cfg, holder, log),
		Log:       log,
	}), holder
}

const pickupCSV = "report_date,stay_date,total_rooms\n" +
	"2024-01-01,2024-01-02,3\n" +
	"2024-01-01,2024-01-02,2\n" +
	"2024-01-02,2024-01-03,4\n" +
	"2024-01-03,2024-01-01,7\n"

const revenueCSV = "report_date,stay_date,revenue\n" +
	"2024-01-01,2024-01-01,100\n" +
	"2024-01-02,2024-01-02,-20\n"

func TestRenderPivotsSumsAndNormalizes(t *testing.T) {
	svc := newTestService(t, map[string]string{"pickup.csv": pickupCSV, "revenue.csv": revenueCSV})

	model, err := svc.Render(context.Background(), heatmap.RenderRequest{
		Dataset:   "pickup-data",
		Start:     day(2024, 1, 1),
		End:       day(2024, 1, 3),
		Normalize: true,
	})
	require.NoError(t, err)

	assert.True(t, model.HasData)
	assert.True(t, model.Normalized)
	assert.Equal(t, "Normalized Heatmap of total_rooms for Stay Dates from 2024-01-01 to 2024-01-03", model.Title)
	assert.Equal(t, []string{"2024-01-03", "2024-01-02", "2024-01-01"}, model.Rows)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, model.Columns)
	assert.Equal(t, "horizontal", model.Legend.Orientation)
	assert.Equal(t, "coolwarm", model.ColorScale)
	assert.Equal(t, heatmap.BoundsAuto, model.BoundsMode)

	assert.Equal(t, heatmap.Value(0), model.Cells[0][1])
	assert.InDelta(t, 1.0/3.0, model.Cells[1][0].Value, 1e-9)
	assert.Equal(t, heatmap.Value(1), model.Cells[2][2])
	assert.False(t, model.Cells[0][0].Valid)

	assert.Equal(t, 9, model.Diagnostics.TotalCells)
	assert.Equal(t, 6, model.Diagnostics.MissingCells)
	assert.Len(t, model.XTicks, 3)
}

func TestRenderConstantGridSkipsNormalization(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"pickup.csv":  "report_date,stay_date,total_rooms\n2024-01-01,2024-01-01,5\n2024-01-02,2024-01-02,5\n",
		"revenue.csv": revenueCSV,
	})

	model, err := svc.Render(context.Background(), heatmap.RenderRequest{
		Dataset:   "pickup-data",
		Start:     day(2024, 1, 1),
		End:       day(2024, 1, 2),
		Normalize: true,
	})
	require.NoError(t, err)
	assert.False(t, model.Normalized)
	assert.Equal(t, heatmap.Value(5), model.Cells[0][1])
	assert.Equal(t, "Heatmap of total_rooms for Stay Dates from 2024-01-01 to 2024-01-02", model.Title)
}

func TestRenderEmptyRangeIsNotAnError(t *testing.T) {
	svc := newTestService(t, map[string]string{"pickup.csv": pickupCSV, "revenue.csv": revenueCSV})

	model, err := svc.Render(context.Background(), heatmap.RenderRequest{
		Dataset: "pickup-data",
		Start:   day(2023, 6, 1),
		End:     day(2023, 6, 3),
	})
	require.NoError(t, err)
	assert.False(t, model.HasData)
	assert.Equal(t, "No data found for stay dates from 2023-06-01 to 2023-06-03.", model.Message)
	assert.Empty(t, model.Cells)
}

func TestRenderSanitizesOutOfRangeValues(t *testing.T) {
	svc := newTestService(t, map[string]string{
		"pickup.csv": "report_date,stay_date,total_rooms\n" +
			"2024-01-01,2024-01-01,1e11\n" +
			"2024-01-01,2024-01-02,NaN\n" +
			"2024-01-02,2024-01-02,4\n",
		"revenue.csv": revenueCSV,
	})

	model, err := svc.Render(context.Background(), heatmap.RenderRequest{
		Dataset: "pickup-data",
		Start:   day(2024, 1, 1),
		End:     day(2024, 1, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, model.Diagnostics.SanitizedCells)
	assert.Equal(t, 3, model.Diagnostics.MissingCells)
}

func TestRenderPreviousYearShiftsWindow(t *testing.T) {
	svc := newTestService(t, map[string]string{"pickup.csv": pickupCSV, "revenue.csv": revenueCSV})

	model, err := svc.Render(context.Background(), heatmap.RenderRequest{
		Dataset: "pickup-data",
		Start:   day(2025, 1, 1),
		End:     day(2025, 1, 3),
		Year:    heatmap.YearPrevious,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", model.Start)
	assert.Equal(t, "2024-01-05", model.End)
	assert.Equal(t, heatmap.YearPrevious, model.Year)
	assert.False(t, model.HasData)
	assert.Equal(t, "No data found for stay dates from 2024-01-03 to 2024-01-05.", model.Message)
}

func TestRenderRejectsInvalidRequests(t *testing.T) {
	svc := newTestService(t, map[string]string{"pickup.csv": pickupCSV, "revenue.csv": revenueCSV})
	ctx := context.Background()
	lo, hi := 5.0, 1.0

	cases := []struct {
		name string
		req  heatmap.RenderRequest
		want error
	}{
		{"unknown dataset", heatmap.RenderRequest{Dataset: "nope"}, heatmap.ErrDatasetNotFound},
		{"inverted range", heatmap.RenderRequest{Dataset: "pickup-data", Start: day(2024, 2, 1), End: day(2024, 1, 1)}, heatmap.ErrInvalidRange},
		{"unknown column", heatmap.RenderRequest{Dataset: "pickup-data", ValueColumn: "revenue"}, heatmap.ErrInvalidValueColumn},
		{"unknown color scale", heatmap.RenderRequest{Dataset: "pickup-data", ColorScale: "rainbow"}, heatmap.ErrInvalidColorScale},
		{"custom without values", heatmap.RenderRequest{Dataset: "pickup-data", Bounds: heatmap.BoundsCustom}, heatmap.ErrInvalidBounds},
		{"custom inverted", heatmap.RenderRequest{Dataset: "pickup-data", Bounds: heatmap.BoundsCustom, ColorMin: &lo, ColorMax: &hi}, heatmap.ErrInvalidBounds},
		{"bad year", heatmap.RenderRequest{Dataset: "pickup-data", Year: "next"}, heatmap.ErrInvalidYear},
		{"range too long", heatmap.RenderRequest{Dataset: "pickup-data", Start: day(2020, 1, 1), End: day(2024, 1, 1)}, heatmap.ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Render(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRangeLimitAppliesToRenderAndGlobalBounds(t *testing.T) {
	svc, holder := newTestServiceWithHolder(t, map[string]string{"pickup.csv": pickupCSV, "revenue.csv": revenueCSV})
	ctx := context.Background()

	dash := holder.Get()
	dash.Heatmap.MaxRangeDays = 3
	holder.Store(dash)

	_, err := svc.Render(ctx, heatmap.RenderRequest{Dataset: "pickup-data", Start: day(2024, 1, 1), End: day(2024, 1, 3)})
	require.NoError(t, err)

	_, err = svc.Render(ctx, heatmap.RenderRequest{Dataset: "pickup-data", Start: day(2024, 1, 1), End: day(2024, 1, 4)})
	assert.ErrorIs(t, err, heatmap.ErrInvalidRange)

	_, err = svc.GlobalBounds(ctx, heatmap.BoundsRequest{Start: day(2024, 1, 1), End: day(2024, 1, 4)})
	assert.ErrorIs(t, err, heatmap.ErrInvalidRange)
}

func TestRenderFollowsReloadedTickCount(t *testing.T) {
	svc, holder := newTestServiceWithHolder(t, map[string]string{"pickup.csv": pickupCSV, "revenue.csv": revenueCSV})
	ctx := context.Background()
	req := heatmap.RenderRequest{Dataset: "pickup-data", Start: day(2024, 1, 1), End: day(2024, 1, 20)}

	model, err := svc.Render(ctx, req)
	require.NoError(t, err)
	assert.Len(t, model.XTicks, 12)

	dash := holder.Get()
	dash.Heatmap.TickCount = 10
	holder.Store(dash)

	model, err = svc.Render(ctx, req)
	require.NoError(t, err)
	assert.Len(t, model.XTicks, 10)
	assert.Len(t, model.YTicks, 10)
}

func TestRenderMissingFileIsUnavailable(t *testing.T) {
	svc := newTestService(t, map[string]string{"pickup.csv": pickupCSV})

	_, err := svc.Render(context.Background(), heatmap.RenderRequest{Dataset: "forecasted-revenue-data"})
	assert.ErrorIs(t, err, heatmap.ErrDatasetUnavailable)
}

func TestRenderGlobalBoundsSpanAllDatasets(t *testing.T) {
	svc := newTestService(t, map[string]string{"pickup.csv": pickupCSV, "revenue.csv": revenueCSV})
	ctx := context.Background()

	bounds, err := svc.GlobalBounds(ctx, heatmap.BoundsRequest{Start: day(2024, 1, 1), End: day(2024, 1, 3)})
	require.NoError(t, err)
	require.NotNil(t, bounds)
	assert.Equal(t, -20.0, bounds.Min)
	assert.Equal(t, 100.0, bounds.Max)

	model, err := svc.Render(ctx, heatmap.RenderRequest{
		Dataset: "pickup-data",
		Start:   day(2024, 1, 1),
		End:     day(2024, 1, 3),
		Bounds:  heatmap.BoundsGlobal,
	})
	require.NoError(t, err)
	assert.Equal(t, &heatmap.ColorBounds{Min: -20, Max: 100}, model.ColorBounds)

	normalized, err := svc.GlobalBounds(ctx, heatmap.BoundsRequest{Start: day(2024, 1, 1), End: day(2024, 1, 3), Normalize: true})
	require.NoError(t, err)
	assert.Equal(t, &heatmap.ColorBounds{Min: 0, Max: 1}, normalized)
}

func TestRenderCustomBoundsAndColorScale(t *testing.T) {
	svc := newTestService(t, map[string]string{"pickup.csv": pickupCSV, "revenue.csv": revenueCSV})
	lo, hi := 0.0, 10.0

	model, err := svc.Render(context.Background(), heatmap.RenderRequest{
		Dataset:    "pickup-data",
		Start:      day(2024, 1, 1),
		End:        day(2024, 1, 3),
		ColorScale: "viridis",
		Bounds:     heatmap.BoundsCustom,
		ColorMin:   &lo,
		ColorMax:   &hi,
	})
	require.NoError(t, err)
	assert.Equal(t, "viridis", model.ColorScale)
	assert.Equal(t, &heatmap.ColorBounds{Min: 0, Max: 10}, model.ColorBounds)
}

func TestListDatasetsReportsNumericColumns(t *testing.T) {
	svc := newTestService(t, map[string]string{"pickup.csv": pickupCSV})

	list, err := svc.ListDatasets(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pickup-data", list[0].ID)
	assert.Equal(t, []string{"total_rooms"}, list[0].ValueColumns)
	assert.Equal(t, 4, list[0].Rows)
	assert.Equal(t, "forecasted-revenue-data", list[1].ID)
	assert.Empty(t, list[1].ValueColumns)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/smallbiznis/rateboard/internal/cache"
	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/heatmap/dataset"
	heatmap "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"github.com/smallbiznis/rateboard/internal/heatmap/grid"
	"github.com/smallbiznis/rateboard/internal/observability/logger"
	"github.com/smallbiznis/rateboard/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config    config.Config
	Dashboard *config.DashboardConfigHolder
	Registry  *dataset.Registry
	Redis     *redis.Client    `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
	Log       *zap.Logger
}

type Service struct {
	dashboard *config.DashboardConfigHolder
	registry  *dataset.Registry
	grids     cache.Cache[heatmap.RenderModel]
	bounds    cache.Cache[heatmap.ColorBounds]
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewService(p Params) heatmap.Service {
	return &Service{
		dashboard: p.Dashboard,
		registry:  p.Registry,
		grids:     cache.New[heatmap.RenderModel](p.Config, p.Redis, "heatmap:grid", p.Log),
		bounds:    cache.New[heatmap.ColorBounds](p.Config, p.Redis, "heatmap:bounds", p.Log),
		metrics:   p.Metrics,
		log:       p.Log.Named("heatmap.service"),
	}
}

func (s *Service) ListDatasets(ctx context.Context) ([]heatmap.Dataset, error) {
	sources := s.registry.Sources()
	out := make([]heatmap.Dataset, 0, len(sources))
	for _, src := range sources {
		ds := heatmap.Dataset{
			ID:                 src.ID,
			Name:               src.Name,
			DefaultValueColumn: src.DefaultValueColumn,
			ValueColumns:       []string{},
		}
		table, _, err := s.registry.Load(ctx, src)
		if err != nil {
			s.log.Warn("dataset unavailable", zap.String("dataset", src.ID), zap.Error(err))
		} else {
			ds.ValueColumns = table.NumericColumns()
			ds.Rows = table.Len()
		}
		out = append(out, ds)
	}
	return out, nil
}

func (s *Service) Render(ctx context.Context, req heatmap.RenderRequest) (*heatmap.RenderModel, error) {
	cfg := s.dashboard.Get().Heatmap

	src, ok := s.registry.Lookup(req.Dataset)
	if !ok {
		return nil, heatmap.ErrDatasetNotFound
	}
	start, end, err := s.resolveRange(req.Start, req.End, req.Year)
	if err != nil {
		return nil, err
	}
	colorScale, err := resolveColorScale(cfg.ColorScales, req.ColorScale)
	if err != nil {
		return nil, err
	}
	mode := req.Bounds
	if mode == "" {
		mode = heatmap.BoundsAuto
	}

	var bounds *heatmap.ColorBounds
	switch mode {
	case heatmap.BoundsAuto:
	case heatmap.BoundsCustom:
		if req.ColorMin == nil || req.ColorMax == nil || *req.ColorMin >= *req.ColorMax {
			return nil, heatmap.ErrInvalidBounds
		}
		bounds = &heatmap.ColorBounds{Min: *req.ColorMin, Max: *req.ColorMax}
	case heatmap.BoundsGlobal:
		bounds, err = s.GlobalBounds(ctx, heatmap.BoundsRequest{
			Start:     req.Start,
			End:       req.End,
			Normalize: req.Normalize,
			Year:      req.Year,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, heatmap.ErrInvalidBounds
	}

	table, fp, err := s.load(ctx, src)
	if err != nil {
		return nil, err
	}
	column := strings.TrimSpace(req.ValueColumn)
	if column == "" {
		column = src.DefaultValueColumn
	}
	if !table.HasNumericColumn(column) {
		return nil, fmt.Errorf("%w: %s", heatmap.ErrInvalidValueColumn, column)
	}

	year := yearOrDefault(req.Year)
	tickCount := s.dashboard.Get().Heatmap.TickCount
	key := cache.Key(src.ID, fp.String(), column, grid.FormatDate(start), grid.FormatDate(end),
		strconv.FormatBool(req.Normalize), string(year), strconv.Itoa(tickCount))

	model, hit := s.grids.Get(ctx, key)
	s.metrics.RecordGridCache(ctx, src.ID, hit)
	if !hit {
		built, err := s.build(ctx, src, table, column, start, end, req.Normalize, tickCount)
		if err != nil {
			return nil, err
		}
		built.Year = year
		model = *built
		s.grids.Set(ctx, key, model)
	}

	model.ColorScale = colorScale
	model.BoundsMode = mode
	model.ColorBounds = bounds
	return &model, nil
}

// GlobalBounds combines the value range of every configured dataset's
// default column over the same window and transformation as a render.
func (s *Service) GlobalBounds(ctx context.Context, req heatmap.BoundsRequest) (*heatmap.ColorBounds, error) {
	start, end, err := s.resolveRange(req.Start, req.End, req.Year)
	if err != nil {
		return nil, err
	}

	type loaded struct {
		src   dataset.Source
		table *dataset.Table
		fp    dataset.Fingerprint
	}
	var inputs []loaded
	keyParts := []string{grid.FormatDate(start), grid.FormatDate(end), strconv.FormatBool(req.Normalize)}
	for _, src := range s.registry.Sources() {
		table, fp, err := s.load(ctx, src)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, loaded{src: src, table: table, fp: fp})
		keyParts = append(keyParts, src.ID, fp.String())
	}

	key := cache.Key(keyParts...)
	if b, ok := s.bounds.Get(ctx, key); ok {
		return &b, nil
	}

	grids := make([]heatmap.Grid, 0, len(inputs))
	for _, in := range inputs {
		obs, err := in.table.Observations(in.src.DefaultValueColumn)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", heatmap.ErrInvalidValueColumn, in.src.DefaultValueColumn)
		}
		g, _ := grid.Sanitize(grid.Pivot(obs, start, end))
		if req.Normalize {
			g, _ = grid.Normalize(g)
		}
		grids = append(grids, g)
	}

	bounds, ok := grid.CombineBounds(grids...)
	if !ok {
		return nil, nil
	}
	s.bounds.Set(ctx, key, *bounds)
	return bounds, nil
}

func (s *Service) build(ctx context.Context, src dataset.Source, table *dataset.Table, column string, start, end time.Time, normalize bool, tickCount int) (*heatmap.RenderModel, error) {
	log := logger.WithContext(ctx, s.log)
	began := time.Now()

	obs, err := table.Observations(column)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", heatmap.ErrInvalidValueColumn, column)
	}

	raw := grid.Pivot(obs, start, end)
	sanitized, dropped := grid.Sanitize(raw)
	if dropped > 0 {
		log.Warn("non-finite or out-of-range values treated as missing",
			zap.String("dataset", src.ID),
			zap.String("value_column", column),
			zap.Int("cells", dropped),
		)
		s.metrics.RecordSanitizedCells(ctx, src.ID, dropped)
	}

	model := &heatmap.RenderModel{
		Dataset:     src.ID,
		ValueColumn: column,
		Start:       grid.FormatDate(start),
		End:         grid.FormatDate(end),
		XLabel:      "Report Date",
		YLabel:      "Stay Date",
		Legend:      heatmap.Legend{Orientation: "horizontal", Label: column},
		Title:       title(column, start, end, false),
		Diagnostics: heatmap.Diagnostics{
			TotalCells:     sanitized.Size(),
			MissingCells:   sanitized.Size() - sanitized.ValidCount(),
			SanitizedCells: dropped,
			SkippedRows:    table.SkippedRows(),
		},
	}

	if sanitized.ValidCount() == 0 {
		model.Message = fmt.Sprintf("No data found for stay dates from %s to %s.", model.Start, model.End)
		return model, nil
	}

	out := sanitized
	if normalize {
		out, model.Normalized = grid.Normalize(sanitized)
		if !model.Normalized {
			log.Info("normalization skipped on constant grid", zap.String("dataset", src.ID))
		}
	}
	model.Title = title(column, start, end, model.Normalized)

	fillRenderAxes(model, out, tickCount)
	model.HasData = true

	s.metrics.RecordGridBuilt(ctx, src.ID, time.Since(began))
	return model, nil
}

func (s *Service) load(ctx context.Context, src dataset.Source) (*dataset.Table, dataset.Fingerprint, error) {
	table, fp, err := s.registry.Load(ctx, src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dataset.Fingerprint{}, fmt.Errorf("%w: %s", heatmap.ErrDatasetUnavailable, src.ID)
		}
		return nil, dataset.Fingerprint{}, fmt.Errorf("%w: %s: %v", heatmap.ErrDatasetUnavailable, src.ID, err)
	}
	return table, fp, nil
}

// resolveRange fills the configured default window, bounds its length and,
// for the previous year view, moves both ends to the same weekday one year back.
func (s *Service) resolveRange(start, end time.Time, year heatmap.YearMode) (time.Time, time.Time, error) {
	cfg := s.dashboard.Get().Heatmap
	if start.IsZero() {
		d, err := grid.ParseDate(cfg.DefaultStart)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: default start", heatmap.ErrInvalidRange)
		}
		start = d
	}
	if end.IsZero() {
		d, err := grid.ParseDate(cfg.DefaultEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: default end", heatmap.ErrInvalidRange)
		}
		end = d
	}
	start, end = grid.Day(start), grid.Day(end)
	if start.After(end) {
		return time.Time{}, time.Time{}, heatmap.ErrInvalidRange
	}
	// The grid is dense in both axes, so its size grows with the square of the span.
	if days := int(end.Sub(start).Hours()/24) + 1; cfg.MaxRangeDays > 0 && days > cfg.MaxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d days exceeds the %d day limit", heatmap.ErrInvalidRange, days, cfg.MaxRangeDays)
	}

	switch yearOrDefault(year) {
	case heatmap.YearCurrent:
	case heatmap.YearPrevious:
		start = grid.PreviousYearSameWeekday(start)
		end = grid.PreviousYearSameWeekday(end)
	default:
		return time.Time{}, time.Time{}, heatmap.ErrInvalidYear
	}
	return start, end, nil
}

func resolveColorScale(allowed []string, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		if len(allowed) == 0 {
			return "", heatmap.ErrInvalidColorScale
		}
		return allowed[0], nil
	}
	match, ok := lo.Find(allowed, func(name string) bool { return strings.EqualFold(name, requested) })
	if !ok {
		return "", fmt.Errorf("%w: %s", heatmap.ErrInvalidColorScale, requested)
	}
	return match, nil
}

func yearOrDefault(y heatmap.YearMode) heatmap.YearMode {
	if y == "" {
		return heatmap.YearCurrent
	}
	return y
}

func title(column string, start, end time.Time, normalized bool) string {
	prefix := "Heatmap"
	if normalized {
		prefix = "Normalized Heatmap"
	}
	return fmt.Sprintf("%s of %s for Stay Dates from %s to %s", prefix, column, grid.FormatDate(start), grid.FormatDate(end))
}

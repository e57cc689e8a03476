package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes domain instruments for the analysis pipelines.
type Metrics struct {
	analysisRuns   metric.Int64Counter
	snapshotLookup metric.Int64Counter
	gridsBuilt     metric.Int64Counter
	gridCache      metric.Int64Counter
	cellsDropped   metric.Int64Counter
	gridBuildTime  metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "rateboard"
	}
	meter := provider.Meter(name)

	analysisRuns, err := meter.Int64Counter("rateboard_mismatch_analyses_total")
	if err != nil {
		return nil, err
	}
	snapshotLookup, err := meter.Int64Counter("rateboard_snapshot_lookups_total")
	if err != nil {
		return nil, err
	}
	gridsBuilt, err := meter.Int64Counter("rateboard_heatmap_grids_built_total")
	if err != nil {
		return nil, err
	}
	gridCache, err := meter.Int64Counter("rateboard_heatmap_cache_lookups_total")
	if err != nil {
		return nil, err
	}
	cellsDropped, err := meter.Int64Counter("rateboard_heatmap_cells_sanitized_total")
	if err != nil {
		return nil, err
	}
	gridBuildTime, err := meter.Float64Histogram("rateboard_heatmap_grid_build_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		analysisRuns:   analysisRuns,
		snapshotLookup: snapshotLookup,
		gridsBuilt:     gridsBuilt,
		gridCache:      gridCache,
		cellsDropped:   cellsDropped,
		gridBuildTime:  gridBuildTime,
	}, nil
}

// RecordAnalysis counts a mismatch analysis by data source (snapshot or query) and status.
func (m *Metrics) RecordAnalysis(ctx context.Context, source, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.analysisRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordSnapshotLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	m.snapshotLookup.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("result", hitLabel(hit)))...))
}

func (m *Metrics) RecordGridBuilt(ctx context.Context, dataset string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("dataset", strings.TrimSpace(dataset)))
	m.gridsBuilt.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.gridBuildTime.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordGridCache(ctx context.Context, dataset string, hit bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("dataset", strings.TrimSpace(dataset)),
		attribute.String("result", hitLabel(hit)),
	)
	m.gridCache.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSanitizedCells counts non-finite or out-of-range values turned into missing cells.
func (m *Metrics) RecordSanitizedCells(ctx context.Context, dataset string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("dataset", strings.TrimSpace(dataset)))
	m.cellsDropped.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"dataset":     {},
	"source":      {},
	"status":      {},
	"result":      {},
	"endpoint":    {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

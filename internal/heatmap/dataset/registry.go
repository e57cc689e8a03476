package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"github.com/smallbiznis/rateboard/internal/cache"
	"github.com/smallbiznis/rateboard/internal/config"
	"go.uber.org/zap"
)

// Source is a configured dataset resolved against the data directory.
type Source struct {
	ID                 string
	Name               string
	Path               string
	DefaultValueColumn string
}

// Fingerprint identifies the file version so cached results built from an
// older copy are never reused.
type Fingerprint struct {
	ModTime time.Time
	Size    int64
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%d-%d", f.ModTime.UnixNano(), f.Size)
}

// Registry resolves dataset ids and keeps parsed tables in memory per file version.
type Registry struct {
	dataDir string
	cfg     *config.DashboardConfigHolder
	tables  *cache.MemoryCache[*Table]
	log     *zap.Logger
}

func NewRegistry(appCfg config.Config, cfg *config.DashboardConfigHolder, log *zap.Logger) *Registry {
	return &Registry{
		dataDir: appCfg.DataDir,
		cfg:     cfg,
		tables:  cache.NewMemoryCache[*Table](16),
		log:     log.Named("heatmap.dataset"),
	}
}

// Sources lists the configured datasets in configuration order.
func (r *Registry) Sources() []Source {
	return lo.Map(r.cfg.Get().Heatmap.Datasets, func(ds config.DatasetConfig, _ int) Source {
		path := ds.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.dataDir, path)
		}
		return Source{
			ID:                 slug.Make(ds.Name),
			Name:               strings.TrimSpace(ds.Name),
			Path:               path,
			DefaultValueColumn: strings.TrimSpace(ds.ValueColumn),
		}
	})
}

func (r *Registry) Lookup(id string) (Source, bool) {
	id = slug.Make(id)
	return lo.Find(r.Sources(), func(s Source) bool { return s.ID == id })
}

// Load returns the parsed table and the fingerprint of the file it came from.
func (r *Registry) Load(ctx context.Context, src Source) (*Table, Fingerprint, error) {
	info, err := os.Stat(src.Path)
	if err != nil {
		return nil, Fingerprint{}, err
	}
	fp := Fingerprint{ModTime: info.ModTime(), Size: info.Size()}
	key := cache.Key(src.Path, fp.String())

	if t, ok := r.tables.Get(ctx, key); ok {
		return t, fp, nil
	}

	start := time.Now()
	t, err := LoadTable(src.Path)
	if err != nil {
		return nil, Fingerprint{}, err
	}
	r.tables.Set(ctx, key, t)
	r.log.Info("dataset loaded",
		zap.String("dataset", src.ID),
		zap.Int("rows", t.Len()),
		zap.Int("skipped_rows", t.SkippedRows()),
		zap.Strings("numeric_columns", t.NumericColumns()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return t, fp, nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rateboard/internal/clock"
	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/observability/logger"
	"github.com/smallbiznis/rateboard/internal/observability/metrics"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/analysis"
	ratemismatch "github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const runHistoryLimit = 20

type Params struct {
	fx.In

	Dashboard *config.DashboardConfigHolder
	Repo      ratemismatch.Repository
	Snapshots ratemismatch.SnapshotStore
	Runs      ratemismatch.RunRepository
	GenID     *snowflake.Node
	Clock     clock.Clock
	Metrics   *metrics.Metrics `optional:"true"`
	Log       *zap.Logger
}

type Service struct {
	dashboard *config.DashboardConfigHolder
	repo      ratemismatch.Repository
	snapshots ratemismatch.SnapshotStore
	runs      ratemismatch.RunRepository
	genID     *snowflake.Node
	clock     clock.Clock
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewService(p Params) ratemismatch.Service {
	return &Service{
		dashboard: p.Dashboard,
		repo:      p.Repo,
		snapshots: p.Snapshots,
		runs:      p.Runs,
		genID:     p.GenID,
		clock:     p.Clock,
		metrics:   p.Metrics,
		log:       p.Log.Named("ratemismatch.service"),
	}
}

// Analyze classifies the snapshot when one exists, otherwise queries the
// source once and stores the result as the new snapshot. Refresh skips the
// snapshot and replaces it only after the query succeeds, so a failed
// refresh keeps the previous snapshot.
func (s *Service) Analyze(ctx context.Context, req ratemismatch.AnalyzeRequest) (*ratemismatch.Report, error) {
	log := logger.WithContext(ctx, s.log)
	started := s.clock.Now(ctx)
	cfg := s.dashboard.Get().Mismatch

	var (
		records []ratemismatch.Record
		found   bool
		err     error
	)
	if !req.Refresh {
		records, found, err = s.snapshots.Load(ctx)
		if err != nil {
			s.metrics.RecordAnalysis(ctx, ratemismatch.SourceSnapshot, "failed")
			return nil, err
		}
		s.metrics.RecordSnapshotLookup(ctx, found)
	}

	source := ratemismatch.SourceSnapshot
	if !found {
		source = ratemismatch.SourceQuery
		filter, err := repository.NewFilter(cfg)
		if err != nil {
			return nil, err
		}
		records, err = s.repo.FetchMismatches(ctx, filter)
		if err != nil {
			log.Error("mismatch query failed", zap.Error(err))
			s.metrics.RecordAnalysis(ctx, source, "failed")
			return nil, err
		}
		if err := s.snapshots.Save(ctx, records); err != nil {
			log.Warn("snapshot not written", zap.Error(err))
			if req.Refresh {
				// The old snapshot no longer reflects a refresh that succeeded.
				if err := s.snapshots.Delete(ctx); err != nil {
					log.Warn("stale snapshot not removed", zap.Error(err))
				}
			}
		}
	}

	summary := analysis.NewClassifier(cfg).Summarize(records)
	finished := s.clock.Now(ctx)
	report := &ratemismatch.Report{
		RunID:       s.genID.Generate().String(),
		Source:      source,
		GeneratedAt: finished,
		Summary:     summary,
	}

	s.recordRun(ctx, report, started)
	s.metrics.RecordAnalysis(ctx, source, "succeeded")
	log.Info("mismatch analysis finished",
		zap.String("run_id", report.RunID),
		zap.String("source", source),
		zap.Int("rows", summary.TotalRows),
		zap.Int("unresolved", summary.UnresolvedCount),
		zap.Int("upgrades", summary.UpgradeCount),
	)
	return report, nil
}

// recordRun keeps the history entry best effort; the analysis result is
// returned even when the app store is unavailable.
func (s *Service) recordRun(ctx context.Context, report *ratemismatch.Report, started time.Time) {
	payload, err := json.Marshal(report)
	if err != nil {
		s.log.Warn("run summary not encoded", zap.Error(err))
		return
	}
	id, err := snowflake.ParseString(report.RunID)
	if err != nil {
		s.log.Warn("run id not parsed", zap.Error(err))
		return
	}
	run := &ratemismatch.AnalysisRun{
		ID:         id,
		Source:     report.Source,
		RowCount:   report.TotalRows,
		Unresolved: report.UnresolvedCount,
		Upgrades:   report.UpgradeCount,
		Summary:    datatypes.JSON(payload),
		StartedAt:  started,
		FinishedAt: report.GeneratedAt,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		logger.WithContext(ctx, s.log).Warn("analysis run not recorded", zap.Error(err))
	}
}

func (s *Service) ListRuns(ctx context.Context) ([]ratemismatch.AnalysisRun, error) {
	return s.runs.ListLatest(ctx, runHistoryLimit)
}

func (s *Service) LatestReport(ctx context.Context) (*ratemismatch.Report, error) {
	run, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	var report ratemismatch.Report
	if err := json.Unmarshal(run.Summary, &report); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", run.ID, err)
	}
	return &report, nil
}

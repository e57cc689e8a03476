package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/rateboard/internal/clock"
	"github.com/smallbiznis/rateboard/internal/config"
	ratemismatch "github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/mocks"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fixture struct {
	svc       ratemismatch.Service
	repo      *mocks.MockRepository
	snapshots *mocks.MockSnapshotStore
	runs      *mocks.MockRunRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := fixture{
		repo:      mocks.NewMockRepository(ctrl),
		snapshots: mocks.NewMockSnapshotStore(ctrl),
		runs:      mocks.NewMockRunRepository(ctrl),
	}
	f.svc = NewService(Params{
		Dashboard: config.NewStaticDashboardConfigHolder(config.DefaultDashboardConfig()),
		Repo:      f.repo,
		Snapshots: f.snapshots,
		Runs:      f.runs,
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)),
		Log:       zap.NewNop(),
	})
	return f
}

func f64(v float64) *float64 { return &v }

var sampleRecords = []ratemismatch.Record{
	{BookingReference: "BK-1", RoomRevenue: f64(100), RefundableRate: f64(120), TotalRevenueAfterTax: f64(118.95)},
	{BookingReference: "BK-2", RoomRevenue: f64(75), RefundableRate: f64(100)},
}

func TestAnalyzeReusesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.snapshots.EXPECT().Load(gomock.Any()).Return(sampleRecords, true, nil)
	var stored *ratemismatch.AnalysisRun
	f.runs.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, run *ratemismatch.AnalysisRun) error {
		stored = run
		return nil
	})

	report, err := f.svc.Analyze(ctx, ratemismatch.AnalyzeRequest{})
	require.NoError(t, err)

	assert.Equal(t, ratemismatch.SourceSnapshot, report.Source)
	assert.Equal(t, 2, report.TotalRows)
	assert.Equal(t, 1, report.UnresolvedCount)
	assert.Equal(t, 1, report.UpgradeCount)
	assert.Equal(t, 1, report.Hypotheses[0].Matches)
	assert.Equal(t, 50.0, report.Hypotheses[0].MatchPercentage)

	require.NotNil(t, stored)
	assert.Equal(t, report.RunID, stored.ID.String())
	assert.Equal(t, 2, stored.RowCount)
	assert.Equal(t, 1, stored.Unresolved)

	var decoded ratemismatch.Report
	require.NoError(t, json.Unmarshal(stored.Summary, &decoded))
	assert.Equal(t, report.Summary, decoded.Summary)
}

func TestAnalyzeQueriesAndSavesWhenNoSnapshot(t *testing.T) {
	f := newFixture(t)

	gomock.InOrder(
		f.snapshots.EXPECT().Load(gomock.Any()).Return(nil, false, nil),
		f.repo.EXPECT().FetchMismatches(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, filter ratemismatch.Filter) ([]ratemismatch.Record, error) {
				assert.Equal(t, "FLRA1", filter.RatePlanCode)
				assert.Equal(t, int64(6), filter.HotelID)
				return sampleRecords, nil
			}),
		f.snapshots.EXPECT().Save(gomock.Any(), sampleRecords).Return(nil),
	)
	f.runs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	report, err := f.svc.Analyze(context.Background(), ratemismatch.AnalyzeRequest{})
	require.NoError(t, err)
	assert.Equal(t, ratemismatch.SourceQuery, report.Source)
}

func TestAnalyzeRefreshQueriesBeforeReplacingSnapshot(t *testing.T) {
	f := newFixture(t)

	f.snapshots.EXPECT().Load(gomock.Any()).Times(0)
	f.snapshots.EXPECT().Delete(gomock.Any()).Times(0)
	gomock.InOrder(
		f.repo.EXPECT().FetchMismatches(gomock.Any(), gomock.Any()).Return([]ratemismatch.Record{}, nil),
		f.snapshots.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
	)
	f.runs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	report, err := f.svc.Analyze(context.Background(), ratemismatch.AnalyzeRequest{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, ratemismatch.SourceQuery, report.Source)
	assert.Zero(t, report.TotalRows)
}

func TestAnalyzeFailedRefreshKeepsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshot.csv"), zap.NewNop())
	require.NoError(t, store.Save(context.Background(), sampleRecords))

	repo := mocks.NewMockRepository(ctrl)
	runs := mocks.NewMockRunRepository(ctrl)
	repo.EXPECT().FetchMismatches(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: dial tcp: connection refused", ratemismatch.ErrSourceUnavailable))
	runs.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	svc := NewService(Params{
		Dashboard: config.NewStaticDashboardConfigHolder(config.DefaultDashboardConfig()),
		Repo:      repo,
		Snapshots: store,
		Runs:      runs,
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)),
		Log:       zap.NewNop(),
	})

	_, err = svc.Analyze(context.Background(), ratemismatch.AnalyzeRequest{Refresh: true})
	require.ErrorIs(t, err, ratemismatch.ErrSourceUnavailable)

	records, found, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, records, len(sampleRecords))
}

func TestAnalyzeRefreshDropsStaleSnapshotWhenSaveFails(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().FetchMismatches(gomock.Any(), gomock.Any()).Return(sampleRecords, nil)
	gomock.InOrder(
		f.snapshots.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
		f.snapshots.EXPECT().Delete(gomock.Any()).Return(nil),
	)
	f.runs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	report, err := f.svc.Analyze(context.Background(), ratemismatch.AnalyzeRequest{Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRows)
}

func TestAnalyzeSourceFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	cause := fmt.Errorf("%w: dial tcp: connection refused", ratemismatch.ErrSourceUnavailable)

	f.snapshots.EXPECT().Load(gomock.Any()).Return(nil, false, nil)
	f.repo.EXPECT().FetchMismatches(gomock.Any(), gomock.Any()).Return(nil, cause)
	f.snapshots.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)
	f.runs.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.svc.Analyze(context.Background(), ratemismatch.AnalyzeRequest{})
	assert.ErrorIs(t, err, ratemismatch.ErrSourceUnavailable)
}

func TestAnalyzeSurvivesRunHistoryFailure(t *testing.T) {
	f := newFixture(t)

	f.snapshots.EXPECT().Load(gomock.Any()).Return(sampleRecords, true, nil)
	f.runs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("database is locked"))

	report, err := f.svc.Analyze(context.Background(), ratemismatch.AnalyzeRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalRows)
}

func TestLatestReportDecodesStoredSummary(t *testing.T) {
	f := newFixture(t)

	payload, err := json.Marshal(ratemismatch.Report{
		RunID:   "42",
		Source:  ratemismatch.SourceQuery,
		Summary: ratemismatch.Summary{TotalRows: 7, UnresolvedCount: 3},
	})
	require.NoError(t, err)
	f.runs.EXPECT().Latest(gomock.Any()).Return(&ratemismatch.AnalysisRun{ID: 42, Summary: datatypes.JSON(payload)}, nil)

	report, err := f.svc.LatestReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", report.RunID)
	assert.Equal(t, 7, report.TotalRows)
	assert.Equal(t, 3, report.UnresolvedCount)
}

func TestListRunsUsesHistoryLimit(t *testing.T) {
	f := newFixture(t)
	f.runs.EXPECT().ListLatest(gomock.Any(), runHistoryLimit).Return([]ratemismatch.AnalysisRun{{ID: 1}}, nil)

	runs, err := f.svc.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

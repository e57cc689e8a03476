package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestRunRepositoryOrdersByFinishTime(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.AnalysisRun{}))

	repo := NewRunRepository(conn)
	ctx := context.Background()

	_, err = repo.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrNoRuns)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &domain.AnalysisRun{
			ID:         snowflake.ID(100 + i),
			Source:     domain.SourceQuery,
			RowCount:   i,
			Summary:    datatypes.JSON(`{"total_rows":0}`),
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}))
	}

	runs, err := repo.ListLatest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, snowflake.ID(102), runs[0].ID)
	assert.Equal(t, snowflake.ID(101), runs[1].ID)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.RowCount)
	assert.JSONEq(t, `{"total_rows":0}`, string(latest.Summary))
}

func TestRunRepositoryRejectsDuplicateID(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.AnalysisRun{}))

	repo := NewRunRepository(conn)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := func() *domain.AnalysisRun {
		return &domain.AnalysisRun{ID: 7, Source: domain.SourceSnapshot, StartedAt: now, FinishedAt: now}
	}

	require.NoError(t, repo.Create(ctx, run()))
	assert.ErrorIs(t, repo.Create(ctx, run()), domain.ErrDuplicateRun)
}

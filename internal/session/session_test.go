package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/rateboard/internal/clock"
	"github.com/smallbiznis/rateboard/internal/config"
	heatmap "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newMemoryService() *Service {
	return NewService(Params{
		Config: config.Config{Cache: config.CacheConfig{Driver: config.CacheDriverMemory}},
		Clock:  clock.NewFakeClock(day(2024, 7, 1)),
		Log:    zap.NewNop(),
	})
}

func TestYearToggleKeepsViewport(t *testing.T) {
	svc := newMemoryService()
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, heatmap.YearCurrent, state.Tab("pickup-data").Year)

	_, err = svc.SetViewport(ctx, state.ID, "pickup-data", Viewport{Start: day(2024, 2, 1), End: day(2024, 3, 1)})
	require.NoError(t, err)

	updated, err := svc.SetYear(ctx, state.ID, "pickup-data", heatmap.YearPrevious)
	require.NoError(t, err)

	tab := updated.Tab("pickup-data")
	assert.Equal(t, heatmap.YearPrevious, tab.Year)
	require.NotNil(t, tab.Viewport)
	assert.Equal(t, day(2024, 2, 1), tab.Viewport.Start)

	other := updated.Tab("forecasted-revenue-data")
	assert.Equal(t, heatmap.YearCurrent, other.Year)
	assert.Nil(t, other.Viewport)
}

func TestTabsAreKeyedByDatasetSlug(t *testing.T) {
	svc := newMemoryService()
	ctx := context.Background()

	state, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.SetViewport(ctx, state.ID, "Pickup Data", Viewport{Start: day(2024, 2, 1), End: day(2024, 3, 1)})
	require.NoError(t, err)
	updated, err := svc.SetYear(ctx, state.ID, "pickup-data", heatmap.YearPrevious)
	require.NoError(t, err)

	assert.Len(t, updated.Tabs, 1)
	tab := updated.Tab("pickup-data")
	assert.Equal(t, heatmap.YearPrevious, tab.Year)
	require.NotNil(t, tab.Viewport)
	assert.Equal(t, day(2024, 2, 1), tab.Viewport.Start)
	assert.Equal(t, tab, updated.Tab("Pickup Data"))
}

func TestMemorySessionsOutliveGridCacheLimit(t *testing.T) {
	svc := newMemoryService()
	ctx := context.Background()

	first, err := svc.Create(ctx)
	require.NoError(t, err)
	for i := 0; i < 600; i++ {
		_, err := svc.Create(ctx)
		require.NoError(t, err)
	}

	_, err = svc.Get(ctx, first.ID)
	assert.NoError(t, err)
}

func TestMemorySessionsEvictOldestPastLimit(t *testing.T) {
	svc := NewService(Params{
		Config: config.Config{Cache: config.CacheConfig{Driver: config.CacheDriverMemory, SessionMaxEntries: 2}},
		Clock:  clock.NewFakeClock(day(2024, 7, 1)),
		Log:    zap.NewNop(),
	})
	ctx := context.Background()

	first, err := svc.Create(ctx)
	require.NoError(t, err)
	second, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(ctx, second.ID)
	assert.NoError(t, err)
}

func TestSessionValidation(t *testing.T) {
	svc := newMemoryService()
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-a-ulid")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Get(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	state, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.SetViewport(ctx, state.ID, "pickup-data", Viewport{Start: day(2024, 3, 1), End: day(2024, 2, 1)})
	assert.ErrorIs(t, err, ErrInvalidViewport)

	_, err = svc.SetYear(ctx, state.ID, "pickup-data", "next")
	assert.ErrorIs(t, err, heatmap.ErrInvalidYear)
}

func TestSessionsPersistInRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	params := Params{
		Config: config.Config{Cache: config.CacheConfig{Driver: config.CacheDriverRedis, KeyPrefix: "rateboard"}},
		Redis:  client,
		Clock:  clock.NewFakeClock(day(2024, 7, 1)),
		Log:    zap.NewNop(),
	}
	ctx := context.Background()

	first := NewService(params)
	state, err := first.Create(ctx)
	require.NoError(t, err)
	_, err = first.SetYear(ctx, state.ID, "pickup-data", heatmap.YearPrevious)
	require.NoError(t, err)

	second := NewService(params)
	loaded, err := second.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, heatmap.YearPrevious, loaded.Tab("pickup-data").Year)
	assert.Len(t, srv.Keys(), 1)
}

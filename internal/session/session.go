// Package session keeps per-user dashboard state between requests: the last
// viewport of every dataset tab and which year each tab shows.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/rateboard/internal/cache"
	"github.com/smallbiznis/rateboard/internal/clock"
	"github.com/smallbiznis/rateboard/internal/config"
	heatmap "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// defaultMaxSessions applies when the config leaves the memory cap unset.
const defaultMaxSessions = 100000

var (
	ErrSessionNotFound = errors.New("session_not_found")
	ErrInvalidViewport = errors.New("invalid_viewport")
)

// Viewport is the visible date window of a tab.
type Viewport struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Tab struct {
	Viewport *Viewport        `json:"viewport,omitempty"`
	Year     heatmap.YearMode `json:"year"`
}

type State struct {
	ID        string         `json:"id"`
	Tabs      map[string]Tab `json:"tabs"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TabKey is the key a dataset's tab is stored under. Display names and
// slugs of the same dataset share one tab.
func TabKey(dataset string) string {
	return slug.Make(dataset)
}

// Tab returns the stored tab for a dataset, or the default current-year tab.
func (s *State) Tab(dataset string) Tab {
	if t, ok := s.Tabs[TabKey(dataset)]; ok {
		if t.Year == "" {
			t.Year = heatmap.YearCurrent
		}
		return t
	}
	return Tab{Year: heatmap.YearCurrent}
}

type Params struct {
	fx.In

	Config config.Config
	Redis  *redis.Client `optional:"true"`
	Clock  clock.Clock
	Log    *zap.Logger
}

type Service struct {
	mu    sync.Mutex
	store cache.Cache[State]
	clock clock.Clock
	log   *zap.Logger
}

// NewService stores sessions in redis when configured. In memory the oldest
// sessions are evicted past Cache.SessionMaxEntries and read as not found.
func NewService(p Params) *Service {
	limit := p.Config.Cache.SessionMaxEntries
	if limit <= 0 {
		limit = defaultMaxSessions
	}
	return &Service{
		store: cache.NewWithLimit[State](p.Config, p.Redis, "session", limit, p.Log),
		clock: p.Clock,
		log:   p.Log.Named("session"),
	}
}

func (s *Service) Create(ctx context.Context) (*State, error) {
	now := s.clock.Now(ctx)
	state := State{
		ID:        ulid.Make().String(),
		Tabs:      map[string]Tab{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Set(ctx, state.ID, state)
	return &state, nil
}

func (s *Service) Get(ctx context.Context, id string) (*State, error) {
	id = strings.TrimSpace(id)
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, ErrSessionNotFound
	}
	state, ok := s.store.Get(ctx, id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if state.Tabs == nil {
		state.Tabs = map[string]Tab{}
	}
	return &state, nil
}

// SetViewport stores the window for a tab and leaves its year untouched.
func (s *Service) SetViewport(ctx context.Context, id, dataset string, vp Viewport) (*State, error) {
	if vp.Start.IsZero() || vp.End.IsZero() || vp.Start.After(vp.End) {
		return nil, ErrInvalidViewport
	}
	return s.update(ctx, id, dataset, func(t *Tab) {
		t.Viewport = &Viewport{Start: vp.Start, End: vp.End}
	})
}

// SetYear switches a tab between the current and previous year. The
// viewport is kept so the same window is shown for the other year.
func (s *Service) SetYear(ctx context.Context, id, dataset string, year heatmap.YearMode) (*State, error) {
	if year != heatmap.YearCurrent && year != heatmap.YearPrevious {
		return nil, heatmap.ErrInvalidYear
	}
	return s.update(ctx, id, dataset, func(t *Tab) {
		t.Year = year
	})
}

func (s *Service) update(ctx context.Context, id, dataset string, apply func(*Tab)) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tab := state.Tab(dataset)
	apply(&tab)
	state.Tabs[TabKey(dataset)] = tab
	state.UpdatedAt = s.clock.Now(ctx)
	s.store.Set(ctx, state.ID, *state)
	return state, nil
}

package authorization

import (
	"context"
	"errors"
)

const (
	ObjectHeatmap  = "heatmap"
	ObjectSession  = "session"
	ObjectMismatch = "mismatch"
)

const (
	ActionView    = "view"
	ActionManage  = "manage"
	ActionAnalyze = "analyze"
)

const (
	RoleViewer  = "viewer"
	RoleAnalyst = "analyst"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidActor    = errors.New("invalid_actor")
	ErrInvalidRole     = errors.New("invalid_role")
)

type Service interface {
	// Enabled is false when no API keys are configured; every request is
	// then allowed as the local actor.
	Enabled() bool
	Authenticate(ctx context.Context, apiKey string) (string, error)
	Authorize(ctx context.Context, actor, object, action string) error
}

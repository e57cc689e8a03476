package ratemismatch

import (
	"github.com/smallbiznis/rateboard/internal/ratemismatch/repository"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/service"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/snapshot"
	"go.uber.org/fx"
)

var Module = fx.Module("ratemismatch.service",
	fx.Provide(repository.New),
	fx.Provide(repository.NewRunRepository),
	fx.Provide(snapshot.New),
	fx.Provide(service.NewService),
)

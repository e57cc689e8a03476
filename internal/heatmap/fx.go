package heatmap

import (
	"github.com/smallbiznis/rateboard/internal/heatmap/dataset"
	"github.com/smallbiznis/rateboard/internal/heatmap/service"
	"go.uber.org/fx"
)

var Module = fx.Module("heatmap.service",
	fx.Provide(dataset.NewRegistry),
	fx.Provide(service.NewService),
)

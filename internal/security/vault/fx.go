package vault

import (
	"github.com/smallbiznis/rateboard/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("security.vault",
	fx.Provide(
		func(cfg config.Config) (Provider, error) {
			return NewFactory(Config{Provider: cfg.Vault.Provider, Key: cfg.Vault.Key})
		},
		NewResolver,
	),
)

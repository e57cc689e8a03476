package db

import (
	"context"

	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/security/vault"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SourceDB is the read-only hotel reporting database.
type SourceDB struct {
	*gorm.DB
}

var Module = fx.Module("db",
	fx.Provide(
		NewAppDB,
		NewSourceDB,
	),
)

func NewAppDB(lc fx.Lifecycle, cfg config.Config) (*gorm.DB, error) {
	conn, err := Open(AppConfig(cfg))
	if err != nil {
		return nil, err
	}
	registerClose(lc, conn)
	return conn, nil
}

func NewSourceDB(lc fx.Lifecycle, cfg config.Config, secrets vault.SecretResolver, log *zap.Logger) (*SourceDB, error) {
	password, err := secrets.Resolve(vault.SecretRef{
		Name:      "source database password",
		Plain:     cfg.Source.Password,
		Encrypted: cfg.Source.PasswordEncrypted,
		File:      cfg.Source.PasswordFile,
	})
	if err != nil {
		return nil, err
	}
	if password == "" {
		log.Warn("source database password is empty; analyses will rely on the snapshot file")
	}

	conn, err := Open(SourceConfig(cfg, password))
	if err != nil {
		return nil, err
	}
	registerClose(lc, conn)
	return &SourceDB{DB: conn}, nil
}

func registerClose(lc fx.Lifecycle, conn *gorm.DB) {
	if lc == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
}

package db

import (
	"strings"

	"github.com/smallbiznis/rateboard/internal/config"
)

type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int

	// Metrics label for the gorm prometheus plugin. Empty disables the plugin.
	MetricsName string
	// Lazy skips the connect-time ping so the process can start while the
	// database is unreachable; failures surface on the first query instead.
	Lazy bool
}

// AppConfig maps the app store settings.
func AppConfig(cfg config.Config) Config {
	return Config{
		Type:            strings.ToLower(strings.TrimSpace(cfg.DBType)),
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		MetricsName:     "app",
	}
}

// SourceConfig maps the hotel reporting database settings. The password is
// resolved separately and never read from Config directly.
func SourceConfig(cfg config.Config, password string) Config {
	return Config{
		Type:            "postgres",
		Host:            cfg.Source.Host,
		Port:            cfg.Source.Port,
		Name:            cfg.Source.Name,
		User:            cfg.Source.User,
		Password:        password,
		SSLMode:         cfg.Source.SSLMode,
		MaxIdleConn:     1,
		MaxOpenConn:     2,
		ConnMaxLifetime: 300,
		ConnMaxIdleTime: 60,
		MetricsName:     "source",
		Lazy:            true,
	}
}

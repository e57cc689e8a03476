package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	// App store: analysis run history and authorization policies.
	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Source SourceConfig
	Vault  VaultConfig
	Cache  CacheConfig

	SnapshotPath string
	DataDir      string

	// APIKeys is a comma separated list of key:role pairs. Empty disables auth.
	APIKeys string
}

// SourceConfig points at the read-only hotel reporting database.
type SourceConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	SSLMode string

	// Only one of the password sources is needed; the file wins, then the
	// encrypted value, then the plain value.
	Password          string
	PasswordEncrypted string
	PasswordFile      string

	QueryTimeoutSeconds int
}

type VaultConfig struct {
	Provider string
	Key      string
}

type CacheConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	// SessionMaxEntries caps sessions held in process memory. Redis is unbounded.
	SessionMaxEntries int
}

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "rateboard"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "rateboard"),
		DBUser:            getenv("DATABASE_USER", "rateboard"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Source: SourceConfig{
			Host:                getenv("SOURCE_DB_HOST", "localhost"),
			Port:                getenv("SOURCE_DB_PORT", "5432"),
			Name:                getenv("SOURCE_DB_NAME", "postgres"),
			User:                getenv("SOURCE_DB_USER", "postgres"),
			SSLMode:             getenv("SOURCE_DB_SSLMODE", "require"),
			Password:            os.Getenv("SOURCE_DB_PASSWORD"),
			PasswordEncrypted:   strings.TrimSpace(os.Getenv("SOURCE_DB_PASSWORD_ENCRYPTED")),
			PasswordFile:        strings.TrimSpace(os.Getenv("SOURCE_DB_PASSWORD_FILE")),
			QueryTimeoutSeconds: getenvInt("SOURCE_DB_QUERY_TIMEOUT", 120),
		},
		Vault: VaultConfig{
			Provider: strings.ToLower(getenv("VAULT_PROVIDER", "aes")),
			Key:      strings.TrimSpace(os.Getenv("VAULT_KEY")),
		},
		Cache: CacheConfig{
			Driver:            normalizeCacheDriver(getenv("CACHE_DRIVER", CacheDriverMemory)),
			RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:     os.Getenv("REDIS_PASSWORD"),
			RedisDB:           getenvInt("REDIS_DB", 0),
			KeyPrefix:         getenv("CACHE_KEY_PREFIX", "rateboard"),
			SessionMaxEntries: getenvInt("CACHE_SESSION_MAX_ENTRIES", 100000),
		},

		SnapshotPath: getenv("SNAPSHOT_PATH", "data/mismatch_snapshot.csv"),
		DataDir:      getenv("DATA_DIR", "data"),
		APIKeys:      strings.TrimSpace(os.Getenv("RATEBOARD_API_KEYS")),
	}

	return cfg
}

func normalizeCacheDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case CacheDriverRedis:
		return CacheDriverRedis
	default:
		return CacheDriverMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

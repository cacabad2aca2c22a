package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Engine   EngineConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// ServiceAccount is a config-defined caller identity. SecretHash is a
// bcrypt hash of the shared secret.
type ServiceAccount struct {
	ID         string
	Role       string
	SecretHash string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	Accounts              []ServiceAccount
}

// EngineConfig tunes the lifecycle engine glue.
type EngineConfig struct {
	HookTimeoutSeconds        int
	SnapshotCacheTTLSeconds   int
	BreachScanIntervalSeconds int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	accounts, err := parseServiceAccounts(os.Getenv("AUTH_SERVICE_ACCOUNTS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-lifecycle-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			Accounts:              accounts,
		},
		Engine: EngineConfig{
			HookTimeoutSeconds:        getEnvAsInt("ENGINE_HOOK_TIMEOUT_SECONDS", 5),
			SnapshotCacheTTLSeconds:   getEnvAsInt("ENGINE_SNAPSHOT_CACHE_TTL_SECONDS", 300),
			BreachScanIntervalSeconds: getEnvAsInt("ENGINE_BREACH_SCAN_INTERVAL_SECONDS", 60),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// HookTimeout returns the per-hook call bound.
func (e EngineConfig) HookTimeout() time.Duration {
	if e.HookTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(e.HookTimeoutSeconds) * time.Second
}

// SnapshotCacheTTL returns the snapshot cache entry lifetime.
func (e EngineConfig) SnapshotCacheTTL() time.Duration {
	if e.SnapshotCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(e.SnapshotCacheTTLSeconds) * time.Second
}

// BreachScanInterval returns the SLA monitor scan cadence.
func (e EngineConfig) BreachScanInterval() time.Duration {
	if e.BreachScanIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(e.BreachScanIntervalSeconds) * time.Second
}

// parseServiceAccounts parses "id:role:bcrypt-hash" entries separated by
// commas. Bcrypt hashes contain no commas or colons beyond their "$"
// separators, so the simple split is safe.
func parseServiceAccounts(raw string) ([]ServiceAccount, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var accounts []ServiceAccount
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid AUTH_SERVICE_ACCOUNTS entry %q (want id:role:hash)", entry)
		}
		accounts = append(accounts, ServiceAccount{ID: parts[0], Role: parts[1], SecretHash: parts[2]})
	}
	return accounts, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	ExportBackendLocal = "local"
	ExportBackendMinIO = "minio"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Optimizer OptimizerConfig
	Upstream  UpstreamConfig
	Sessions  SessionConfig
	Cache     CacheConfig
	Events    EventsConfig
	Exports   ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the local solver and the fallback chain.
type SchedulerConfig struct {
	DefaultStrategy   string
	SolveTimeout      time.Duration
	MaxBacktrackNodes int
	AnnealingSeed     int64
	MaxRepairPasses   int
	EnhancementPasses int
}

// OptimizerConfig configures the external optimizer delegate.
type OptimizerConfig struct {
	Enabled          bool
	URL              string
	Timeout          time.Duration
	MaxRetries       int
	BreakerFailures  int
	BreakerOpenDelay time.Duration
}

// UpstreamConfig points at the course/room/preference data services.
type UpstreamConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// SessionConfig governs in-process tracking of scheduling sessions.
type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// CacheConfig governs Redis caching of conflict analyses.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// EventsConfig configures lifecycle notifications.
type EventsConfig struct {
	Enabled    bool
	Channel    string
	Workers    int
	MaxRetries int
}

// ExportsConfig selects where rendered schedules are stored.
type ExportsConfig struct {
	Backend        string
	StorageDir     string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	URLTTL         time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		DefaultStrategy:   strings.ToUpper(v.GetString("SCHEDULER_DEFAULT_STRATEGY")),
		SolveTimeout:      parseDuration(v.GetString("SCHEDULER_SOLVE_TIMEOUT"), 2*time.Minute),
		MaxBacktrackNodes: v.GetInt("SCHEDULER_MAX_BACKTRACK_NODES"),
		AnnealingSeed:     v.GetInt64("SCHEDULER_ANNEALING_SEED"),
		MaxRepairPasses:   v.GetInt("SCHEDULER_MAX_REPAIR_PASSES"),
		EnhancementPasses: v.GetInt("SCHEDULER_ENHANCEMENT_PASSES"),
	}

	cfg.Optimizer = OptimizerConfig{
		Enabled:          v.GetBool("ENABLE_OPTIMIZER"),
		URL:              v.GetString("OPTIMIZER_URL"),
		Timeout:          parseDuration(v.GetString("OPTIMIZER_TIMEOUT"), 30*time.Second),
		MaxRetries:       v.GetInt("OPTIMIZER_MAX_RETRIES"),
		BreakerFailures:  v.GetInt("OPTIMIZER_BREAKER_FAILURES"),
		BreakerOpenDelay: parseDuration(v.GetString("OPTIMIZER_BREAKER_OPEN_DELAY"), time.Minute),
	}

	cfg.Upstream = UpstreamConfig{
		Enabled: v.GetBool("ENABLE_UPSTREAM_DATA"),
		BaseURL: strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 30*time.Second),
	}

	cfg.Sessions = SessionConfig{
		TTL:             parseDuration(v.GetString("SESSION_TTL"), 2*time.Hour),
		CleanupInterval: parseDuration(v.GetString("SESSION_CLEANUP_INTERVAL"), 10*time.Minute),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CONFLICT_CACHE"),
		TTL:     parseDuration(v.GetString("CONFLICT_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Events = EventsConfig{
		Enabled:    v.GetBool("ENABLE_EVENTS"),
		Channel:    v.GetString("EVENTS_CHANNEL"),
		Workers:    v.GetInt("EVENTS_WORKERS"),
		MaxRetries: v.GetInt("EVENTS_MAX_RETRIES"),
	}

	cfg.Exports = ExportsConfig{
		Backend:        strings.ToLower(v.GetString("EXPORTS_BACKEND")),
		StorageDir:     v.GetString("EXPORTS_STORAGE_DIR"),
		MinIOEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinIOAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinIOSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinIOBucket:    v.GetString("MINIO_BUCKET"),
		MinIOUseSSL:    v.GetBool("MINIO_USE_SSL"),
		URLTTL:         parseDuration(v.GetString("EXPORTS_URL_TTL"), time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "exam_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_DEFAULT_STRATEGY", "HYBRID")
	v.SetDefault("SCHEDULER_SOLVE_TIMEOUT", "2m")
	v.SetDefault("SCHEDULER_MAX_BACKTRACK_NODES", 50000)
	v.SetDefault("SCHEDULER_ANNEALING_SEED", 0)
	v.SetDefault("SCHEDULER_MAX_REPAIR_PASSES", 100)
	v.SetDefault("SCHEDULER_ENHANCEMENT_PASSES", 3)

	v.SetDefault("ENABLE_OPTIMIZER", false)
	v.SetDefault("OPTIMIZER_URL", "http://localhost:9000/optimize")
	v.SetDefault("OPTIMIZER_TIMEOUT", "30s")
	v.SetDefault("OPTIMIZER_MAX_RETRIES", 2)
	v.SetDefault("OPTIMIZER_BREAKER_FAILURES", 5)
	v.SetDefault("OPTIMIZER_BREAKER_OPEN_DELAY", "1m")

	v.SetDefault("ENABLE_UPSTREAM_DATA", false)
	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:9100")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")

	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("SESSION_CLEANUP_INTERVAL", "10m")

	v.SetDefault("ENABLE_CONFLICT_CACHE", false)
	v.SetDefault("CONFLICT_CACHE_TTL", "15m")

	v.SetDefault("ENABLE_EVENTS", false)
	v.SetDefault("EVENTS_CHANNEL", "exam-scheduling.events")
	v.SetDefault("EVENTS_WORKERS", 1)
	v.SetDefault("EVENTS_MAX_RETRIES", 3)

	v.SetDefault("EXPORTS_BACKEND", ExportBackendLocal)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9002")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "exam-schedules")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("EXPORTS_URL_TTL", "1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

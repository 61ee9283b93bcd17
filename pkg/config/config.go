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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Results  ResultsConfig
	Exports  ExportsConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// ResultsConfig drives the result computation engine.
type ResultsConfig struct {
	// Policy is one of auto, weighted or average.
	Policy string
	// GradeTable selects a named boundary preset (standard or legacy).
	GradeTable string
	// Boundaries overrides GradeTable when set, e.g. "A:85,A-:80,F:0".
	Boundaries      string
	PassMark        float64
	BatchTimeout    time.Duration
	BatchWorkers    int
	AutoRecalculate bool
	RecalcWorkers   int
	RecalcRetries   int
	CacheEnabled    bool
	CacheTTL        time.Duration
}

// ExportsConfig tunes result exports.
type ExportsConfig struct {
	MaxRows           int
	SnapshotDir       string
	SnapshotRetention time.Duration
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	workers := v.GetInt("RESULTS_BATCH_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Results = ResultsConfig{
		Policy:          strings.ToLower(strings.TrimSpace(v.GetString("RESULTS_POLICY"))),
		GradeTable:      strings.ToLower(strings.TrimSpace(v.GetString("RESULTS_GRADE_TABLE"))),
		Boundaries:      v.GetString("RESULTS_GRADE_BOUNDARIES"),
		PassMark:        v.GetFloat64("RESULTS_PASS_MARK"),
		BatchTimeout:    parseDuration(v.GetString("RESULTS_BATCH_TIMEOUT"), 2*time.Minute),
		BatchWorkers:    workers,
		AutoRecalculate: v.GetBool("RESULTS_AUTO_RECALCULATE"),
		RecalcWorkers:   v.GetInt("RESULTS_RECALC_WORKERS"),
		RecalcRetries:   v.GetInt("RESULTS_RECALC_RETRIES"),
		CacheEnabled:    v.GetBool("RESULTS_CACHE_ENABLED"),
		CacheTTL:        parseDuration(v.GetString("RESULTS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		MaxRows:           v.GetInt("EXPORT_MAX_ROWS"),
		SnapshotDir:       v.GetString("EXPORT_SNAPSHOT_DIR"),
		SnapshotRetention: parseDuration(v.GetString("EXPORT_SNAPSHOT_RETENTION"), 30*24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academic_records")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "academic-results-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ENABLE_METRICS", true)

	v.SetDefault("RESULTS_POLICY", "auto")
	v.SetDefault("RESULTS_GRADE_TABLE", "standard")
	v.SetDefault("RESULTS_GRADE_BOUNDARIES", "")
	v.SetDefault("RESULTS_PASS_MARK", 50)
	v.SetDefault("RESULTS_BATCH_TIMEOUT", "2m")
	v.SetDefault("RESULTS_BATCH_WORKERS", 4)
	v.SetDefault("RESULTS_AUTO_RECALCULATE", true)
	v.SetDefault("RESULTS_RECALC_WORKERS", 2)
	v.SetDefault("RESULTS_RECALC_RETRIES", 3)
	v.SetDefault("RESULTS_CACHE_ENABLED", false)
	v.SetDefault("RESULTS_CACHE_TTL", "5m")

	v.SetDefault("EXPORT_MAX_ROWS", 5000)
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

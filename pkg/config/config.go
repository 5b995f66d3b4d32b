package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the engine's full runtime configuration, loaded once at
// process start. Every ambient concern (HTTP, storage, cache, auth,
// logging) gets a section; there is no per-tenant feature-flag surface
// here since this service has a single job.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Jobs      JobsConfig
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

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds the engine's own tunables: GenerateRequest
// bounds (spec.md 6) and the GA Optimizer's default knobs (spec.md
// 4.7), both overridable per-request but given process-wide defaults
// here.
type SchedulerConfig struct {
	DefaultNumSolutions   int
	DefaultTimeoutSeconds int
	GAPopulationSize      int
	GAGenerations         int
	GAElitism             int
	GATournamentSize      int
	GACrossoverRate       float64
	GAMutationRate        float64
	GAMaxRepairOps        int
	GAPatience            int
	GAWorkers             int
	FitnessCacheTTL       time.Duration
}

// JobsConfig governs the async worker pool Generate calls run on
// (spec.md 5's "off the request-serving event loop" requirement).
type JobsConfig struct {
	Workers    int
	QueueDepth int
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
		if !errors.As(err, &notFound) {
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		DefaultNumSolutions:   v.GetInt("SCHEDULER_DEFAULT_NUM_SOLUTIONS"),
		DefaultTimeoutSeconds: v.GetInt("SCHEDULER_DEFAULT_TIMEOUT_SECONDS"),
		GAPopulationSize:      v.GetInt("GA_POPULATION_SIZE"),
		GAGenerations:         v.GetInt("GA_GENERATIONS"),
		GAElitism:             v.GetInt("GA_ELITISM"),
		GATournamentSize:      v.GetInt("GA_TOURNAMENT_SIZE"),
		GACrossoverRate:       v.GetFloat64("GA_CROSSOVER_RATE"),
		GAMutationRate:        v.GetFloat64("GA_MUTATION_RATE"),
		GAMaxRepairOps:        v.GetInt("GA_MAX_REPAIR_OPS"),
		GAPatience:            v.GetInt("GA_PATIENCE"),
		GAWorkers:             v.GetInt("GA_WORKERS"),
		FitnessCacheTTL:       parseDuration(v.GetString("GA_FITNESS_CACHE_TTL"), time.Hour),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		QueueDepth: v.GetInt("JOBS_QUEUE_DEPTH"),
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
	v.SetDefault("DB_NAME", "timetable_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_DEFAULT_NUM_SOLUTIONS", 3)
	v.SetDefault("SCHEDULER_DEFAULT_TIMEOUT_SECONDS", 60)
	v.SetDefault("GA_POPULATION_SIZE", 20)
	v.SetDefault("GA_GENERATIONS", 50)
	v.SetDefault("GA_ELITISM", 2)
	v.SetDefault("GA_TOURNAMENT_SIZE", 3)
	v.SetDefault("GA_CROSSOVER_RATE", 0.7)
	v.SetDefault("GA_MUTATION_RATE", 0.15)
	v.SetDefault("GA_MAX_REPAIR_OPS", 20)
	v.SetDefault("GA_PATIENCE", 10)
	v.SetDefault("GA_WORKERS", 4)
	v.SetDefault("GA_FITNESS_CACHE_TTL", "1h")

	v.SetDefault("JOBS_WORKERS", 4)
	v.SetDefault("JOBS_QUEUE_DEPTH", 64)
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

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// MLB StatsAPI (schedule, people, win probability)
	StatsAPIBaseURL string        `envconfig:"STATSAPI_BASE_URL" default:"https://statsapi.mlb.com"`
	StatsAPITimeout time.Duration `envconfig:"STATSAPI_TIMEOUT" default:"10s"`

	// Baseball Savant (pitch export, gf clip feed)
	SavantBaseURL    string        `envconfig:"SAVANT_BASE_URL" default:"https://baseballsavant.mlb.com"`
	SavantExportPath string        `envconfig:"SAVANT_EXPORT_PATH" default:"statcast_search/csv"`
	SavantTimeout    time.Duration `envconfig:"SAVANT_TIMEOUT" default:"20s"`
	ClipFeedTimeout  time.Duration `envconfig:"CLIP_FEED_TIMEOUT" default:"15s"`
	ClipFeedAttempts int           `envconfig:"CLIP_FEED_ATTEMPTS" default:"3"`
	ClipFeedBackoff  time.Duration `envconfig:"CLIP_FEED_BACKOFF" default:"2s"`
	ClipBaseURL      string        `envconfig:"CLIP_BASE_URL" default:"https://fastball-clips.mlb.com"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"game_log"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"postgres"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (optional shared lookup cache)
	RedisEnabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"168h"`
	CacheMaxSize  int           `envconfig:"CACHE_MAX_SIZE" default:"10000"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Pipeline
	ReferenceTeam     string        `envconfig:"REFERENCE_TEAM" default:"BOS"`
	GameDelay         time.Duration `envconfig:"GAME_DELAY" default:"0s"`
	IncludeSuspectWPA bool          `envconfig:"INCLUDE_SUSPECT_WPA" default:"false"`
	ExportDir         string        `envconfig:"EXPORT_DIR" default:"web/public"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"false"`
	NightlyRefreshCron string `envconfig:"NIGHTLY_REFRESH_CRON" default:"0 6 * * *"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.ClipFeedAttempts < 1 {
		return fmt.Errorf("CLIP_FEED_ATTEMPTS must be at least 1, got %d", c.ClipFeedAttempts)
	}

	if len(c.ReferenceTeam) < 2 || len(c.ReferenceTeam) > 3 {
		return fmt.Errorf("REFERENCE_TEAM must be a team abbreviation, got %q", c.ReferenceTeam)
	}

	if c.StatsAPITimeout <= 0 || c.SavantTimeout <= 0 || c.ClipFeedTimeout <= 0 {
		return fmt.Errorf("upstream timeouts must be positive")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

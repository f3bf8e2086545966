package config

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	LogSQL      bool   `mapstructure:"LOG_SQL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`

	ClerkSecretKey     string `mapstructure:"CLERK_SECRET_KEY"`
	ClerkWebhookSecret string `mapstructure:"CLERK_WEBHOOK_SECRET"`

	AccessSecret  string        `mapstructure:"ACCESS_SECRET"`
	RefreshSecret string        `mapstructure:"REFRESH_SECRET"`
	AccessTTL     time.Duration `mapstructure:"ACCESS_TTL"`
	RefreshTTL    time.Duration `mapstructure:"REFRESH_TTL"`
	SignInURL     string        `mapstructure:"SIGN_IN_URL"`

	MetricsUser string `mapstructure:"METRICS_USER"`
	MetricsPass string `mapstructure:"METRICS_PASS"`
	PprofSecret string `mapstructure:"PPROF_SECRET"`
	SeedSecret  string `mapstructure:"SEED_SECRET"`

	FCMCredentialsFile string `mapstructure:"FCM_CREDENTIALS_FILE"`

	Timezone           string        `mapstructure:"TIMEZONE"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	CatalogCacheTTL    time.Duration `mapstructure:"CATALOG_CACHE_TTL"`
	WizardTTL          time.Duration `mapstructure:"WIZARD_TTL"`
	DetailFetchTimeout time.Duration `mapstructure:"DETAIL_FETCH_TIMEOUT"`
}

var defaults = map[string]any{
	"PORT":                 "3333",
	"DB_MAX_CONNS":         25,
	"DB_MIN_CONNS":         5,
	"LOG_SQL":              false,
	"ACCESS_TTL":           24 * time.Hour,
	"REFRESH_TTL":          7 * 24 * time.Hour,
	"SIGN_IN_URL":          "/api/v1/auth/login",
	"FCM_CREDENTIALS_FILE": "./serviceAccountKey.json",
	"TIMEZONE":             "UTC",
	"RATE_LIMIT_RPS":       5.0,
	"RATE_LIMIT_BURST":     30,
	"CATALOG_CACHE_TTL":    10 * time.Minute,
	"WIZARD_TTL":           24 * time.Hour,
	"DETAIL_FETCH_TIMEOUT": 3 * time.Second,
}

var keys = []string{
	"DATABASE_URL", "REDIS_ADDR", "CLERK_SECRET_KEY", "CLERK_WEBHOOK_SECRET",
	"ACCESS_SECRET", "REFRESH_SECRET", "METRICS_USER", "METRICS_PASS",
	"PPROF_SECRET", "SEED_SECRET",
}

// Load reads an optional .env file into the environment and then builds the
// configuration from environment variables and defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Unmarshal only sees keys viper knows about, AutomaticEnv alone is not enough.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location is the time zone that defines calendar-day boundaries.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Config: unknown TIMEZONE %q, falling back to UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	return nil
}

// Validate checks what the HTTP server needs beyond the database.
func (c *Config) Validate() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("ACCESS_SECRET and REFRESH_SECRET environment variables must be set")
	}
	return nil
}

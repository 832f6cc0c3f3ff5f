// Package config builds the immutable configuration struct the rest of
// the core is constructed from. It is assembled once at process start
// from environment variables, with an optional YAML file overlay for
// deployment-specific overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Database holds connection-pool configuration for the primary store.
type Database struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Name               string `yaml:"name"`
	SSLMode            string `yaml:"ssl_mode"`
	MaxConnections     int    `yaml:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime"`
}

// Redis holds the weather-cache / rate-limit key-value store endpoint.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Weather holds the outbound weather-provider client configuration.
type Weather struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// AdminHMAC holds the shared secret for §6's admin request verification.
// ReplayWindow is loaded from the environment but is not read by the
// verifier, which uses the fixed adminauth.ReplayWindow (30s).
type AdminHMAC struct {
	Secret              string        `yaml:"secret"`
	ReplayWindow        time.Duration `yaml:"replay_window"`
}

// Features gates transitional or conservative components per spec §9.
type Features struct {
	ShadowRankingEnabled     bool `yaml:"shadow_ranking_enabled"`
	TouristCorrectionEnabled bool `yaml:"tourist_correction_enabled"`
}

// Batch holds nightly batch-job parameters.
type Batch struct {
	TrainingExtractOutputDir string `yaml:"training_extract_output_dir"`
	ScheduleCronSpec         string `yaml:"schedule_cron_spec"`
}

// Config is the full immutable process configuration.
type Config struct {
	Env           string    `yaml:"env"`
	MigrationsDir string    `yaml:"migrations_dir"`
	Database      Database  `yaml:"database"`
	Redis         Redis     `yaml:"redis"`
	Weather       Weather   `yaml:"weather"`
	AdminHMAC     AdminHMAC `yaml:"admin_hmac"`
	Features      Features  `yaml:"features"`
	Batch         Batch     `yaml:"batch"`
}

// Load builds Config from environment variables, then — if configPath is
// non-empty and the file exists — overlays values from a YAML file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
		Database: Database{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", "postgres"),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", "itinerary_core"),
			SSLMode:            getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:     getEnvInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Weather: Weather{
			BaseURL: getEnv("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			APIKey:  getEnv("WEATHER_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("WEATHER_TIMEOUT_SECONDS", 8)) * time.Second,
		},
		AdminHMAC: AdminHMAC{
			Secret:       getEnv("ADMIN_HMAC_SECRET", ""),
			ReplayWindow: time.Duration(getEnvInt("ADMIN_HMAC_REPLAY_WINDOW_SECONDS", 30)) * time.Second,
		},
		Features: Features{
			ShadowRankingEnabled:     getEnvBool("SHADOW_MODE_ENABLED", false),
			TouristCorrectionEnabled: getEnvBool("TOURIST_CORRECTION_ENABLED", false),
		},
		Batch: Batch{
			TrainingExtractOutputDir: getEnv("TRAINING_EXTRACT_OUTPUT_DIR", "./var/training"),
			ScheduleCronSpec:         getEnv("BATCH_SCHEDULE_CRON", "0 5 * * *"),
		},
	}

	if configPath == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			return iv
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if bv, err := strconv.ParseBool(v); err == nil {
			return bv
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`

	// strava
	StravaBaseURL      string   `toml:"strava_base_url"`
	StravaOAuthBaseURL string   `toml:"strava_oauth_base_url"`
	SyncIntervalMins   int      `toml:"sync_interval_mins"`
	SyncPageSize       int      `toml:"sync_page_size"`
	SportTypes         []string `toml:"sport_types"`

	// athlete profile, used for intensity scoring
	AthleteAge       int     `toml:"athlete_age"`
	RestingHeartRate float64 `toml:"resting_heart_rate"`
	MaxHeartRate     float64 `toml:"max_heart_rate"`
	IntensityScale   float64 `toml:"intensity_scale"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var tomlFile Toml
	if _, err := toml.DecodeFile(path, &tomlFile); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := tomlFile.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env %s missing", env)
	}

	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.StravaBaseURL == "" {
		c.StravaBaseURL = "https://www.strava.com/api/v3"
	}
	if c.StravaOAuthBaseURL == "" {
		c.StravaOAuthBaseURL = "https://www.strava.com"
	}
	if c.SyncPageSize <= 0 {
		c.SyncPageSize = 100
	}
	if len(c.SportTypes) == 0 {
		c.SportTypes = []string{"WeightTraining", "Workout"}
	}
	if c.IntensityScale <= 0 {
		c.IntensityScale = 100
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = 10
	}
}

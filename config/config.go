package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// BootstrapConfig holds the parameters of the default championship created
// on first start.
type BootstrapConfig struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Difficulty   string `json:"difficulty"`
	DurationDays uint64 `json:"duration_days"`
	XPRewardPool uint64 `json:"xp_reward_pool"`
}

// Config holds all configurable server parameters. Connection strings
// (DATABASE_URL, REDIS_ADDR) and the auth base URL come from the
// environment only and are never written to config.json.
type Config struct {
	HTTPPort          int `json:"http_port"`
	QueryLimitDefault int `json:"query_limit_default"`
	QueryLimitMax     int `json:"query_limit_max"`

	// Bootstrap configures the default tournament.
	Bootstrap BootstrapConfig `json:"bootstrap"`

	AuthBaseURL string `json:"-"`
	DatabaseURL string `json:"-"`
	RedisAddr   string `json:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		HTTPPort:          8080,
		QueryLimitDefault: 50,
		QueryLimitMax:     100,
		Bootstrap: BootstrapConfig{
			Title:        "Labyrinth Legends Championship",
			Description:  "The default championship. Run the maze, climb the board.",
			Difficulty:   "medium",
			DurationDays: 15,
			XPRewardPool: 10_000,
		},
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	// Try to load from config.json
	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	// Environment variable overrides
	overrideInt(&cfg.HTTPPort, "HTTP_PORT")
	overrideInt(&cfg.QueryLimitDefault, "QUERY_LIMIT_DEFAULT")
	overrideInt(&cfg.QueryLimitMax, "QUERY_LIMIT_MAX")
	overrideString(&cfg.Bootstrap.Title, "BOOTSTRAP_TITLE")
	overrideString(&cfg.Bootstrap.Description, "BOOTSTRAP_DESCRIPTION")
	overrideString(&cfg.Bootstrap.Difficulty, "BOOTSTRAP_DIFFICULTY")
	overrideUint64(&cfg.Bootstrap.DurationDays, "BOOTSTRAP_DURATION_DAYS")
	overrideUint64(&cfg.Bootstrap.XPRewardPool, "BOOTSTRAP_XP_REWARD_POOL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.RedisAddr, "REDIS_ADDR")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideUint64(field *uint64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

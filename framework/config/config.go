package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Inspector InspectorConfig
	Metrics   MetricsConfig
	Registry  RegistryConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
}

// IsProduction reports whether APP_ENV is "production".
func (c AppConfig) IsProduction() bool { return c.Env == "production" }

type LogConfig struct {
	Level string // debug | info | warn | error
}

type InspectorConfig struct {
	Addr    string
	Enabled bool
}

type MetricsConfig struct {
	Namespace string
}

type RegistryConfig struct {
	// DisposeTimeout bounds each async dispose during removal. Zero means no
	// bound beyond the caller's context.
	DisposeTimeout time.Duration
}

// Load reads .env (if present) and populates a Config from environment variables.
// Variables already set in the environment win over the files.
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "Fenix"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
		},
		Log: LogConfig{
			Level: env("LOG_LEVEL", "info"),
		},
		Inspector: InspectorConfig{
			Addr:    env("INSPECTOR_ADDR", ":8090"),
			Enabled: envBool("INSPECTOR_ENABLED", true),
		},
		Metrics: MetricsConfig{
			Namespace: env("METRICS_NAMESPACE", "fenix"),
		},
		Registry: RegistryConfig{
			DisposeTimeout: envDuration("REGISTRY_DISPOSE_TIMEOUT", 5*time.Second),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// GetDuration returns a time.Duration env value ("250ms", "5s").
func GetDuration(key string, defaultVal time.Duration) time.Duration {
	return envDuration(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

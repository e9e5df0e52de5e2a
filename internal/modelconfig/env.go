package modelconfig

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Env holds process defaults read from UTILITYFN_* variables. Command-line
// flags take precedence. An empty Store selects the build's default backend.
type Env struct {
	Store    string `env:"UTILITYFN_STORE"`
	DBPath   string `env:"UTILITYFN_DB_PATH" envDefault:"utilityfn.db"`
	LogLevel string `env:"UTILITYFN_LOG_LEVEL" envDefault:"warn"`
	MaxDepth int    `env:"UTILITYFN_MAX_DEPTH" envDefault:"64"`
	Workers  int    `env:"UTILITYFN_WORKERS" envDefault:"4"`
}

func LoadEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

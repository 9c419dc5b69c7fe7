// Package logging builds the application's zap logger from configuration.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-fenix/framework/config"
)

// New returns a production logger when APP_ENV is "production" and a
// development logger otherwise, at the level named by LOG_LEVEL.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.App.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(Level(cfg.Log.Level))

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("app", cfg.App.Name)), nil
}

// Level maps a LOG_LEVEL value to a zap level. Unknown values mean info.
func Level(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Package logging builds the zap logger shared by the farm CLI and gateway.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables read by New
const (
	EnvLevel  = "LOG_LEVEL"
	EnvFormat = "LOG_FORMAT"
)

// New builds a logger from LOG_LEVEL (default info) and LOG_FORMAT
func New() (*zap.Logger, error) {
	return Build(os.Getenv(EnvLevel), os.Getenv(EnvFormat))
}

// Build returns a JSON production logger for format "json", otherwise a
// colored development logger. Unparseable levels fall back to info.
func Build(levelName, format string) (*zap.Logger, error) {
	if levelName == "" {
		levelName = "info"
	}

	var zapConfig zap.Config
	if format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}

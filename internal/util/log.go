package util

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	CTXKeyLogger contextKey = "logger"
)

// LogFromContext returns the request-scoped logger, falling back to the global logger.
func LogFromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &log.Logger
	}

	l, ok := ctx.Value(CTXKeyLogger).(zerolog.Logger)
	if !ok {
		return &log.Logger
	}

	return &l
}

// ContextWithLogger stores l in ctx for LogFromContext.
func ContextWithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, CTXKeyLogger, l)
}

func LogLevelFromString(s string) zerolog.Level {
	l, err := zerolog.ParseLevel(s)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to parse log level, defaulting to %s", zerolog.DebugLevel)
		return zerolog.DebugLevel
	}

	return l
}

// Package logging builds the process-wide zap logger.
package logging

import "go.uber.org/zap"

// New builds a zap logger for the given environment name. "production"
// yields a JSON encoder tuned for low overhead; anything else yields a
// human-readable development logger.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Must builds a logger and panics on failure — acceptable only at process
// start, mirroring the teacher's fail-fast bootstrap style.
func Must(env string) *zap.Logger {
	logger, err := New(env)
	if err != nil {
		panic(err)
	}
	return logger
}

// Package utils holds small helpers shared by handlers and services.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowThreshold is the duration above which OperationTimer warns.
const SlowThreshold = 30 * time.Second

// OperationTimer measures an operation in a defer-friendly way:
//
//	defer utils.OperationTimer("refresh_all", log)()
func OperationTimer(operation string, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		duration := time.Since(start)

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		if duration > SlowThreshold {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Msg("Slow operation detected")
		}
	}
}

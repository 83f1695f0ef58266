package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperationThreshold is the duration above which OperationTimer warns
const SlowOperationThreshold = 10 * time.Second

// OperationTimer starts timing operation and returns the function that logs the
// elapsed time. Meant to be deferred:
//
//	defer utils.OperationTimer("consolidate_all", log)()
func OperationTimer(operation string, log zerolog.Logger) func() {
	start := time.Now()

	return func() {
		elapsed := time.Since(start)

		level := zerolog.DebugLevel
		if elapsed > SlowOperationThreshold {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).
			Str("operation", operation).
			Dur("elapsed", elapsed).
			Bool("slow", elapsed > SlowOperationThreshold).
			Msg("Operation finished")
	}
}

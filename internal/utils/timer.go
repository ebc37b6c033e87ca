// Package utils holds small helpers shared by the report pipeline.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowStage is the duration above which a stage is logged as a warning.
const SlowStage = 30 * time.Second

// StageTimer returns a function that logs how long a pipeline stage took and
// returns that duration.
//
//	done := utils.StageTimer("extract", log)
//	...
//	done()
func StageTimer(stage string, log zerolog.Logger) func() time.Duration {
	start := time.Now()

	return func() time.Duration {
		d := time.Since(start)
		event := log.Debug()
		if d > SlowStage {
			event = log.Warn()
		}
		event.Str("stage", stage).Dur("duration", d).Msg("Stage completed")
		return d
	}
}

package monument

import "time"

// wallClockNanos is the production implementation of PipelineEnv.Clock;
// tests inject WithClock(func() int64 { return fixed }) for determinism
// instead of depending on wall time.
func wallClockNanos() int64 {
	return time.Now().UnixNano()
}

// Package mclock exposes a monotonic clock for measuring durations
// between events (e.g. how long a Peer stayed connected) without being
// affected by wall-clock adjustments. Adapted from the teacher's own use
// of github.com/drep-project/DREP-Chain/common/mclock in its peer-drop
// logging.
package mclock

import "time"

// AbsTime represents a monotonic point in time.
type AbsTime time.Duration

var start = time.Now()

// Now returns the current monotonic time relative to package
// initialization.
func Now() AbsTime {
	return AbsTime(time.Since(start))
}

// Sub returns the duration between two AbsTime values.
func (t AbsTime) Sub(t2 AbsTime) time.Duration {
	return time.Duration(t - t2)
}

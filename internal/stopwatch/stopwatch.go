// Package stopwatch renders the elapsed time of a running exercise.
package stopwatch

import (
	"fmt"
	"time"
)

// Zero is the display value when no exercise is running.
const Zero = "00:00:00"

// Format renders d as HH:MM:SS, truncated to whole seconds.
// Hours are not wrapped at 24 and negative durations render as zero.
func Format(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// Elapsed returns the time since start as HH:MM:SS.
// It is recomputed from the absolute start on every call so a
// client polling on any interval never accumulates drift.
func Elapsed(start *time.Time, now time.Time) string {
	if start == nil {
		return Zero
	}
	return Format(now.Sub(*start))
}

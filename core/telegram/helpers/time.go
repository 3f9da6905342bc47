package helpers

import (
	"fmt"
	"time"
)

// FormatWait renders a remaining wait as "HH:MM:SS", rounding up to the
// next second so a user never sees "00:00:00" while still blocked.
// Non-positive durations render as "0s".
func FormatWait(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

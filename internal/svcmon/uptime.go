package svcmon

import (
	"fmt"
	"time"
)

// FormatUptime renders a duration as its two largest non-zero units:
// "2d 5h", "1h 30m", or "12m". Sub-minute uptimes render as "0m".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

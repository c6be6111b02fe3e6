// Package timeutil provides shared interval parsing and formatting utilities.
package timeutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseInterval parses a polling interval. Bare numbers are seconds and may be
// fractional; anything else must be a Go duration string.
//
// Examples:
//   - "1" -> 1s
//   - "0.1" -> 100ms
//   - "250ms" -> 250ms
//   - "2s" -> 2s
func ParseInterval(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("empty interval")
	}

	if secs, err := strconv.ParseFloat(input, 64); err == nil {
		return SecondsToDuration(secs)
	}

	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q - use seconds (0.5) or a duration (500ms, 2s)", input)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", d)
	}
	return d, nil
}

// SecondsToDuration converts a fractional number of seconds to a duration.
func SecondsToDuration(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("interval must be a finite number of seconds")
	}
	if secs <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %g", secs)
	}
	if secs > math.MaxInt64/float64(time.Second) {
		return 0, fmt.Errorf("interval %g seconds is too large", secs)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// ClampInterval raises d to floor when it is below it.
func ClampInterval(d, floor time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	return d
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}

// FormatBytes converts bytes to human-readable format (e.g., "1.5 MB").
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

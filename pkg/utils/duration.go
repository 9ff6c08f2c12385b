package utils

import (
	"fmt"
	"strings"
)

// FormatDuration formats accumulated milliseconds as HH:MM:SS.
func FormatDuration(totalMS int64) string {
	totalSeconds := totalMS / 1000
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatHours renders milliseconds as decimal hours with two places.
func FormatHours(totalMS int64) string {
	return fmt.Sprintf("%.2fh", Hours(totalMS))
}

// Hours converts accumulated milliseconds to decimal hours.
func Hours(totalMS int64) float64 {
	return float64(totalMS) / float64(1000*60*60)
}

const progressBlocks = 20

// ProgressBar renders a code-block bar for a 0..1 fraction. Any non-zero
// fraction shows at least one filled block; out-of-range input is clamped.
func ProgressBar(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*progressBlocks + 0.5)
	if filled < 1 {
		filled = 1
	}
	return "```" + strings.Repeat("█", filled) + strings.Repeat("░", progressBlocks-filled) + "```"
}

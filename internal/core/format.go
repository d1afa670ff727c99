package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatDuration renders minutes as "8h 30m", "45m" or "8h".
func FormatDuration(totalMinutes int) string {
	h, m := totalMinutes/60, totalMinutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func FormatDecimalHours(totalMinutes int) string {
	return strconv.FormatFloat(float64(totalMinutes)/60, 'f', 2, 64)
}

func FormatPercent(p float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(p)))
}

// MinutesToClock renders minutes as zero-padded "HH:MM".
func MinutesToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatNumber renders n with thousands separators, e.g. 1234.5 -> "1,234.50".
func FormatNumber(n float64, decimals int) string {
	s := strconv.FormatFloat(math.Abs(n), 'f', decimals, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if n < 0 && strings.Trim(s, "0.") != "" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into seconds since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		total += n * []int{3600, 60, 1}[i]
	}
	return total, nil
}

// SecondsToClock renders seconds as "HH:MM:SS".
func SecondsToClock(sec int) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

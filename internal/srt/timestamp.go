package srt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"captioner/internal/services"
)

// maxMillis is 2^63 as a float64. Rounded millisecond counts at or above it
// do not fit in int64.
const maxMillis = float64(math.MaxInt64)

// FormatTimestamp renders an offset in seconds as HH:MM:SS,mmm. The offset is
// rounded to the nearest millisecond before it is split, so 59.9996 becomes
// 00:01:00,000 rather than an out-of-range millisecond field. Hours are not
// capped and widen past two digits for very long media.
func FormatTimestamp(seconds float64) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "", fmt.Errorf("%w: timestamp offset %v must be a finite, non-negative number of seconds", services.ErrInvalidInput, seconds)
	}
	rounded := math.Round(seconds * 1000)
	if rounded >= maxMillis {
		return "", fmt.Errorf("%w: timestamp offset %v is too large", services.ErrInvalidInput, seconds)
	}
	total := int64(rounded)
	millis := total % 1000
	whole := total / 1000
	secs := whole % 60
	minutes := (whole / 60) % 60
	hours := whole / 3600
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis), nil
}

// ParseTimestamp reads an SRT timestamp back into seconds. A period is
// accepted in place of the comma since some tools emit WebVTT-style stamps.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	clock, fraction, ok := strings.Cut(strings.ReplaceAll(value, ".", ","), ",")
	if !ok || len(fraction) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(fraction)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || secs < 0 || secs > 59 || millis < 0 {
		return 0, fmt.Errorf("timestamp %q out of range", value)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}

package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Time-of-day constants.
const (
	minutesPerHour   = 60
	secondsPerMinute = 60
	hoursPerDay      = 24
	secondsPerDay    = hoursPerDay * minutesPerHour * secondsPerMinute
)

// timeToMinutes converts an HH:MM or HH:MM:SS time-of-day string to minutes
// since midnight. Seconds are truncated.
func timeToMinutes(s string) (int, error) {
	h, m, _, err := splitTime(s)
	if err != nil {
		return 0, err
	}
	return h*minutesPerHour + m, nil
}

// timeToSeconds converts an HH:MM or HH:MM:SS time-of-day string to seconds
// since midnight.
func timeToSeconds(s string) (int, error) {
	h, m, sec, err := splitTime(s)
	if err != nil {
		return 0, err
	}
	return (h*minutesPerHour+m)*secondsPerMinute + sec, nil
}

// addSeconds returns the HH:MM:SS time-of-day at offset seconds after t,
// wrapping at midnight.
func addSeconds(t string, offset int) (string, error) {
	total, err := timeToSeconds(t)
	if err != nil {
		return "", err
	}

	total = (total + offset) % secondsPerDay
	if total < 0 {
		total += secondsPerDay
	}

	h := total / (minutesPerHour * secondsPerMinute)
	m := (total / secondsPerMinute) % minutesPerHour
	sec := total % secondsPerMinute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec), nil
}

// splitTime parses HH:MM or HH:MM:SS into components.
func splitTime(s string) (h, m, sec int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}

	h, err = strconv.Atoi(parts[0])
	if err != nil || h < 0 || h >= hoursPerDay {
		return 0, 0, 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidWindow, s)
	}
	m, err = strconv.Atoi(parts[1])
	if err != nil || m < 0 || m >= minutesPerHour {
		return 0, 0, 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidWindow, s)
	}
	if len(parts) == 3 {
		sec, err = strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec >= secondsPerMinute {
			return 0, 0, 0, fmt.Errorf("%w: bad second in %q", ErrInvalidWindow, s)
		}
	}
	return h, m, sec, nil
}

// Package timer manages persisted timers and alarms: set by duration
// or clock time, listed, cancelled, edited, and collected when they
// fire.
package timer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationPattern = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(am|pm)?$`)
)

// ParseError reports an unparseable time input. It is fed back to the
// model as plain text so it can ask the user to rephrase.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Cannot parse time: '%s'. Use duration (5m, 1h30m) or time (7:00am, 14:30)", e.Input)
}

// ParseTimeInput converts a duration ("5m", "1h30m", "90s") or a clock
// time ("7:00am", "14:30") into an absolute fire time. A clock time
// that already passed today schedules for tomorrow.
func ParseTimeInput(input string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(input))

	if m := durationPattern.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "" || m[3] != "") {
		hours, _ := strconv.Atoi(zeroIfEmpty(m[1]))
		minutes, _ := strconv.Atoi(zeroIfEmpty(m[2]))
		seconds, _ := strconv.Atoi(zeroIfEmpty(m[3]))
		d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
		return now.Add(d), nil
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return time.Time{}, &ParseError{Input: input}
		}

		switch m[3] {
		case "pm":
			if hour != 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}

		target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !target.After(now) {
			target = target.AddDate(0, 0, 1)
		}
		return target, nil
	}

	return time.Time{}, &ParseError{Input: input}
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// FormatRemaining renders the time left until fireAt for speech, e.g.
// "45s", "5m 30s", "1h 30m".
func FormatRemaining(fireAt, now time.Time) string {
	if !fireAt.After(now) {
		return "now"
	}

	total := int(fireAt.Sub(now).Seconds())
	switch {
	case total < 60:
		return fmt.Sprintf("%ds", total)
	case total < 3600:
		minutes, seconds := total/60, total%60
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		hours, minutes := total/3600, (total%3600)/60
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}

// formatClock renders a fire time like "7:05 AM".
func formatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

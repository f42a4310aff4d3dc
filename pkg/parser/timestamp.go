package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Go layouts for the two clock formats a transcript may use.
const (
	Layout12Hour = "02/01/06 3:04:05 PM"
	Layout24Hour = "02/01/06 15:04:05"
)

// ErrTimestamp is returned when a start line's timestamp fits neither layout.
var ErrTimestamp = errors.New("unparseable timestamp")

// Clock identifies which layout a timestamp was parsed with.
type Clock int

const (
	ClockUnknown Clock = iota
	Clock12Hour
	Clock24Hour
)

// String returns a short name for the clock format.
func (c Clock) String() string {
	switch c {
	case Clock12Hour:
		return "12-hour"
	case Clock24Hour:
		return "24-hour"
	default:
		return "unknown"
	}
}

// ParseTimestamp joins the captured date, time and meridiem and parses the
// result, trying the 12-hour layout before the 24-hour one.
func ParseTimestamp(date, clock, meridiem string) (time.Time, Clock, error) {
	raw := strings.TrimSpace(date + " " + clock + " " + meridiem)

	if validHour12(clock) {
		if ts, err := time.Parse(Layout12Hour, raw); err == nil {
			return ts, Clock12Hour, nil
		}
	}

	ts, err := time.Parse(Layout24Hour, raw)
	if err != nil {
		return time.Time{}, ClockUnknown, fmt.Errorf("%w %q", ErrTimestamp, raw)
	}
	return ts, Clock24Hour, nil
}

// validHour12 rejects a zero hour, which time.Parse accepts for the 12-hour
// layout but which is not a valid 12-hour clock reading.
func validHour12(clock string) bool {
	i := strings.IndexByte(clock, ':')
	if i <= 0 {
		return false
	}
	h, err := strconv.Atoi(clock[:i])
	return err == nil && h >= 1 && h <= 12
}

package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeOfDay is a wall-clock time, in seconds since midnight.
type TimeOfDay int

const (
	secondsPerDay   = 24 * 60 * 60
	timeOfDayTmpl   = "%02d:%02d:%02d"
	errTimeOfDayFmt = "expected HH:MM or HH:MM:SS"
)

var errInvalidTimeOfDay = errors.New("invalid time of day")

// Clock builds a TimeOfDay from its components.
func Clock(hour, min, sec int) TimeOfDay {
	return TimeOfDay(hour*3600 + min*60 + sec)
}

// TimeOfDayOf returns the wall-clock time of t in t's location, truncated to the second.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return Clock(h, m, s)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Wrapf(errInvalidTimeOfDay, "%q: %s", s, errTimeOfDayFmt)
	}

	limits := []int{23, 59, 59}
	vals := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return 0, errors.Wrapf(errInvalidTimeOfDay, "%q: %s", s, errTimeOfDayFmt)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, errors.Wrapf(errInvalidTimeOfDay, "%q: %s", s, errTimeOfDayFmt)
		}
		vals[i] = n
	}
	return Clock(vals[0], vals[1], vals[2]), nil
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < secondsPerDay
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

// String formats t as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf(timeOfDayTmpl, t.Hour(), t.Minute(), t.Second())
}

// On returns the instant at time t on the calendar date of `date`, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, date.Location())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	tod, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = tod
	return nil
}

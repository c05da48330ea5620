package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Weekday is a school day. Values are ISO 8601 weekday numbers: weekends cannot be represented.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

var (
	// AllWeekdays in ISO order
	AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

	weekdayInfos = map[Weekday]struct {
		name  string
		label string
		short string
	}{
		Monday:    {name: "monday", label: "Monday", short: "Mon"},
		Tuesday:   {name: "tuesday", label: "Tuesday", short: "Tue"},
		Wednesday: {name: "wednesday", label: "Wednesday", short: "Wed"},
		Thursday:  {name: "thursday", label: "Thursday", short: "Thu"},
		Friday:    {name: "friday", label: "Friday", short: "Fri"},
	}

	errInvalidWeekday = errors.New("invalid weekday")
)

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

// ISO returns the ISO 8601 weekday number (Monday = 1).
func (d Weekday) ISO() int {
	return int(d)
}

// String returns the persisted name, eg. "monday".
func (d Weekday) String() string {
	if info, ok := weekdayInfos[d]; ok {
		return info.name
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// Label returns the display name, eg. "Monday".
func (d Weekday) Label() string {
	if info, ok := weekdayInfos[d]; ok {
		return info.label
	}
	return d.String()
}

// ShortLabel returns the abbreviated display name, eg. "Mon".
func (d Weekday) ShortLabel() string {
	if info, ok := weekdayInfos[d]; ok {
		return info.short
	}
	return d.String()
}

// TimeWeekday converts d to the standard library's time.Weekday.
func (d Weekday) TimeWeekday() time.Weekday {
	return time.Weekday(int(d) % 7)
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, errInvalidWeekday
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(text []byte) error {
	wd, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = wd
	return nil
}

// ParseWeekday parses a case-insensitive weekday name ("monday") or short label ("mon").
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, info := range weekdayInfos {
		if s == info.name || s == strings.ToLower(info.short) {
			return d, nil
		}
	}
	return 0, errors.Wrapf(errInvalidWeekday, "%q", s)
}

// FromTimeWeekday converts a time.Weekday; ok is false on weekends.
func FromTimeWeekday(wd time.Weekday) (Weekday, bool) {
	d := Weekday(wd)
	return d, d.Valid()
}

// WeekdayOf returns the school day `t` falls on, in t's location; ok is false on weekends.
func WeekdayOf(t time.Time) (Weekday, bool) {
	return FromTimeWeekday(t.Weekday())
}

// isoWeekday returns the ISO 8601 weekday number of t (Monday = 1, Sunday = 7).
func isoWeekday(t time.Time) int {
	if wd := t.Weekday(); wd != time.Sunday {
		return int(wd)
	}
	return 7
}

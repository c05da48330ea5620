package schedule

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
)

var (
	ErrInvalidSchedule = errors.New("invalid schedule")

	errNoDays        = "at least one weekday is required"
	errNotSchoolDay  = "only monday to friday are allowed"
	errInvalidTime   = "invalid time, " + errTimeOfDayFmt
	errEndAfterStart = "end time must be after start time"
)

// WeeklySchedule is a recurring weekly meeting window: the same start and end times on a set of weekdays.
// It is an immutable value; editing a schedule means building a new one.
type WeeklySchedule struct {
	days  []Weekday // unique, ISO order
	start TimeOfDay
	end   TimeOfDay
}

// New validates the window and returns a *core.ValidationError naming the offending fields
// ("days", "start_time", "end_time") when it is malformed. Duplicate days are collapsed.
func New(days []Weekday, start, end TimeOfDay) (WeeklySchedule, error) {
	var flds []core.FieldError

	canon, ok := canonicalDays(days)
	if len(canon) == 0 {
		flds = append(flds, core.FieldError{Field: "days", Error: errNoDays})
	} else if !ok {
		flds = append(flds, core.FieldError{Field: "days", Error: errNotSchoolDay})
	}

	startOK, endOK := start.Valid(), end.Valid()
	if !startOK {
		flds = append(flds, core.FieldError{Field: "start_time", Error: errInvalidTime})
	}
	if !endOK {
		flds = append(flds, core.FieldError{Field: "end_time", Error: errInvalidTime})
	}
	if startOK && endOK && start >= end {
		flds = append(flds, core.FieldError{Field: "end_time", Error: errEndAfterStart})
	}

	if len(flds) > 0 {
		return WeeklySchedule{}, core.NewValidationError(ErrInvalidSchedule, flds...)
	}
	return WeeklySchedule{days: canon, start: start, end: end}, nil
}

// Parse rebuilds a schedule from its persisted form: comma-joined day names and HH:MM[:SS] times.
func Parse(days, start, end string) (WeeklySchedule, error) {
	var flds []core.FieldError

	wds, err := ParseDays(days)
	if err != nil {
		flds = append(flds, core.FieldError{Field: "days", Error: errNotSchoolDay})
	}
	startTod, err := ParseTimeOfDay(start)
	if err != nil {
		flds = append(flds, core.FieldError{Field: "start_time", Error: errInvalidTime})
	}
	endTod, err := ParseTimeOfDay(end)
	if err != nil {
		flds = append(flds, core.FieldError{Field: "end_time", Error: errInvalidTime})
	}

	if len(flds) > 0 {
		return WeeklySchedule{}, core.NewValidationError(ErrInvalidSchedule, flds...)
	}
	return New(wds, startTod, endTod)
}

// ParseDays parses a comma-joined list of weekday names.
func ParseDays(s string) ([]Weekday, error) {
	var days []Weekday
	for _, name := range strings.Split(s, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// FormatDays joins day names with commas, in ISO order.
func FormatDays(days []Weekday) string {
	canon, _ := canonicalDays(days)
	names := make([]string, 0, len(canon))
	for _, d := range canon {
		names = append(names, d.String())
	}
	return strings.Join(names, ",")
}

// canonicalDays sorts & de-duplicates days; ok is false if any of them is not a school day.
// Invalid days are dropped.
func canonicalDays(days []Weekday) (canon []Weekday, ok bool) {
	ok = true
	seen := make(map[Weekday]bool, len(days))
	canon = make([]Weekday, 0, len(days))
	for _, d := range days {
		if !d.Valid() {
			ok = false
			continue
		}
		if !seen[d] {
			seen[d] = true
			canon = append(canon, d)
		}
	}
	sort.Slice(canon, func(i, j int) bool { return canon[i] < canon[j] })
	return canon, ok
}

func (s WeeklySchedule) Days() []Weekday {
	days := make([]Weekday, len(s.days))
	copy(days, s.days)
	return days
}

func (s WeeklySchedule) Start() TimeOfDay { return s.start }
func (s WeeklySchedule) End() TimeOfDay   { return s.end }

// Duration is the length of one meeting.
func (s WeeklySchedule) Duration() time.Duration {
	return time.Duration(s.end-s.start) * time.Second
}

func (s WeeklySchedule) IsZero() bool {
	return len(s.days) == 0 && s.start == 0 && s.end == 0
}

func (s WeeklySchedule) FormatDays() string {
	return FormatDays(s.days)
}

func (s WeeklySchedule) Equal(other WeeklySchedule) bool {
	if s.start != other.start || s.end != other.end || len(s.days) != len(other.days) {
		return false
	}
	for i := range s.days {
		if s.days[i] != other.days[i] {
			return false
		}
	}
	return true
}

// HasSessionOn reports whether the window recurs on `d`.
func (s WeeklySchedule) HasSessionOn(d Weekday) bool {
	for _, day := range s.days {
		if day == d {
			return true
		}
	}
	return false
}

// IsActiveAt reports whether `t` falls inside the window: both bounds are inclusive.
func (s WeeklySchedule) IsActiveAt(t time.Time) bool {
	d, ok := WeekdayOf(t)
	if !ok || !s.HasSessionOn(d) {
		return false
	}
	tod := TimeOfDayOf(t)
	return s.start <= tod && tod <= s.end
}

// NextOccurrenceFrom returns the start of the next meeting at or after `t`, in t's location:
// later today if today's meeting has not started yet, else on the next scheduled weekday of this week,
// else on the earliest scheduled weekday of next week. ok is false only when the schedule has no days.
func (s WeeklySchedule) NextOccurrenceFrom(t time.Time) (next time.Time, ok bool) {
	if len(s.days) == 0 {
		return time.Time{}, false
	}

	if d, isSchoolDay := WeekdayOf(t); isSchoolDay && s.HasSessionOn(d) && TimeOfDayOf(t) < s.start {
		return s.start.On(t), true
	}

	today := isoWeekday(t)
	for _, d := range s.days {
		if d.ISO() > today {
			return s.start.On(t.AddDate(0, 0, d.ISO()-today)), true
		}
	}
	// wrap around to next week
	return s.start.On(t.AddDate(0, 0, 7-today+s.days[0].ISO())), true
}

type jsonSchedule struct {
	Days      []Weekday `json:"days"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}

func (s WeeklySchedule) MarshalJSON() ([]byte, error) {
	days := s.days
	if days == nil {
		days = []Weekday{}
	}
	return json.Marshal(jsonSchedule{Days: days, StartTime: s.start, EndTime: s.end})
}

func (s *WeeklySchedule) UnmarshalJSON(data []byte) error {
	var js jsonSchedule
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}
	sch, err := New(js.Days, js.StartTime, js.EndTime)
	if err != nil {
		return err
	}
	*s = sch
	return nil
}

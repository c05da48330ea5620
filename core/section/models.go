package section

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/schedule"
)

// Section is one scheduled offering of a course.
type Section struct {
	ID          string                  `json:"id"`
	CourseCode  string                  `json:"course_code"`
	Name        string                  `json:"name"`
	TeacherName string                  `json:"teacher_name"`
	Room        string                  `json:"room"`
	Capacity    int                     `json:"capacity"`
	Schedule    schedule.WeeklySchedule `json:"schedule"`
	Version     int                     `json:"version"`
	CreatedAt   time.Time               `json:"created_at"` // UTC
	UpdatedAt   time.Time               `json:"updated_at"` // UTC
}

// View is a Section as seen at a given instant.
type View struct {
	Section
	InSession bool      `json:"in_session"`
	NextClass null.Time `json:"next_class"`
}

// ViewAt evaluates the section's schedule at `now`; `now` must already be in the school's location.
func (s Section) ViewAt(now time.Time) View {
	v := View{Section: s, InSession: s.Schedule.IsActiveAt(now)}
	if next, ok := s.Schedule.NextOccurrenceFrom(now); ok {
		v.NextClass = null.TimeFrom(next)
	}
	return v
}

type (
	NewSection struct {
		CourseCode  string   `json:"course_code" validate:"required,notblank,max=32"`
		Name        string   `json:"name" validate:"required,notblank,max=255"`
		TeacherName string   `json:"teacher_name" validate:"max=255"`
		Room        string   `json:"room" validate:"max=64"`
		Capacity    int      `json:"capacity" validate:"required,min=1"`
		Days        []string `json:"days" validate:"required,weekdays"`
		StartTime   string   `json:"start_time" validate:"required,clock"`
		EndTime     string   `json:"end_time" validate:"required,clock"`
	}

	// UpdateSection is a partial update: nil fields are left untouched.
	// Schedule fields are merged with the current schedule, which is then rebuilt and validated as a whole.
	UpdateSection struct {
		CourseCode  *string   `json:"course_code" validate:"omitempty,notblank,max=32"`
		Name        *string   `json:"name" validate:"omitempty,notblank,max=255"`
		TeacherName *string   `json:"teacher_name" validate:"omitempty,max=255"`
		Room        *string   `json:"room" validate:"omitempty,max=64"`
		Capacity    *int      `json:"capacity" validate:"omitempty,min=1"`
		Days        *[]string `json:"days" validate:"omitempty,weekdays"`
		StartTime   *string   `json:"start_time" validate:"omitempty,clock"`
		EndTime     *string   `json:"end_time" validate:"omitempty,clock"`
		// Version, when set, must match the stored version.
		Version *int `json:"version"`
	}
)

func (ns *NewSection) clean() {
	ns.CourseCode = strings.ToUpper(core.CleanString(ns.CourseCode))
	ns.Name = core.CleanString(ns.Name)
	ns.TeacherName = core.CleanString(ns.TeacherName)
	ns.Room = core.CleanString(ns.Room)
	ns.Days = core.CleanStrings(ns.Days, true /* lower */)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	_, err := ns.schedule()
	return err
}

func (ns NewSection) schedule() (schedule.WeeklySchedule, error) {
	return schedule.Parse(strings.Join(ns.Days, ","), ns.StartTime, ns.EndTime)
}

func cleanPtr(s *string, fn func(string) string) {
	if s != nil {
		*s = fn(*s)
	}
}

func (us *UpdateSection) clean() {
	cleanPtr(us.CourseCode, func(s string) string { return strings.ToUpper(core.CleanString(s)) })
	cleanPtr(us.Name, func(s string) string { return core.CleanString(s) })
	cleanPtr(us.TeacherName, func(s string) string { return core.CleanString(s) })
	cleanPtr(us.Room, func(s string) string { return core.CleanString(s) })
	cleanPtr(us.StartTime, func(s string) string { return core.CleanString(s) })
	cleanPtr(us.EndTime, func(s string) string { return core.CleanString(s) })
	if us.Days != nil {
		days := core.CleanStrings(*us.Days, true /* lower */)
		us.Days = &days
	}
}

// Validate checks the update against the section it applies to.
func (us *UpdateSection) Validate(orig Section, validate *validator.Validate) error {
	us.clean()
	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.Version != nil && *us.Version != orig.Version {
		return ErrConflict
	}
	_, err := us.apply(orig)
	return err
}

// apply returns `orig` with the update merged in.
func (us UpdateSection) apply(orig Section) (Section, error) {
	sec := orig
	if us.CourseCode != nil {
		sec.CourseCode = *us.CourseCode
	}
	if us.Name != nil {
		sec.Name = *us.Name
	}
	if us.TeacherName != nil {
		sec.TeacherName = *us.TeacherName
	}
	if us.Room != nil {
		sec.Room = *us.Room
	}
	if us.Capacity != nil {
		sec.Capacity = *us.Capacity
	}

	if us.Days != nil || us.StartTime != nil || us.EndTime != nil {
		days, start, end := orig.Schedule.FormatDays(), orig.Schedule.Start().String(), orig.Schedule.End().String()
		if us.Days != nil {
			days = strings.Join(*us.Days, ",")
		}
		if us.StartTime != nil {
			start = *us.StartTime
		}
		if us.EndTime != nil {
			end = *us.EndTime
		}
		sch, err := schedule.Parse(days, start, end)
		if err != nil {
			return orig, err
		}
		sec.Schedule = sch
	}
	return sec, nil
}

type QueryFilter struct {
	CourseCode  string `query:"course_code"`
	TeacherName string `query:"teacher"`
	Day         string `query:"day"`    // weekday name
	Search      string `query:"search"` // course code, name or room
	InSession   bool   `query:"in_session"`
}

func (f *QueryFilter) Clean() {
	f.CourseCode = strings.ToUpper(core.CleanString(f.CourseCode))
	f.TeacherName = core.CleanString(f.TeacherName)
	f.Day = core.CleanString(f.Day, true /* lower */)
	if d, err := schedule.ParseWeekday(f.Day); err == nil {
		f.Day = d.String()
	} else {
		f.Day = ""
	}
	f.Search = core.CleanString(f.Search)
}

// Match reports whether `s` satisfies the stored-field criteria of the filter (InSession excluded).
func (f QueryFilter) Match(s Section) bool {
	if f.CourseCode != "" && s.CourseCode != f.CourseCode {
		return false
	}
	if f.TeacherName != "" && !strings.EqualFold(s.TeacherName, f.TeacherName) {
		return false
	}
	if f.Day != "" {
		if d, err := schedule.ParseWeekday(f.Day); err != nil || !s.Schedule.HasSessionOn(d) {
			return false
		}
	}
	if f.Search != "" {
		search := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(s.CourseCode), search) &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Room), search) {
			return false
		}
	}
	return true
}

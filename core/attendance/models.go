package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/schedule"
	"github.com/trezcool/attendance/core/section"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
	StatusExcused Status = "excused"
)

var AllStatuses = []Status{StatusPresent, StatusLate, StatusAbsent, StatusExcused}

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusExcused:
		return true
	}
	return false
}

var (
	errStudentNotFound = "student not found"
	errSectionNotFound = "section not found"
	errNoSession       = "the section does not meet on this day"
	errStatusRequired  = "this field is required when checked_in_at is not given"
)

// Attendance is the record of one student for one section on one date.
type Attendance struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	SectionID   string    `json:"section_id"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Status      Status    `json:"status"`
	CheckedInAt null.Time `json:"checked_in_at"` // UTC
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewAttendance struct {
	StudentID   string     `json:"student_id" validate:"required,uuid"`
	SectionID   string     `json:"section_id" validate:"required,uuid"`
	Date        string     `json:"date" validate:"required,datetime=2006-01-02"`
	Status      Status     `json:"status" validate:"omitempty,attstatus"`
	CheckedInAt *time.Time `json:"checked_in_at"`
	Notes       string     `json:"notes" validate:"max=1000"`
}

func (na *NewAttendance) clean() {
	na.StudentID = core.CleanString(na.StudentID, true /* lower */)
	na.SectionID = core.CleanString(na.SectionID, true /* lower */)
	na.Date = core.CleanString(na.Date)
	na.Status = Status(core.CleanString(string(na.Status), true /* lower */))
	na.Notes = core.CleanString(na.Notes)
}

// Validate cleans and validates the request, then checks that the student and the section exist and
// that the section meets on the requested date.
func (na *NewAttendance) Validate(
	ctx context.Context,
	validate *validator.Validate,
	sections section.Service,
	guardians guardian.Service,
	loc *time.Location,
) error {
	na.clean()
	if err := validate.Struct(na); err != nil {
		return err
	}
	if na.Status == "" && na.CheckedInAt == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: errStatusRequired})
	}

	if _, err := guardians.GetStudent(ctx, na.StudentID); err != nil {
		if errors.Cause(err) == guardian.ErrStudentNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: errStudentNotFound})
		}
		return errors.Wrap(err, "getting student")
	}

	sec, err := sections.Get(ctx, na.SectionID)
	if err != nil {
		if errors.Cause(err) == section.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "section_id", Error: errSectionNotFound})
		}
		return errors.Wrap(err, "getting section")
	}

	date, err := time.ParseInLocation(core.DateLayout, na.Date, loc)
	if err != nil {
		return errors.Wrap(err, "parsing date")
	}
	if wd, ok := schedule.WeekdayOf(date); !ok || !sec.Schedule.HasSessionOn(wd) {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: errNoSession})
	}
	return nil
}

type QueryFilter struct {
	SectionID string `query:"section_id"`
	StudentID string `query:"student_id"`
	Status    Status `query:"status"`
	DateFrom  string `query:"date_from"` // YYYY-MM-DD, inclusive
	DateTo    string `query:"date_to"`   // YYYY-MM-DD, inclusive
}

func (f *QueryFilter) Clean() {
	f.SectionID = core.CleanString(f.SectionID, true /* lower */)
	f.StudentID = core.CleanString(f.StudentID, true /* lower */)
	f.Status = Status(core.CleanString(string(f.Status), true /* lower */))
	if !f.Status.Valid() {
		f.Status = ""
	}
	f.DateFrom = cleanDate(f.DateFrom)
	f.DateTo = cleanDate(f.DateTo)
}

func cleanDate(s string) string {
	s = core.CleanString(s)
	if _, err := time.Parse(core.DateLayout, s); err != nil {
		return ""
	}
	return s
}

// Match reports whether `a` satisfies every set field of the filter.
// YYYY-MM-DD dates compare correctly as strings.
func (f QueryFilter) Match(a Attendance) bool {
	switch {
	case f.SectionID != "" && a.SectionID != f.SectionID,
		f.StudentID != "" && a.StudentID != f.StudentID,
		f.Status != "" && a.Status != f.Status,
		f.DateFrom != "" && a.Date < f.DateFrom,
		f.DateTo != "" && a.Date > f.DateTo:
		return false
	}
	return true
}

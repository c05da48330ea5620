package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/section"
	"github.com/trezcool/attendance/core/setting"
)

var (
	ErrNotFound = errors.New("attendance not found")
	// ErrConflict is returned when an attendance for the same student, section and date was recorded concurrently.
	ErrConflict = errors.New("attendance was recorded concurrently")
)

type (
	Repository interface {
		CreateAttendance(ctx context.Context, att Attendance, exec ...core.DBExecutor) (Attendance, error)
		GetAttendance(ctx context.Context, id string, exec ...core.DBExecutor) (Attendance, error)
		// GetAttendanceFor returns the attendance of a student for a section on a date.
		GetAttendanceFor(ctx context.Context, studentID, sectionID, date string, exec ...core.DBExecutor) (Attendance, error)
		QueryAttendances(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance, exec ...core.DBExecutor) (Attendance, error)
	}

	// Recorded is the outcome of Service.Record.
	Recorded struct {
		Attendance    Attendance                  `json:"attendance"`
		Created       bool                        `json:"created"`
		Notifications []notification.Notification `json:"notifications"`
	}

	Service interface {
		// Record creates or updates the attendance of a student for a section on a date.
		// Guardians are notified when the record is created with, or changes to, a late, absent or excused status.
		Record(ctx context.Context, na NewAttendance) (Recorded, error)
		Get(ctx context.Context, id string) (Attendance, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendance, error)
	}

	service struct {
		repo          Repository
		tx            core.Transactor
		sections      section.Service
		guardians     guardian.Service
		notifications notification.Service
		settings      setting.Service
		conf          *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(
	repo Repository,
	tx core.Transactor,
	sections section.Service,
	guardians guardian.Service,
	notifications notification.Service,
	settings setting.Service,
	conf *core.Config,
) Service {
	return &service{
		repo:          repo,
		tx:            tx,
		sections:      sections,
		guardians:     guardians,
		notifications: notifications,
		settings:      settings,
		conf:          conf,
	}
}

// DeriveStatus returns present when `checkedIn` is no later than the section start plus `threshold`
// on `date`, late otherwise.
func DeriveStatus(sec section.Section, date string, checkedIn time.Time, threshold time.Duration, loc *time.Location) (Status, error) {
	day, err := time.ParseInLocation(core.DateLayout, date, loc)
	if err != nil {
		return "", errors.Wrap(err, "parsing date")
	}
	deadline := sec.Schedule.Start().On(day).Add(threshold)
	if checkedIn.After(deadline) {
		return StatusLate, nil
	}
	return StatusPresent, nil
}

func (svc *service) Record(ctx context.Context, na NewAttendance) (Recorded, error) {
	settings, err := svc.settings.Get(ctx)
	if err != nil {
		return Recorded{}, errors.Wrap(err, "loading settings")
	}
	sec, err := svc.sections.Get(ctx, na.SectionID)
	if err != nil {
		return Recorded{}, errors.Wrap(err, "getting section")
	}
	std, err := svc.guardians.GetStudent(ctx, na.StudentID)
	if err != nil {
		return Recorded{}, errors.Wrap(err, "getting student")
	}

	status := na.Status
	var checkedIn null.Time
	if na.CheckedInAt != nil {
		checkedIn = null.TimeFrom(na.CheckedInAt.UTC())
		if status == "" {
			if status, err = DeriveStatus(sec, na.Date, *na.CheckedInAt, settings.LateThreshold(), svc.conf.Location()); err != nil {
				return Recorded{}, err
			}
		}
	}

	var rec Recorded
	err = svc.tx.WithTx(ctx, func(exec core.DBExecutor) error {
		now := core.NowFunc().UTC()
		prev, err := svc.repo.GetAttendanceFor(ctx, na.StudentID, na.SectionID, na.Date, exec)
		switch {
		case err == nil:
			att := prev
			att.Status = status
			att.CheckedInAt = checkedIn
			att.Notes = na.Notes
			att.UpdatedAt = now
			if rec.Attendance, err = svc.repo.UpdateAttendance(ctx, att, exec); err != nil {
				return errors.Wrap(err, "updating attendance")
			}
		case errors.Cause(err) == ErrNotFound:
			att := Attendance{
				StudentID:   na.StudentID,
				SectionID:   na.SectionID,
				Date:        na.Date,
				Status:      status,
				CheckedInAt: checkedIn,
				Notes:       na.Notes,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if rec.Attendance, err = svc.repo.CreateAttendance(ctx, att, exec); err != nil {
				return errors.Wrap(err, "creating attendance")
			}
			rec.Created = true
		default:
			return errors.Wrap(err, "getting attendance")
		}

		rec.Notifications = []notification.Notification{}
		if !rec.Created && prev.Status == status {
			return nil
		}
		trg := notification.Trigger{
			AttendanceID: rec.Attendance.ID,
			StudentID:    std.ID,
			StudentName:  std.Name,
			SectionName:  sec.Name,
			Date:         rec.Attendance.Date,
			Status:       string(status),
		}
		rec.Notifications, err = svc.notifications.CreateForAttendance(ctx, trg, settings, exec)
		return errors.Wrap(err, "notifying guardians")
	})
	return rec, err
}

func (svc *service) Get(ctx context.Context, id string) (Attendance, error) {
	return svc.repo.GetAttendance(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendance, error) {
	return svc.repo.QueryAttendances(ctx, filter, ordering)
}

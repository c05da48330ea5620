package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
)

var attendanceFallbackOrdering = []core.DBOrdering{{Field: "date"}, {Field: "created_at"}}
var attendanceOrderings = []string{"date", "status", "checked_in_at", "created_at", "updated_at"}

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) CreateAttendance(_ context.Context, att attendance.Attendance, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.table {
		if other.StudentID == att.StudentID && other.SectionID == att.SectionID && other.Date == att.Date {
			return attendance.Attendance{}, attendance.ErrConflict
		}
	}
	att.ID = uuid.New().String()
	repo.db.table[att.ID] = &att
	return att, nil
}

func (repo *attendanceRepository) GetAttendance(_ context.Context, id string, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if att, ok := repo.db.table[id]; ok {
		return *att, nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) GetAttendanceFor(_ context.Context, studentID, sectionID, date string, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, att := range repo.db.table {
		if att.StudentID == studentID && att.SectionID == sectionID && att.Date == date {
			return *att, nil
		}
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendances(_ context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	atts := make([]attendance.Attendance, 0, len(repo.db.table))
	for _, att := range repo.db.table {
		if filter == nil || filter.Match(*att) {
			atts = append(atts, *att)
		}
	}

	sortSlice(atts, ordering, attendanceFallbackOrdering, attendanceOrderings, func(i, j int, field string) int {
		a, b := atts[i], atts[j]
		switch field {
		case "date":
			return cmpStrings(a.Date, b.Date)
		case "status":
			return cmpStrings(string(a.Status), string(b.Status))
		case "checked_in_at":
			return cmpTimes(a.CheckedInAt.Time, b.CheckedInAt.Time)
		case "created_at":
			return cmpTimes(a.CreatedAt, b.CreatedAt)
		case "updated_at":
			return cmpTimes(a.UpdatedAt, b.UpdatedAt)
		}
		return 0
	})
	return atts, nil
}

func (repo *attendanceRepository) UpdateAttendance(_ context.Context, att attendance.Attendance, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[att.ID]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	// only the recorded fields change
	orig.Status = att.Status
	orig.CheckedInAt = att.CheckedInAt
	orig.Notes = att.Notes
	orig.UpdatedAt = att.UpdatedAt
	return *orig, nil
}

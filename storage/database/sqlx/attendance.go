package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/storage/database"
)

const attendanceColumns = "id, student_id, section_id, to_char(date, 'YYYY-MM-DD') AS date, status, checked_in_at, notes, created_at, updated_at"

var attendanceOrderings = []string{"date", "status", "checked_in_at", "created_at", "updated_at"}

type attendanceRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	SectionID   string    `db:"section_id"`
	Date        string    `db:"date"`
	Status      string    `db:"status"`
	CheckedInAt null.Time `db:"checked_in_at"`
	Notes       string    `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func packAttendance(att attendance.Attendance) attendanceRow {
	checkedIn := att.CheckedInAt
	if checkedIn.Valid {
		checkedIn.Time = checkedIn.Time.UTC()
	}
	return attendanceRow{
		ID:          att.ID,
		StudentID:   att.StudentID,
		SectionID:   att.SectionID,
		Date:        att.Date,
		Status:      string(att.Status),
		CheckedInAt: checkedIn,
		Notes:       att.Notes,
		CreatedAt:   att.CreatedAt.UTC(),
		UpdatedAt:   att.UpdatedAt.UTC(),
	}
}

func (row attendanceRow) unpack() attendance.Attendance {
	checkedIn := row.CheckedInAt
	if checkedIn.Valid {
		checkedIn.Time = checkedIn.Time.UTC()
	}
	return attendance.Attendance{
		ID:          row.ID,
		StudentID:   row.StudentID,
		SectionID:   row.SectionID,
		Date:        row.Date,
		Status:      attendance.Status(row.Status),
		CheckedInAt: checkedIn,
		Notes:       row.Notes,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	baseRepository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) *attendanceRepository {
	return &attendanceRepository{baseRepository{exec: exec}}
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	att.ID = uuid.New().String()
	q := `INSERT INTO attendance (id, student_id, section_id, date, status, checked_in_at, notes, created_at, updated_at)
		VALUES (:id, :student_id, :section_id, :date, :status, :checked_in_at, :notes, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, packAttendance(att)); err != nil {
		if database.IsUniqueViolation(err) {
			return attendance.Attendance{}, attendance.ErrConflict
		}
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return att, nil
}

func (repo attendanceRepository) GetAttendance(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Attendance, error) {
	if !validID(id) {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	var row attendanceRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+attendanceColumns+" FROM attendance WHERE id = $1", id); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance by ID")
	}
	return row.unpack(), nil
}

func (repo attendanceRepository) GetAttendanceFor(ctx context.Context, studentID, sectionID, date string, exec ...core.DBExecutor) (attendance.Attendance, error) {
	if !validID(studentID) || !validID(sectionID) {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	var row attendanceRow
	q := "SELECT " + attendanceColumns + " FROM attendance WHERE student_id = $1 AND section_id = $2 AND date = $3 FOR UPDATE"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, studentID, sectionID, date); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance")
	}
	return row.unpack(), nil
}

func (repo attendanceRepository) QueryAttendances(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.Attendance, error) {
	var conds conditions
	if filter != nil {
		if filter.SectionID != "" {
			if !validID(filter.SectionID) {
				return []attendance.Attendance{}, nil
			}
			conds.add("section_id = ?", filter.SectionID)
		}
		if filter.StudentID != "" {
			if !validID(filter.StudentID) {
				return []attendance.Attendance{}, nil
			}
			conds.add("student_id = ?", filter.StudentID)
		}
		if filter.Status != "" {
			conds.add("status = ?", string(filter.Status))
		}
		if filter.DateFrom != "" {
			conds.add("date >= ?", filter.DateFrom)
		}
		if filter.DateTo != "" {
			conds.add("date <= ?", filter.DateTo)
		}
	}

	q := "SELECT " + attendanceColumns + " FROM attendance" + conds.where() +
		orderBy(ordering, "date DESC, created_at DESC", attendanceOrderings...)

	var rows []attendanceRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendances")
	}
	atts := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		atts = append(atts, row.unpack())
	}
	return atts, nil
}

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	q := `UPDATE attendance SET status = :status, checked_in_at = :checked_in_at, notes = :notes, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, packAttendance(att))
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	if n, err := res.RowsAffected(); err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	} else if n == 0 {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	return att, nil
}

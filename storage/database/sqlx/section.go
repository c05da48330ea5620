package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/schedule"
	"github.com/trezcool/attendance/core/section"
)

const sectionColumns = "id, course_code, name, teacher_name, room, capacity, days, " +
	"to_char(start_time, 'HH24:MI:SS') AS start_time, to_char(end_time, 'HH24:MI:SS') AS end_time, " +
	"version, created_at, updated_at"

var sectionOrderings = []string{"course_code", "name", "teacher_name", "room", "capacity", "start_time", "created_at", "updated_at"}

type sectionRow struct {
	ID          string    `db:"id"`
	CourseCode  string    `db:"course_code"`
	Name        string    `db:"name"`
	TeacherName string    `db:"teacher_name"`
	Room        string    `db:"room"`
	Capacity    int       `db:"capacity"`
	Days        string    `db:"days"`
	StartTime   string    `db:"start_time"`
	EndTime     string    `db:"end_time"`
	Version     int       `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func packSection(sec section.Section) sectionRow {
	return sectionRow{
		ID:          sec.ID,
		CourseCode:  sec.CourseCode,
		Name:        sec.Name,
		TeacherName: sec.TeacherName,
		Room:        sec.Room,
		Capacity:    sec.Capacity,
		Days:        sec.Schedule.FormatDays(),
		StartTime:   sec.Schedule.Start().String(),
		EndTime:     sec.Schedule.End().String(),
		Version:     sec.Version,
		CreatedAt:   sec.CreatedAt.UTC(),
		UpdatedAt:   sec.UpdatedAt.UTC(),
	}
}

func (row sectionRow) unpack() (section.Section, error) {
	sch, err := schedule.Parse(row.Days, row.StartTime, row.EndTime)
	if err != nil {
		return section.Section{}, errors.Wrapf(err, "parsing schedule of section %s", row.ID)
	}
	return section.Section{
		ID:          row.ID,
		CourseCode:  row.CourseCode,
		Name:        row.Name,
		TeacherName: row.TeacherName,
		Room:        row.Room,
		Capacity:    row.Capacity,
		Schedule:    sch,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}, nil
}

type sectionRepository struct {
	baseRepository
}

var _ section.Repository = (*sectionRepository)(nil) // interface compliance check

func NewSectionRepository(exec core.DBExecutor) *sectionRepository {
	return &sectionRepository{baseRepository{exec: exec}}
}

func (repo sectionRepository) CreateSection(ctx context.Context, sec section.Section, exec ...core.DBExecutor) (section.Section, error) {
	sec.ID = uuid.New().String()
	q := `INSERT INTO course_section
		(id, course_code, name, teacher_name, room, capacity, days, start_time, end_time, version, created_at, updated_at)
		VALUES (:id, :course_code, :name, :teacher_name, :room, :capacity, :days, :start_time, :end_time, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, packSection(sec)); err != nil {
		return section.Section{}, errors.Wrap(err, "inserting section")
	}
	return sec, nil
}

func (repo sectionRepository) GetSection(ctx context.Context, id string, exec ...core.DBExecutor) (section.Section, error) {
	if !validID(id) {
		return section.Section{}, section.ErrNotFound
	}
	var row sectionRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+sectionColumns+" FROM course_section WHERE id = $1", id); err != nil {
		return section.Section{}, trapNoRowsErr(err, section.ErrNotFound, "finding section by ID")
	}
	return row.unpack()
}

func (repo sectionRepository) QuerySections(ctx context.Context, filter *section.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]section.Section, error) {
	var conds conditions
	if filter != nil {
		if filter.CourseCode != "" {
			conds.add("course_code = ?", filter.CourseCode)
		}
		if filter.TeacherName != "" {
			conds.add(`teacher_name ILIKE ? ESCAPE '\'`, escapeLike(filter.TeacherName))
		}
		if filter.Day != "" {
			conds.add("(',' || days || ',') LIKE ?", "%,"+filter.Day+",%")
		}
		if filter.Search != "" {
			val := "%" + escapeLike(filter.Search) + "%"
			conds.add(`course_code ILIKE ? ESCAPE '\' OR name ILIKE ? ESCAPE '\' OR room ILIKE ? ESCAPE '\'`, val, val, val)
		}
	}

	q := "SELECT " + sectionColumns + " FROM course_section" + conds.where() +
		orderBy(ordering, "course_code ASC, name ASC", sectionOrderings...)

	var rows []sectionRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	secs := make([]section.Section, 0, len(rows))
	for _, row := range rows {
		sec, err := row.unpack()
		if err != nil {
			return nil, err
		}
		secs = append(secs, sec)
	}
	return secs, nil
}

func (repo sectionRepository) UpdateSection(ctx context.Context, sec section.Section, exec ...core.DBExecutor) (section.Section, error) {
	exe := repo.getExec(exec)
	q := `UPDATE course_section SET
			course_code = :course_code, name = :name, teacher_name = :teacher_name, room = :room, capacity = :capacity,
			days = :days, start_time = :start_time, end_time = :end_time, updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version`

	res, err := sqlx.NamedExecContext(ctx, exe, q, packSection(sec))
	if err != nil {
		return section.Section{}, errors.Wrap(err, "updating section")
	}
	if n, err := res.RowsAffected(); err != nil {
		return section.Section{}, errors.Wrap(err, "updating section")
	} else if n == 0 {
		if _, err = repo.GetSection(ctx, sec.ID, exe); err != nil {
			return section.Section{}, err
		}
		return section.Section{}, section.ErrConflict
	}
	sec.Version++
	return sec, nil
}

func (repo sectionRepository) DeleteSection(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return section.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM course_section WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting section")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting section")
	} else if n == 0 {
		return section.ErrNotFound
	}
	return nil
}

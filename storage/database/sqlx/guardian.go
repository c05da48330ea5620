package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/guardian"
)

const guardianColumns = "id, name, email, phone, whatsapp, created_at, updated_at"

type (
	studentRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}

	guardianRow struct {
		ID        string      `db:"id"`
		Name      string      `db:"name"`
		Email     string      `db:"email"`
		Phone     null.String `db:"phone"`
		WhatsApp  null.String `db:"whatsapp"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}

	linkRow struct {
		GuardianID string `db:"guardian_id"`
		StudentID  string `db:"student_id"`
	}
)

func (row studentRow) unpack() guardian.Student {
	return guardian.Student{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt.UTC()}
}

func (row guardianRow) unpack(studentIDs []string) guardian.Guardian {
	if studentIDs == nil {
		studentIDs = []string{}
	}
	return guardian.Guardian{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email,
		Phone:      row.Phone,
		WhatsApp:   row.WhatsApp,
		StudentIDs: studentIDs,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type guardianRepository struct {
	baseRepository
}

var _ guardian.Repository = (*guardianRepository)(nil) // interface compliance check

func NewGuardianRepository(exec core.DBExecutor) *guardianRepository {
	return &guardianRepository{baseRepository{exec: exec}}
}

func (repo guardianRepository) CreateStudent(ctx context.Context, std guardian.Student, exec ...core.DBExecutor) (guardian.Student, error) {
	std.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO student (id, name, created_at) VALUES ($1, $2, $3)",
		std.ID, std.Name, std.CreatedAt.UTC())
	if err != nil {
		return guardian.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo guardianRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (guardian.Student, error) {
	if !validID(id) {
		return guardian.Student{}, guardian.ErrStudentNotFound
	}
	var row studentRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT id, name, created_at FROM student WHERE id = $1", id)
	if err != nil {
		return guardian.Student{}, trapNoRowsErr(err, guardian.ErrStudentNotFound, "finding student by ID")
	}
	return row.unpack(), nil
}

func (repo guardianRepository) QueryStudents(ctx context.Context, exec ...core.DBExecutor) ([]guardian.Student, error) {
	var rows []studentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, "SELECT id, name, created_at FROM student ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]guardian.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.unpack())
	}
	return students, nil
}

func (repo guardianRepository) CreateGuardian(ctx context.Context, g guardian.Guardian, exec ...core.DBExecutor) (guardian.Guardian, error) {
	exe := repo.getExec(exec)
	g.ID = uuid.New().String()

	_, err := exe.ExecContext(ctx,
		"INSERT INTO guardian ("+guardianColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		g.ID, g.Name, g.Email, g.Phone, g.WhatsApp, g.CreatedAt.UTC(), g.UpdatedAt.UTC())
	if err != nil {
		return guardian.Guardian{}, errors.Wrap(err, "inserting guardian")
	}

	if len(g.StudentIDs) > 0 {
		_, err = exe.ExecContext(ctx,
			"INSERT INTO guardian_student (guardian_id, student_id) SELECT $1, unnest($2::uuid[]) ON CONFLICT DO NOTHING",
			g.ID, pq.Array(g.StudentIDs))
		if err != nil {
			return guardian.Guardian{}, errors.Wrap(err, "linking guardian to students")
		}
	}
	return g, nil
}

func (repo guardianRepository) GetGuardian(ctx context.Context, id string, exec ...core.DBExecutor) (guardian.Guardian, error) {
	if !validID(id) {
		return guardian.Guardian{}, guardian.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row guardianRow
	if err := exe.GetContext(ctx, &row, "SELECT "+guardianColumns+" FROM guardian WHERE id = $1", id); err != nil {
		return guardian.Guardian{}, trapNoRowsErr(err, guardian.ErrNotFound, "finding guardian by ID")
	}
	links, err := repo.studentLinks(ctx, exe, []string{row.ID})
	if err != nil {
		return guardian.Guardian{}, err
	}
	return row.unpack(links[row.ID]), nil
}

func (repo guardianRepository) QueryGuardiansByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]guardian.Guardian, error) {
	if !validID(studentID) {
		return []guardian.Guardian{}, nil
	}
	exe := repo.getExec(exec)

	var rows []guardianRow
	q := `SELECT g.id, g.name, g.email, g.phone, g.whatsapp, g.created_at, g.updated_at
		FROM guardian g JOIN guardian_student gs ON gs.guardian_id = g.id
		WHERE gs.student_id = $1
		ORDER BY g.name, g.id`
	if err := exe.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying guardians by student")
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	links, err := repo.studentLinks(ctx, exe, ids)
	if err != nil {
		return nil, err
	}

	guardians := make([]guardian.Guardian, 0, len(rows))
	for _, row := range rows {
		guardians = append(guardians, row.unpack(links[row.ID]))
	}
	return guardians, nil
}

// studentLinks maps each guardian ID to the IDs of its students.
func (repo guardianRepository) studentLinks(ctx context.Context, exe core.DBExecutor, guardianIDs []string) (map[string][]string, error) {
	links := make(map[string][]string, len(guardianIDs))
	if len(guardianIDs) == 0 {
		return links, nil
	}

	var rows []linkRow
	q := "SELECT guardian_id, student_id FROM guardian_student WHERE guardian_id = ANY($1::uuid[]) ORDER BY student_id"
	if err := exe.SelectContext(ctx, &rows, q, pq.Array(guardianIDs)); err != nil {
		return nil, errors.Wrap(err, "querying guardian students")
	}
	for _, row := range rows {
		links[row.GuardianID] = append(links[row.GuardianID], row.StudentID)
	}
	return links, nil
}

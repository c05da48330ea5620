package guardian

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
)

var (
	ErrNotFound        = errors.New("guardian not found")
	ErrStudentNotFound = errors.New(errStudentNotFound)
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, exec ...core.DBExecutor) ([]Student, error)
		// CreateGuardian also links the guardian to every student in Guardian.StudentIDs.
		CreateGuardian(ctx context.Context, g Guardian, exec ...core.DBExecutor) (Guardian, error)
		GetGuardian(ctx context.Context, id string, exec ...core.DBExecutor) (Guardian, error)
		QueryGuardiansByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Guardian, error)
	}

	Service interface {
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context) ([]Student, error)
		CreateGuardian(ctx context.Context, ng NewGuardian) (Guardian, error)
		GetGuardian(ctx context.Context, id string) (Guardian, error)
		// QueryByStudent returns the guardians linked to a student.
		QueryByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Guardian, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	std := Student{
		Name:      ns.Name,
		CreatedAt: core.NowFunc().UTC(),
	}
	std, err := svc.repo.CreateStudent(ctx, std)
	return std, errors.Wrap(err, "creating student")
}

func (svc *service) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error) {
	return svc.repo.GetStudent(ctx, id, exec...)
}

func (svc *service) QueryStudents(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryStudents(ctx)
}

func (svc *service) CreateGuardian(ctx context.Context, ng NewGuardian) (Guardian, error) {
	now := core.NowFunc().UTC()
	g := Guardian{
		Name:       ng.Name,
		Email:      ng.Email,
		Phone:      null.NewString(ng.Phone, ng.Phone != ""),
		WhatsApp:   null.NewString(ng.WhatsApp, ng.WhatsApp != ""),
		StudentIDs: ng.StudentIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if g.StudentIDs == nil {
		g.StudentIDs = []string{}
	}
	g, err := svc.repo.CreateGuardian(ctx, g)
	return g, errors.Wrap(err, "creating guardian")
}

func (svc *service) GetGuardian(ctx context.Context, id string) (Guardian, error) {
	return svc.repo.GetGuardian(ctx, id)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Guardian, error) {
	if _, err := svc.repo.GetStudent(ctx, studentID, exec...); err != nil {
		return nil, err
	}
	return svc.repo.QueryGuardiansByStudent(ctx, studentID, exec...)
}

package section

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
)

var (
	ErrNotFound = errors.New("section not found")
	ErrConflict = errors.New("section was modified concurrently")
)

type (
	Repository interface {
		CreateSection(ctx context.Context, sec Section, exec ...core.DBExecutor) (Section, error)
		GetSection(ctx context.Context, id string, exec ...core.DBExecutor) (Section, error)
		QuerySections(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Section, error)
		// UpdateSection saves `sec` with an incremented Version if the stored Version still equals sec.Version,
		// and returns ErrConflict otherwise.
		UpdateSection(ctx context.Context, sec Section, exec ...core.DBExecutor) (Section, error)
		DeleteSection(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, ns NewSection) (Section, error)
		Get(ctx context.Context, id string, exec ...core.DBExecutor) (Section, error)
		// View evaluates the section's schedule now, in the school's timezone.
		View(sec Section) View
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]View, error)
		Update(ctx context.Context, orig Section, us UpdateSection) (Section, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
		conf *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, conf *core.Config) Service {
	return &service{repo: repo, conf: conf}
}

func (svc *service) Create(ctx context.Context, ns NewSection) (Section, error) {
	sch, err := ns.schedule()
	if err != nil {
		return Section{}, err
	}

	now := core.NowFunc().UTC()
	sec := Section{
		CourseCode:  ns.CourseCode,
		Name:        ns.Name,
		TeacherName: ns.TeacherName,
		Room:        ns.Room,
		Capacity:    ns.Capacity,
		Schedule:    sch,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sec, err = svc.repo.CreateSection(ctx, sec)
	return sec, errors.Wrap(err, "creating section")
}

func (svc *service) Get(ctx context.Context, id string, exec ...core.DBExecutor) (Section, error) {
	return svc.repo.GetSection(ctx, id, exec...)
}

func (svc *service) now() time.Time {
	return core.NowFunc().In(svc.conf.Location())
}

func (svc *service) View(sec Section) View {
	return sec.ViewAt(svc.now())
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]View, error) {
	secs, err := svc.repo.QuerySections(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}

	now := svc.now()
	views := make([]View, 0, len(secs))
	for _, sec := range secs {
		v := sec.ViewAt(now)
		if filter != nil && filter.InSession && !v.InSession {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

func (svc *service) Update(ctx context.Context, orig Section, us UpdateSection) (Section, error) {
	sec, err := us.apply(orig)
	if err != nil {
		return orig, err
	}
	sec.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateSection(ctx, sec)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSection(ctx, id)
}

package setting

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
)

var ErrNotFound = errors.New("settings not found")

type (
	Repository interface {
		// GetSettings returns ErrNotFound until settings have been saved once.
		GetSettings(ctx context.Context, exec ...core.DBExecutor) (Settings, error)
		SaveSettings(ctx context.Context, s Settings, exec ...core.DBExecutor) (Settings, error)
	}

	Service interface {
		// Get fetches the settings, creating them with Defaults on first access.
		Get(ctx context.Context, exec ...core.DBExecutor) (Settings, error)
		Update(ctx context.Context, us UpdateSettings, exec ...core.DBExecutor) (Settings, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Get(ctx context.Context, exec ...core.DBExecutor) (Settings, error) {
	s, err := svc.repo.GetSettings(ctx, exec...)
	if err == nil {
		return s, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Settings{}, errors.Wrap(err, "getting settings")
	}

	s = Defaults()
	s.UpdatedAt = core.NowFunc().UTC()
	s, err = svc.repo.SaveSettings(ctx, s, exec...)
	return s, errors.Wrap(err, "creating default settings")
}

func (svc *service) Update(ctx context.Context, us UpdateSettings, exec ...core.DBExecutor) (Settings, error) {
	orig, err := svc.Get(ctx, exec...)
	if err != nil {
		return Settings{}, err
	}
	s := us.apply(orig)
	s.UpdatedAt = core.NowFunc().UTC()
	s, err = svc.repo.SaveSettings(ctx, s, exec...)
	return s, errors.Wrap(err, "saving settings")
}

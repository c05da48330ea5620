package inmemdb

import (
	"context"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/setting"
)

type settingRepository struct {
	db *settingTable
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *DB) *settingRepository {
	return &settingRepository{db: db.setting}
}

func (repo *settingRepository) GetSettings(_ context.Context, _ ...core.DBExecutor) (setting.Settings, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.row == nil {
		return setting.Settings{}, setting.ErrNotFound
	}
	return *repo.db.row, nil
}

func (repo *settingRepository) SaveSettings(_ context.Context, s setting.Settings, _ ...core.DBExecutor) (setting.Settings, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.row = &s
	return s, nil
}

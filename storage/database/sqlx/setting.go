package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/setting"
)

const settingColumns = "late_threshold_minutes, notification_delay_minutes, notify_excused, updated_at"

type settingsRow struct {
	LateThresholdMinutes     int       `db:"late_threshold_minutes"`
	NotificationDelayMinutes int       `db:"notification_delay_minutes"`
	NotifyExcused            bool      `db:"notify_excused"`
	UpdatedAt                time.Time `db:"updated_at"`
}

func (row settingsRow) unpack() setting.Settings {
	return setting.Settings{
		LateThresholdMinutes:     row.LateThresholdMinutes,
		NotificationDelayMinutes: row.NotificationDelayMinutes,
		NotifyExcused:            row.NotifyExcused,
		UpdatedAt:                row.UpdatedAt.UTC(),
	}
}

type settingRepository struct {
	baseRepository
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(exec core.DBExecutor) *settingRepository {
	return &settingRepository{baseRepository{exec: exec}}
}

func (repo settingRepository) GetSettings(ctx context.Context, exec ...core.DBExecutor) (setting.Settings, error) {
	var row settingsRow
	err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+settingColumns+" FROM settings WHERE id = 1")
	if err != nil {
		return setting.Settings{}, trapNoRowsErr(err, setting.ErrNotFound, "getting settings")
	}
	return row.unpack(), nil
}

func (repo settingRepository) SaveSettings(ctx context.Context, s setting.Settings, exec ...core.DBExecutor) (setting.Settings, error) {
	q := `INSERT INTO settings (id, ` + settingColumns + `) VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			late_threshold_minutes = EXCLUDED.late_threshold_minutes,
			notification_delay_minutes = EXCLUDED.notification_delay_minutes,
			notify_excused = EXCLUDED.notify_excused,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + settingColumns

	var row settingsRow
	err := repo.getExec(exec).GetContext(ctx, &row, q,
		s.LateThresholdMinutes, s.NotificationDelayMinutes, s.NotifyExcused, s.UpdatedAt.UTC())
	if err != nil {
		return setting.Settings{}, errors.Wrap(err, "saving settings")
	}
	return row.unpack(), nil
}

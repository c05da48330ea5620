package setting

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultLateThresholdMinutes     = 10
	DefaultNotificationDelayMinutes = 0
	DefaultNotifyExcused            = true
)

// Settings is the school-wide configuration row.
type Settings struct {
	LateThresholdMinutes     int       `json:"late_threshold_minutes"`
	NotificationDelayMinutes int       `json:"notification_delay_minutes"`
	NotifyExcused            bool      `json:"notify_excused"`
	UpdatedAt                time.Time `json:"updated_at"` // UTC
}

// Defaults returns the settings used until an administrator changes them.
func Defaults() Settings {
	return Settings{
		LateThresholdMinutes:     DefaultLateThresholdMinutes,
		NotificationDelayMinutes: DefaultNotificationDelayMinutes,
		NotifyExcused:            DefaultNotifyExcused,
	}
}

// LateThreshold is how long after a section starts a check-in is still on time.
func (s Settings) LateThreshold() time.Duration {
	return time.Duration(s.LateThresholdMinutes) * time.Minute
}

// NotificationDelay is how long a guardian notification waits before it is due.
func (s Settings) NotificationDelay() time.Duration {
	return time.Duration(s.NotificationDelayMinutes) * time.Minute
}

type UpdateSettings struct {
	LateThresholdMinutes     *int  `json:"late_threshold_minutes" validate:"omitempty,min=0,max=240"`
	NotificationDelayMinutes *int  `json:"notification_delay_minutes" validate:"omitempty,min=0,max=1440"`
	NotifyExcused            *bool `json:"notify_excused"`
}

func (us *UpdateSettings) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

// apply returns `orig` with every set field of `us` applied.
func (us UpdateSettings) apply(orig Settings) Settings {
	if us.LateThresholdMinutes != nil {
		orig.LateThresholdMinutes = *us.LateThresholdMinutes
	}
	if us.NotificationDelayMinutes != nil {
		orig.NotificationDelayMinutes = *us.NotificationDelayMinutes
	}
	if us.NotifyExcused != nil {
		orig.NotifyExcused = *us.NotifyExcused
	}
	return orig
}

package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/attendance/core"
)

var (
	weekdaysTag  = "weekdays"
	weekdaysText = "only monday to friday are allowed"

	clockTag  = "clock"
	clockText = "invalid time, expected HH:MM or HH:MM:SS"
)

// InitValidators registers the schedule validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdaysTag, weekdaysValidation)
	core.RegisterCustomTranslation(validate, translator, weekdaysTag, weekdaysText)

	_ = validate.RegisterValidation(clockTag, clockValidation)
	core.RegisterCustomTranslation(validate, translator, clockTag, clockText)
}

// Custom Validators

// weekdaysValidation checks that every element of a []string is a school day name
func weekdaysValidation(fl validator.FieldLevel) bool {
	names, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, name := range names {
		if _, err := ParseWeekday(name); err != nil {
			return false
		}
	}
	return true
}

// clockValidation checks that a string is a HH:MM or HH:MM:SS time of day
func clockValidation(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := ParseTimeOfDay(s)
	return err == nil
}

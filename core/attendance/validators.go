package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/attendance/core"
)

var (
	statusTag  = "attstatus"
	statusText = "must be one of present, late, absent or excused"

	dateTag  = "datetime"
	dateText = "invalid date, expected YYYY-MM-DD"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	core.RegisterCustomTranslation(validate, translator, dateTag, dateText, true)
}

func statusValidation(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(Status); ok {
		return s.Valid()
	}
	return false
}

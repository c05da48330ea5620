package guardian

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
)

const errStudentNotFound = "student not found"

type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Guardian is an adult contact of one or more students.
type Guardian struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      null.String `json:"phone"`    // E.164
	WhatsApp   null.String `json:"whatsapp"` // E.164
	StudentIDs []string    `json:"student_ids"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	UpdatedAt  time.Time   `json:"updated_at"` // UTC
}

func (g Guardian) HasWhatsApp() bool {
	return g.WhatsApp.Valid && g.WhatsApp.String != ""
}

func (g Guardian) HasPhone() bool {
	return g.Phone.Valid && g.Phone.String != ""
}

type (
	NewStudent struct {
		Name string `json:"name" validate:"required,notblank,max=255"`
	}

	NewGuardian struct {
		Name       string   `json:"name" validate:"required,notblank,max=255"`
		Email      string   `json:"email" validate:"required,email"`
		Phone      string   `json:"phone" validate:"omitempty,e164"`
		WhatsApp   string   `json:"whatsapp" validate:"omitempty,e164"`
		StudentIDs []string `json:"student_ids" validate:"omitempty,dive,uuid"`
	}
)

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// Validate cleans the request, validates its fields and checks that every linked student exists.
func (ng *NewGuardian) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Email = core.CleanString(ng.Email, true /* lower */)
	ng.Phone = core.CleanString(ng.Phone)
	ng.WhatsApp = core.CleanString(ng.WhatsApp)
	ng.StudentIDs = core.CleanStrings(ng.StudentIDs, true /* lower */)
	if err := validate.Struct(ng); err != nil {
		return err
	}

	for _, id := range ng.StudentIDs {
		if _, err := svc.GetStudent(ctx, id); err != nil {
			if errors.Cause(err) == ErrStudentNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "student_ids", Error: errStudentNotFound})
			}
			return errors.Wrap(err, "checking student")
		}
	}
	return nil
}

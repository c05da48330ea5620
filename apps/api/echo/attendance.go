package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/section"
)

type attendanceApi struct {
	svc       attendance.Service
	sections  section.Service
	guardians guardian.Service
	validate  *validator.Validate
	conf      *core.Config
}

func registerAttendanceAPI(
	g *echo.Group,
	svc attendance.Service,
	sections section.Service,
	guardians guardian.Service,
	validate *validator.Validate,
	conf *core.Config,
) {
	api := attendanceApi{
		svc:       svc,
		sections:  sections,
		guardians: guardians,
		validate:  validate,
		conf:      conf,
	}

	ag := g.Group("/attendances")
	ag.GET("", api.query)
	ag.POST("", api.record)
	ag.GET("/:id", api.retrieve)
}

// Handlers

// record answers 201 when the attendance was created and 200 when an existing one was updated.
func (api *attendanceApi) record(ctx echo.Context) error {
	var data attendance.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.sections, api.guardians, api.conf.Location()); err != nil {
		return err
	}

	rec, err := api.svc.Record(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	if rec.Notifications == nil {
		rec.Notifications = []notification.Notification{}
	}

	code := http.StatusOK
	if rec.Created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, rec)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Attendance{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	atts, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying attendances")
	}
	if atts == nil {
		atts = []attendance.Attendance{}
	}
	return ctx.JSON(http.StatusOK, atts)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	att, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

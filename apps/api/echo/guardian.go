package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/guardian"
)

type guardianApi struct {
	svc      guardian.Service
	validate *validator.Validate
}

func registerGuardianAPI(g *echo.Group, svc guardian.Service, validate *validator.Validate) {
	api := guardianApi{
		svc:      svc,
		validate: validate,
	}

	stg := g.Group("/students")
	stg.GET("", api.queryStudents)
	stg.POST("", api.createStudent, adminMiddleware())
	stg.GET("/:id", api.retrieveStudent)
	stg.GET("/:id/guardians", api.queryByStudent)

	gg := g.Group("/guardians")
	gg.POST("", api.create, adminMiddleware())
	gg.GET("/:id", api.retrieve)
}

// Handlers

func (api *guardianApi) createStudent(ctx echo.Context) error {
	var data guardian.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *guardianApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.QueryStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []guardian.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *guardianApi) retrieveStudent(ctx echo.Context) error {
	std, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *guardianApi) queryByStudent(ctx echo.Context) error {
	guardians, err := api.svc.QueryByStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying guardians by student")
	}
	if guardians == nil {
		guardians = []guardian.Guardian{}
	}
	return ctx.JSON(http.StatusOK, guardians)
}

func (api *guardianApi) create(ctx echo.Context) error {
	var data guardian.NewGuardian
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGuardian")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	g, err := api.svc.CreateGuardian(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating guardian")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *guardianApi) retrieve(ctx echo.Context) error {
	g, err := api.svc.GetGuardian(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting guardian")
	}
	return ctx.JSON(http.StatusOK, g)
}

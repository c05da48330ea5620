package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/section"
)

var errSecNotFoundInCtx = errors.New("section object not found in echo.Context")

type sectionApi struct {
	svc      section.Service
	validate *validator.Validate
}

func registerSectionAPI(g *echo.Group, svc section.Service, validate *validator.Validate) {
	api := sectionApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/sections")
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id", objectMiddleware(api.get, section.ErrNotFound))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

func (api *sectionApi) get(ctx echo.Context, id string) (interface{}, error) {
	return api.svc.Get(ctx.Request().Context(), id)
}

func ctxSection(ctx echo.Context) (section.Section, error) {
	sec, ok := ctx.Get(contextObjectKey).(section.Section)
	if !ok {
		return section.Section{}, errors.Wrap(errSecNotFoundInCtx, "retrieving object from context")
	}
	return sec, nil
}

// Handlers

func (api *sectionApi) create(ctx echo.Context) error {
	var data section.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sec, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, api.svc.View(sec))
}

func (api *sectionApi) query(ctx echo.Context) error {
	filter := new(section.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []section.View{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	views, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *sectionApi) retrieve(ctx echo.Context) error {
	sec, err := ctxSection(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.View(sec))
}

func (api *sectionApi) update(ctx echo.Context) error {
	sec, err := ctxSection(ctx)
	if err != nil {
		return err
	}

	var data section.UpdateSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSection")
	}
	if err = data.Validate(sec, api.validate); err != nil {
		return err
	}

	sec, err = api.svc.Update(ctx.Request().Context(), sec, data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, api.svc.View(sec))
}

func (api *sectionApi) destroy(ctx echo.Context) error {
	sec, err := ctxSection(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), sec.ID); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/setting"
)

type settingApi struct {
	svc      setting.Service
	validate *validator.Validate
}

func registerSettingAPI(g *echo.Group, svc setting.Service, validate *validator.Validate) {
	api := settingApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/settings")
	sg.GET("", api.retrieve)
	sg.PUT("", api.update, adminMiddleware())
}

// Handlers

func (api *settingApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingApi) update(ctx echo.Context) error {
	var data setting.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

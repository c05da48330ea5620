package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core/notification"
)

type notificationApi struct {
	svc      notification.Service
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, svc notification.Service, validate *validator.Validate) {
	api := notificationApi{
		svc:      svc,
		validate: validate,
	}

	ng := g.Group("/notifications")
	ng.GET("", api.query)
	ng.POST("/deliver-due", api.deliverDue, adminMiddleware())

	// detail endpoints
	ag := ng.Group("/:id", adminMiddleware())
	ag.POST("/sent", api.markSent)
	ag.POST("/failed", api.markFailed)
	ag.POST("/retry", api.retry)
	ag.POST("/deliver", api.deliver)
	ng.GET("/:id", api.retrieve) // after the group: it registers catch-all routes on its prefix
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	filter := new(notification.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []notification.Notification{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ns, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if ns == nil {
		ns = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	n, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting notification")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markSent(ctx echo.Context) error {
	n, err := api.svc.MarkSent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification as sent")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markFailed(ctx echo.Context) error {
	var data notification.FailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.MarkFailed(ctx.Request().Context(), ctx.Param("id"), data.Reason)
	if err != nil {
		return errors.Wrap(err, "marking notification as failed")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) retry(ctx echo.Context) error {
	n, err := api.svc.Retry(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrying notification")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) deliver(ctx echo.Context) error {
	n, err := api.svc.Deliver(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "delivering notification")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) deliverDue(ctx echo.Context) error {
	report, err := api.svc.DeliverDue(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "delivering due notifications")
	}
	return ctx.JSON(http.StatusOK, report)
}

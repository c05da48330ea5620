package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/section"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")

	notFoundErrs = []error{
		section.ErrNotFound,
		guardian.ErrNotFound,
		guardian.ErrStudentNotFound,
		attendance.ErrNotFound,
		notification.ErrNotFound,
	}
	conflictErrs = []error{
		section.ErrConflict,
		attendance.ErrConflict,
		notification.ErrConflict,
	}
)

// domainStatus maps the sentinel errors of the core packages to an HTTP status.
func domainStatus(cause error) (int, bool) {
	for _, e := range notFoundErrs {
		if cause == e {
			return http.StatusNotFound, true
		}
	}
	for _, e := range conflictErrs {
		if cause == e {
			return http.StatusConflict, true
		}
	}
	if core.IsTransitionError(cause) {
		return http.StatusConflict, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(
	conf *core.Config,
	logger core.Logger,
	translator ut.Translator,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if status, ok := domainStatus(cause); ok {
			code = status
			message = cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors, *core.ValidationError:
				code = http.StatusBadRequest
				if fldErrs, _ := core.TranslateValidationErrors(cause, translator); len(fldErrs) > 0 {
					message = fldErrs
				} else {
					message = cause.Error()
				}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var person core.Person
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					person = claims.Person()
				}
				logger.Error(msg, errors.Wrap(err, msg), person)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil && !conf.TestMode {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

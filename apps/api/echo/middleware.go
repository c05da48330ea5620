package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const contextObjectKey = "object"

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// objectMiddleware loads the object identified by the `:id` path param and stores it in the context.
// A `notFound` error from `get` ends the request with a 404.
func objectMiddleware(get func(ctx echo.Context, id string) (interface{}, error), notFound ...error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := get(ctx, ctx.Param("id"))
			if err != nil {
				cause := errors.Cause(err)
				for _, nf := range notFound {
					if cause == nf {
						return errHttpNotFound
					}
				}
				return errors.Wrap(err, "getting object")
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

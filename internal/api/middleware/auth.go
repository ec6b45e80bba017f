package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/maalej-ala/stage2-auth/internal/api/metrics"
	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
	"github.com/maalej-ala/stage2-auth/internal/core/service"
)

// Context keys set by Auth.
const (
	PrincipalKey = "principal"
	TokenKey     = "token"
)

// Auth validates the bearer access token and, when roles are given, requires
// the token's role claim to be one of them. The verified principal and the
// raw token are stored in the echo context.
func Auth(authz ports.Authorizer, required ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)

			principal, err := authz.Authorize(header, required...)
			if err != nil {
				metrics.AuthorizationDecisionsTotal.WithLabelValues(decision(err)).Inc()
				return err
			}
			metrics.AuthorizationDecisionsTotal.WithLabelValues("allowed").Inc()

			raw, _ := service.BearerToken(header)
			c.Set(PrincipalKey, principal)
			c.Set(TokenKey, raw)

			return next(c)
		}
	}
}

func decision(err error) string {
	if errors.Is(err, domain.ErrForbidden) {
		return "forbidden"
	}
	return "unauthenticated"
}

package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/maalej-ala/stage2-auth/internal/api/middleware"
	"github.com/maalej-ala/stage2-auth/internal/core/domain"
)

// ctxPrincipal returns the principal injected by the Auth middleware. A
// missing principal means the route was mounted without the middleware.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := c.Get(middleware.PrincipalKey).(domain.Principal)
	if !ok || p.Subject == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return p, nil
}

// ctxToken returns the raw bearer token injected by the Auth middleware.
func ctxToken(c echo.Context) (string, error) {
	raw, _ := c.Get(middleware.TokenKey).(string)
	if raw == "" {
		return "", domain.ErrMissingAuthHeader
	}
	return raw, nil
}

package ratelimit

import (
	xhttp "StockDesk/pkg/http"

	"github.com/labstack/echo/v4"
)

// ClientKey identifies the caller: the X-Client-ID header, falling back to the remote IP.
func ClientKey(c echo.Context) string {
	if id := c.Request().Header.Get("X-Client-ID"); id != "" {
		return id
	}
	return c.RealIP()
}

// Middleware rejects requests once the caller's bucket is empty.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(ClientKey(c)) {
				return xhttp.TooManyRequestsResponse(c)
			}
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIKey checks the configured access key in query parameter, header, or
// cookie, in that order. A mismatch is rejected with 403.
func APIKey(keyName, key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" {
				// No key configured means the API is open.
				return next(c)
			}

			if c.QueryParam(keyName) == key {
				return next(c)
			}
			if c.Request().Header.Get(keyName) == key {
				return next(c)
			}
			if cookie, err := c.Cookie(keyName); err == nil && cookie.Value == key {
				return next(c)
			}

			return c.JSON(http.StatusForbidden, map[string]string{
				"detail": "Invalid access token",
			})
		}
	}
}

package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets defensive response headers. The browser UI under
// uiPrefix may load its own scripts and styles; everything else is treated as
// a JSON API and may load nothing.
func SecurityHeaders(uiPrefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			path := c.Request().URL.Path
			if path == "/" || (uiPrefix != "" && strings.HasPrefix(path, uiPrefix)) {
				h.Set("Content-Security-Policy",
					"default-src 'self'; script-src 'self'; style-src 'self'; frame-ancestors 'none'")
			} else {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
				// Encounter payloads carry patient data.
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}

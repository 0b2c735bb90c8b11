package http

import (
	xutil "PriceCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// QueryInt reads an integer query parameter, returning def when absent or invalid.
func QueryInt(c echo.Context, name string, def int) int {
	return xutil.ParseIntDefault(c.QueryParam(name), def)
}

// ClientKey identifies the caller for rate limiting.
func ClientKey(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "anonymous"
}

package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// identity returns the caller's user ID as a string for Redis keys, or
// "guest" for unauthenticated requests.
func identity(c echo.Context) string {
	if uid, ok := c.Get(CtxUserID).(uint64); ok && uid != 0 {
		return strconv.FormatUint(uid, 10)
	}
	return "guest"
}

package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-management/internal/authz"
	"github.com/iliyamo/restaurant-management/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxEmail  = "email"
)

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": msg})
}

// JWTAuth validates a Bearer access token and stores the caller's ID (as
// uint64), role and email in the echo context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			uid, _ := claims.UserID()
			c.Set(CtxUserID, uid)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxEmail, claims.Email)
			return next(c)
		}
	}
}

// Actor returns the authenticated caller for authorization decisions.  It
// is the zero Actor when JWTAuth did not run.
func Actor(c echo.Context) authz.Actor {
	uid, _ := c.Get(CtxUserID).(uint64)
	role, _ := c.Get(CtxRole).(string)
	return authz.Actor{UserID: uid, Admin: role == "ADMIN"}
}

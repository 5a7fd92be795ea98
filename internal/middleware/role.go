package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-management/internal/model"
)

// RequireRole rejects requests whose token role is not one of roles.  It
// must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireAdmin is RequireRole(ADMIN).
func RequireAdmin() echo.MiddlewareFunc { return RequireRole(model.RoleAdmin) }

// RequireUser accepts any authenticated role.
func RequireUser() echo.MiddlewareFunc { return RequireRole(model.RoleAdmin, model.RoleCustomer) }

// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-management/internal/handler"
	"github.com/iliyamo/restaurant-management/internal/middleware"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Catalog      *handler.CatalogHandler
	Reservations *handler.ReservationHandler
	Orders       *handler.OrderHandler
	Payments     *handler.PaymentHandler
	Feedback     *handler.FeedbackHandler
	Reports      *handler.ReportHandler
}

// Options carries the cross-cutting middleware shared by route groups.
type Options struct {
	JWTSecret     string
	Cache         *middleware.ResponseCache
	RateLimit     echo.MiddlewareFunc // applied to every API route
	AuthRateLimit echo.MiddlewareFunc // stricter bucket for credential endpoints
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return passThrough
	}
	return m
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, o Options) {
	e.GET("/", h.Health.Root)
	e.GET("/healthz", h.Health.Healthz)

	api := e.Group("", orPass(o.RateLimit))
	jwt := middleware.JWTAuth(o.JWTSecret)
	user := []echo.MiddlewareFunc{jwt, middleware.RequireUser()}
	admin := []echo.MiddlewareFunc{jwt, middleware.RequireAdmin()}
	cached := orPass(nil)
	if o.Cache != nil {
		cached = o.Cache.Middleware()
	}

	registerAuth(api, h.Auth, orPass(o.AuthRateLimit), jwt)
	registerUsers(api, h.Users, user, admin)
	registerCatalog(api, h.Catalog, cached, admin)
	registerReservations(api, h.Reservations, user, admin)
	registerOrders(api, h.Orders, user, admin)
	registerPayments(api, h.Payments, user, admin)
	registerFeedback(api, h.Feedback, user, admin)
	registerReports(api, h.Reports, admin)
}

func registerAuth(g *echo.Group, a *handler.AuthHandler, limit, jwt echo.MiddlewareFunc) {
	ag := g.Group("/auth", limit)
	ag.POST("/register", a.Register)
	ag.POST("/login", a.Login)
	ag.POST("/refresh", a.Refresh)
	ag.POST("/logout", a.Logout)
	ag.POST("/verify-user", a.VerifyUser)
	ag.PUT("/reset-password", a.ResetPassword)
	g.GET("/auth/me", a.Me, jwt, middleware.RequireUser())
}

func registerUsers(g *echo.Group, u *handler.UserHandler, user, admin []echo.MiddlewareFunc) {
	g.GET("/users", u.List, admin...)
	g.PUT("/users/membership", u.BuyMembership, user...)
	g.GET("/users/:id", u.Get, user...)
	g.PUT("/users/:id", u.Update, user...)

	g.GET("/members", u.Members, admin...)
	g.POST("/members", u.AddMember, admin...)
	g.PUT("/members/:id/remove", u.RemoveMember, admin...)
}

func registerCatalog(g *echo.Group, c *handler.CatalogHandler, cached echo.MiddlewareFunc, admin []echo.MiddlewareFunc) {
	g.GET("/menu", c.ListMenu, cached)
	g.POST("/menu", c.CreateMenuItem, admin...)
	g.PUT("/menu/:id", c.UpdateMenuPrice, admin...)
	g.DELETE("/menu/:id", c.DeleteMenuItem, admin...)

	g.GET("/table-types", c.ListTableTypes, cached)
	g.POST("/table-types", c.CreateTableType, admin...)
	g.DELETE("/table-types/:id", c.DeleteTableType, admin...)

	g.GET("/tables", c.ListTables, cached)
	g.POST("/tables", c.CreateTable, admin...)
	g.DELETE("/tables/:id", c.DeleteTable, admin...)

	g.GET("/chefs", c.Chefs, cached)
	g.GET("/staff", c.ListStaff, admin...)
	g.POST("/staff", c.CreateStaff, admin...)
	g.DELETE("/staff/:id", c.DeleteStaff, admin...)
}

func registerReservations(g *echo.Group, r *handler.ReservationHandler, user, admin []echo.MiddlewareFunc) {
	// availability is public so guests can look before signing up
	g.POST("/available-tables", r.Available)

	g.POST("/reservations", r.Create, user...)
	g.GET("/reservations", r.List, admin...)
	g.GET("/reservations/user/:userId", r.ByUser, user...)
	g.GET("/reservations/:id", r.Get, user...)
	g.PUT("/reservations/:id/status", r.UpdateStatus, admin...)
	g.DELETE("/reservations/:id", r.Delete, user...)
}

func registerOrders(g *echo.Group, o *handler.OrderHandler, user, admin []echo.MiddlewareFunc) {
	g.GET("/orders", o.List, admin...)
	g.POST("/orders", o.Create, user...)
	g.POST("/orders/checkout", o.PlaceOrder, user...)
	g.DELETE("/orders/:id", o.Delete, admin...)

	g.POST("/order-details", o.AddDetail, user...)
	g.GET("/order-details", o.ListDetails, admin...)
	g.DELETE("/order-details/:id", o.DeleteDetail, admin...)
}

func registerPayments(g *echo.Group, p *handler.PaymentHandler, user, admin []echo.MiddlewareFunc) {
	g.GET("/payments", p.List, admin...)
	g.POST("/payments", p.Create, admin...)
	g.POST("/payments/pay", p.Pay, user...)
	g.POST("/payments/:id/complete", p.Complete, user...)
	g.GET("/payments/customer/:id", p.ByCustomer, user...)
	g.DELETE("/payments/:id", p.Delete, admin...)
}

func registerFeedback(g *echo.Group, f *handler.FeedbackHandler, user, admin []echo.MiddlewareFunc) {
	g.POST("/feedback", f.Create, user...)
	g.GET("/feedback", f.List, admin...)
	g.GET("/feedback/user/:userId", f.ByUser, user...)
}

func registerReports(g *echo.Group, r *handler.ReportHandler, admin []echo.MiddlewareFunc) {
	rg := g.Group("/reports", admin...)
	rg.GET("/revenue-by-day", r.RevenueByDay)
	rg.GET("/popular-items", r.PopularItems)
	rg.GET("/busiest-times", r.BusiestTimes)
	rg.GET("/export", r.Export)
}

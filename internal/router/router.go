package router // package router defines how HTTP routes are registered for the dashboard

import (
	"github.com/labstack/echo/v4"

	"github.com/leikapui/sales-dashboard/internal/handler"
	"github.com/leikapui/sales-dashboard/internal/middleware"
	"github.com/leikapui/sales-dashboard/internal/model"
)

// Routes bundles the handlers and the middleware the dashboard routes need.
type Routes struct {
	Session   echo.MiddlewareFunc // binds the browser session
	Protect   echo.MiddlewareFunc // gate for signed-in pages
	LoginRate echo.MiddlewareFunc // limiter on login attempts, may be nil

	Auth      *handler.AuthHandler
	Dashboard *handler.DashboardHandler
	Admin     *handler.AdminHandler
	Events    *handler.EventsHandler
}

// RegisterRoutes registers routes that need no browser session. Currently
// only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterDashboard registers the session-bound routes:
//
//	/login, /logout             open
//	/, /api/*, /events          signed-in users
//	/admin/users                admins only
func RegisterDashboard(e *echo.Echo, r Routes) {
	open := []echo.MiddlewareFunc{r.Session}
	login := open
	if r.LoginRate != nil {
		login = append([]echo.MiddlewareFunc{r.Session}, r.LoginRate)
	}
	e.GET("/login", r.Auth.LoginPage, open...)
	e.POST("/login", r.Auth.Login, login...)
	e.POST("/logout", r.Auth.Logout, open...)

	// Per-route middleware: a group would add catch-all routes behind the gate.
	protected := []echo.MiddlewareFunc{r.Session, r.Protect}
	e.GET("/", r.Dashboard.Page, protected...)
	e.GET("/api/statistics", r.Dashboard.Statistics, protected...)
	e.GET("/api/sales/daily", r.Dashboard.DailySales, protected...)
	e.GET("/api/transactions", r.Dashboard.Transactions, protected...)
	e.GET("/events", r.Events.Stream, protected...)

	admin := append(protected[:len(protected):len(protected)], middleware.RequireRole(model.RoleAdmin))
	e.GET("/admin/users", r.Admin.Users, admin...)
	e.POST("/admin/users", r.Admin.CreateUser, admin...)
}

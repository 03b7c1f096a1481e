package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/leikapui/sales-dashboard/internal/apiclient"
	"github.com/leikapui/sales-dashboard/internal/auth"
	"github.com/leikapui/sales-dashboard/internal/middleware"
	"github.com/leikapui/sales-dashboard/internal/model"
	"github.com/leikapui/sales-dashboard/internal/sales"
)

// MsgDashboardFailed is the dashboard error page heading.
const MsgDashboardFailed = "Failed to load dashboard data"

// DashboardHandler serves the dashboard page and its JSON views. Every
// route runs behind Protect.
type DashboardHandler struct {
	Deps *Deps
}

func NewDashboardHandler(d *Deps) *DashboardHandler { return &DashboardHandler{Deps: d} }

type dashboardView struct {
	Stats    model.SalesStatistics
	Daily    []model.DailySalesPoint
	DailyMax decimal.Decimal
	Movies   []model.MovieSales
	Recent   []model.Transaction
}

type errorView struct {
	Detail string
	Retry  string
}

// Page renders the dashboard. When the statistics cannot be fetched the
// error page offers a retry and a retry with a fresh session.
func (h *DashboardHandler) Page(c echo.Context) error {
	user := middleware.CurrentUser(c)
	store := middleware.SessionFrom(c)
	st, err := h.Deps.APIFor(store).SalesStatistics(c.Request().Context())
	if err != nil {
		if _, ok := store.Token(c.Request().Context()); !ok {
			// the backend rejected the token mid-request
			return NewAuthHandler(h.Deps).Unauthenticated(c)
		}
		h.Deps.logger().Warnw("dashboard unavailable", "user", user.ID, "error", err)
		return c.Render(http.StatusBadGateway, "error", Page{
			Title: "Dashboard",
			User:  user,
			Error: MsgDashboardFailed,
			Data:  errorView{Detail: apiclient.ErrDashboardData.Error(), Retry: c.Request().URL.RequestURI()},
		})
	}

	now := h.Deps.now()
	daily := sales.DailySales(st.Transactions, now)
	view := dashboardView{
		Stats:    st,
		Daily:    daily,
		DailyMax: sales.MaxSales(daily),
		Movies:   sales.MovieBreakdown(st.Transactions, now),
		Recent:   sales.Recent(st.Transactions, sales.RecentLimit),
	}
	return c.Render(http.StatusOK, "dashboard", Page{Title: "Dashboard", User: user, Data: view})
}

// Statistics returns the merged sales statistics.
func (h *DashboardHandler) Statistics(c echo.Context) error {
	st, err := h.Deps.APIFor(middleware.SessionFrom(c)).SalesStatistics(c.Request().Context())
	if err != nil {
		return h.dataError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// DailySales returns the seven day trend, overall and per movie.
func (h *DashboardHandler) DailySales(c echo.Context) error {
	st, err := h.Deps.APIFor(middleware.SessionFrom(c)).SalesStatistics(c.Request().Context())
	if err != nil {
		return h.dataError(c, err)
	}
	now := h.Deps.now()
	return c.JSON(http.StatusOK, echo.Map{
		"daily":  sales.DailySales(st.Transactions, now),
		"movies": sales.MovieBreakdown(st.Transactions, now),
	})
}

// Transactions returns the user's sales transactions.
func (h *DashboardHandler) Transactions(c echo.Context) error {
	txs, err := h.Deps.APIFor(middleware.SessionFrom(c)).Transactions(c.Request().Context())
	if err != nil {
		return h.dataError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// dataError maps backend failures: a rejected token is 401 (the session is
// already gone), everything else is a bad gateway.
func (h *DashboardHandler) dataError(c echo.Context, err error) error {
	var se *apiclient.StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	if _, ok := middleware.SessionFrom(c).Token(c.Request().Context()); !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var ne *auth.NetworkError
	if errors.As(err, &ne) {
		h.Deps.logger().Warnw("backend unreachable", "op", ne.Op, "error", ne.Err)
	}
	msg := err.Error()
	if errors.Is(err, apiclient.ErrDashboardData) {
		msg = apiclient.ErrDashboardData.Error()
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": msg})
}

package handler // package handler contains the dashboard's HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is used by load balancers and monitoring to verify that the
// dashboard process is up. It does not touch the backend.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request through zap.
func RequestLogger(logger *zap.SugaredLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Infow("request",
				"date", time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
				"method", v.Method,
				"url", v.URI,
				"status", v.Status,
				"ip", v.RemoteIP,
				"user", userID(c),
				"latency_human", v.Latency.String(),
			)
			return nil
		},
	})
}

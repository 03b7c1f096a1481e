package main // Entry point package

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/leikapui/sales-dashboard/internal/apiclient"
	"github.com/leikapui/sales-dashboard/internal/auth"
	"github.com/leikapui/sales-dashboard/internal/config"
	"github.com/leikapui/sales-dashboard/internal/events"
	"github.com/leikapui/sales-dashboard/internal/gate"
	"github.com/leikapui/sales-dashboard/internal/handler"
	"github.com/leikapui/sales-dashboard/internal/middleware"
	"github.com/leikapui/sales-dashboard/internal/router"
	"github.com/leikapui/sales-dashboard/internal/session"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg)
	defer func() { _ = logger.Sync() }()
	logger.Infow("starting sales dashboard", "env", cfg.Env, "backend", cfg.APIBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sessions live in Redis when it is reachable, in memory otherwise.
	var storage session.Storage
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		storage = session.NewRedisStorage(rdb, cfg.SessionPrefix, cfg.SessionTTL)
		logger.Infow("sessions stored in redis", "addr", cfg.Redis.Addr)
	} else {
		mem := session.NewMemoryStorage(cfg.SessionTTL)
		sweeper, err := session.StartSweeper(mem, cfg.SweepSpec, logger)
		if err != nil {
			logger.Fatalw("invalid session sweep schedule", "spec", cfg.SweepSpec, "error", err)
		}
		defer sweeper.Stop()
		storage = mem
		logger.Warnw("redis unavailable, sessions kept in memory and login is not rate limited")
	}

	hub := events.NewHub(8)
	notifier := events.Multi{hub}
	if cfg.AMQPURL != "" {
		notifier = append(notifier, events.NewAMQPPublisher(cfg.AMQPURL, logger))
		go func() {
			if err := events.StartAuditConsumer(ctx, cfg.AMQPURL, cfg.AuditLogDir, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorw("session audit consumer stopped", "error", err)
			}
		}()
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	deps := &handler.Deps{
		Auth: auth.Config{
			BaseURL:      cfg.APIBaseURL,
			HTTPClient:   httpClient,
			ExpiryLeeway: cfg.TokenLeeway,
			Logger:       logger,
			Notifier:     notifier,
		},
		API: apiclient.Config{
			BaseURL:    cfg.APIBaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
		},
		Location: cfg.Location,
		Logger:   logger,
		Validate: validator.New(),
	}

	renderer, err := handler.NewRenderer(cfg.Location)
	if err != nil {
		logger.Fatalw("templates", "error", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())

	authHandler := handler.NewAuthHandler(deps)
	router.RegisterRoutes(e)
	router.RegisterDashboard(e, router.Routes{
		Session: middleware.Session(middleware.SessionConfig{
			CookieName: cfg.SessionCookie,
			TTL:        cfg.SessionTTL,
			Secure:     cfg.SecureCookie,
		}, storage),
		Protect:   middleware.Protect(gate.New(logger), deps.Authenticator, authHandler.Unauthenticated),
		LoginRate: middleware.NewTokenBucket(cfg.RateLimit, rdb, logger),
		Auth:      authHandler,
		Dashboard: handler.NewDashboardHandler(deps),
		Admin:     handler.NewAdminHandler(deps),
		Events:    handler.NewEventsHandler(hub),
	})

	// Request contexts end with the process so open event streams let go.
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	addr := ":" + cfg.Port
	go func() {
		logger.Infow("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("shutdown", "error", err)
	}
}

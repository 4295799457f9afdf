package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/claimcoder/internal/config"
	"github.com/ehr/claimcoder/internal/domain/billing"
	"github.com/ehr/claimcoder/internal/domain/coding"
	"github.com/ehr/claimcoder/internal/domain/encounter"
	"github.com/ehr/claimcoder/internal/domain/terminology"
	"github.com/ehr/claimcoder/internal/platform/auth"
	"github.com/ehr/claimcoder/internal/platform/db"
	"github.com/ehr/claimcoder/internal/platform/middleware"
	"github.com/ehr/claimcoder/internal/platform/telemetry"
)

const (
	version        = "0.1.0"
	requestTimeout = 30 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the coding API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(cfg.TracingEnabled, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	svcs, err := newServices(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	e := newRouter(cfg, logger, svcs, pool)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newRouter builds the HTTP surface. Health routes are public; everything
// under /api/v1 needs a bearer token outside development.
func newRouter(cfg *config.Config, logger zerolog.Logger, svcs *services, pinger db.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("2M"))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}
	e.Use(middleware.Logger(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pinger))

	api := e.Group("/api/v1", middleware.RequestTimeout(requestTimeout))
	coding.NewHandler(svcs.coding).RegisterRoutes(api)
	terminology.NewHandler(svcs.terminology).RegisterRoutes(api)
	billing.NewHandler(svcs.billing).RegisterRoutes(api)
	encounter.NewHandler(svcs.encounters).RegisterRoutes(api)

	return e
}

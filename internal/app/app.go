package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/estigate/estigate/internal/config"
	"github.com/estigate/estigate/internal/handlers"
	"github.com/estigate/estigate/internal/proxy"
	"github.com/estigate/estigate/internal/router"
	"github.com/estigate/estigate/internal/store"
	"github.com/estigate/estigate/internal/telemetry"
)

// App represents the main application: the estimates API server plus the
// optional dev gateway in front of it.
type App struct {
	config      *config.Config
	logger      *zap.Logger
	telemetry   *telemetry.Telemetry
	server      *http.Server
	proxyServer *http.Server
}

func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(logger)
	if err != nil {
		return nil, err
	}

	// Use the factory to create the estimate store
	factory := store.NewEstimateStoreFactory(logger, tel)
	estimateStore, err := factory.CreateStore(cfg.EstimateDBConfig)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPSLimit), cfg.RPSBurst)

	handlerList := []router.Handler{
		handlers.NewEstimateHandler(estimateStore, logger),
		handlers.NewHealthHandler(),
	}

	appRouter := router.NewRouter(limiter, tel, logger, handlerList)
	server := appRouter.CreateServer(":" + cfg.Port)

	app := &App{
		config:    cfg,
		logger:    logger,
		telemetry: tel,
		server:    server,
	}

	// The dev gateway only runs when a port is configured; production
	// deployments front the API some other way.
	if cfg.DevProxyPort != "" {
		proxyLogger := logger.Named("proxy")
		observer := func(setCookies []string) {
			proxyLogger.Info("upstream set-cookie observed",
				zap.Strings("set_cookie", setCookies))
		}
		devProxy, err := proxy.New(&proxy.Config{
			Rules:  proxy.DefaultRules(cfg.DevProxyUpstream, observer),
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		app.proxyServer = devProxy.CreateServer(":" + cfg.DevProxyPort)
	}

	return app, nil
}

// Start starts the application servers
func (app *App) start() error {
	app.logger.Info("starting server", zap.String("port", app.config.Port))

	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	if app.proxyServer != nil {
		app.logger.Info("starting dev gateway",
			zap.String("port", app.config.DevProxyPort),
			zap.String("upstream", app.config.DevProxyUpstream))
		go func() {
			if err := app.proxyServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.Fatal("dev gateway failed to start", zap.Error(err))
			}
		}()
	}

	return nil
}

// Stop gracefully shuts down the application
func (app *App) stop() error {
	app.logger.Info("shutting down...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var firstErr error
	if app.proxyServer != nil {
		if err := app.proxyServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("dev gateway forced to shutdown", zap.Error(err))
			firstErr = err
		}
	}
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server forced to shutdown", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := app.telemetry.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("failed to flush telemetry", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		app.logger.Info("exited gracefully")
	}
	return firstErr
}

// Run starts the application and waits for shutdown signals
func (app *App) Run() error {
	// Start the servers
	if err := app.start(); err != nil {
		return err
	}

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wait for shutdown signal
	<-ctx.Done()

	// Stop the application
	return app.stop()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/skyhue-weather/internal/citystore"
	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/config"
	httphandler "github.com/kjstillabower/skyhue-weather/internal/http"
	"github.com/kjstillabower/skyhue-weather/internal/kvstore"
	"github.com/kjstillabower/skyhue-weather/internal/observability"
	"github.com/kjstillabower/skyhue-weather/internal/preferences"
	"github.com/kjstillabower/skyhue-weather/internal/session"
	"github.com/kjstillabower/skyhue-weather/internal/weather"
)

const inFlightCheckInterval = 100 * time.Millisecond

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	weatherClient, geocoder, breaker, err := newClients(cfg)
	if err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := weatherClient.ValidateAPIKey(startCtx); errors.Is(err, client.ErrInvalidAPIKey) {
		return err
	} else if err != nil {
		logger.Warn("api key check inconclusive", zap.Error(err))
	}

	store, err := kvstore.Open(startCtx, cfg.StoreConfig(), logger)
	if err != nil {
		return err
	}

	aggregator := weather.NewAggregator(weatherClient, logger)
	sess := session.New(aggregator, geocoder, citystore.New(store, logger), preferences.New(store, logger), cfg.Units, logger)
	res := sess.Start(startCtx)
	logger.Info("saved cities loaded", zap.Int("refreshed", res.Refreshed), zap.Int("failed", res.Failed))

	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	if cfg.RefreshInterval > 0 {
		go func() {
			if err := sess.RefreshPeriodic(refreshCtx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("periodic refresh stopped", zap.Error(err))
			}
		}()
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(aggregator, geocoder, sess, cfg.Units, httphandler.HealthChecks{Store: store.Ping, WeatherAPI: breakerHealth(breaker)}, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterOptions{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("graceful shutdown triggered")
	handler.BeginShutdown()
	stopRefresh()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := httphandler.WaitForInFlight(shutdownCtx, inFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger, store); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// Package main is the entry point for the wlcmgr connection-manager daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nxp-wmsdk/wlcmgr/internal/apicontrol"
	"github.com/nxp-wmsdk/wlcmgr/internal/circuitbreaker"
	"github.com/nxp-wmsdk/wlcmgr/internal/config"
	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/driver/netlink"
	"github.com/nxp-wmsdk/wlcmgr/internal/driver/sim"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcm"
)

func main() {
	cfg := config.Get()

	setupLogging(cfg.LogLevel)

	log.Info().
		Str("version", cfg.Version).
		Str("listen", cfg.ListenAddr()).
		Str("backend", cfg.DriverBackend).
		Msg("Starting wlcmgr")

	drv, closer, src, err := initDriver(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize driver backend")
	}
	defer closer()

	mgr, err := wcm.New(wcm.Config{
		Interface:        cfg.Interface,
		MaxKnownNetworks: cfg.MaxKnownNetworks,
		RescanLimit:      cfg.RescanLimit,
		ReconnectLimit:   cfg.ReconnectLimit,
		AssocPauseOnMIC:  cfg.AssocPauseOnMIC,
		SleepConfirmTick: cfg.SleepConfirmTick,
		EventQueueDepth:  cfg.EventQueueDepth,
		DatabasePath:     cfg.DatabasePath,
		HistoryCapacity:  cfg.HistoryCapacity,
	}, drv, src, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble WCM core")
	}

	ctx, stopDaemon := context.WithCancel(context.Background())
	defer stopDaemon()

	hub := apicontrol.NewEventHub()
	if err := mgr.Start(ctx, hub.Publish); err != nil {
		log.Fatal().Err(err).Msg("Failed to start WCM core")
	}

	r := apicontrol.NewRouter(mgr, hub, cfg.JWTSecret, log.Logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr()).Msg("Control plane listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down wlcmgr...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Control plane forced to shutdown")
	}

	mgr.Stop(shutdownCtx)
	if err := mgr.Deinit(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Error during WCM deinit")
	}

	log.Info().Msg("wlcmgr stopped")
}

// setupLogging configures zerolog based on log level.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// initDriver builds the driver.Driver and event source for cfg's selected
// backend, wrapping it in a circuit breaker against the firmware/kernel
// link so repeated driver-command failures trip open instead of wedging
// the dispatcher goroutine in retries. closer releases any backend
// resources (netlink's generic-netlink socket); it is a no-op for sim.
func initDriver(cfg *config.Settings) (driver.Driver, func(), wcm.EventSource, error) {
	switch cfg.DriverBackend {
	case "sim":
		b := sim.New()
		return driver.NewGuarded(b, circuitbreaker.DefaultConfig()), func() {}, b, nil
	case "netlink":
		b, err := netlink.New(cfg.Interface)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("netlink backend: %w", err)
		}
		closer := func() {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing netlink backend")
			}
		}
		return driver.NewGuarded(b, circuitbreaker.DefaultConfig()), closer, b, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown driver backend %q (want sim or netlink)", cfg.DriverBackend)
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kodesesh/backend/internal/adapters/httpapi"
	"github.com/kodesesh/backend/internal/adapters/membus"
	"github.com/kodesesh/backend/internal/adapters/natsbus"
	"github.com/kodesesh/backend/internal/adapters/runner"
	"github.com/kodesesh/backend/internal/adapters/store"
	"github.com/kodesesh/backend/internal/adapters/ws"
	"github.com/kodesesh/backend/internal/app"
	"github.com/kodesesh/backend/internal/config"
	"github.com/kodesesh/backend/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger first; config.Load already logs.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	sessionStore, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	defer sessionStore.Close()

	// Each process gets a fresh instance identity; the bus uses it to keep
	// an instance from consuming its own mirrored events.
	instance := uuid.NewString()

	var bus core.Bus
	if b, err := natsbus.New(cfg.NATSURL, instance); err != nil {
		log.Warn().Err(err).Msg("bus unreachable, running local-only")
		bus = membus.NewHub().Endpoint(instance)
	} else {
		bus = b
	}
	defer bus.Close()

	registry := app.NewRegistry()
	relay := app.NewRelay(registry)
	gateway := ws.NewGateway(registry, relay, bus, ws.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	})
	gateway.Start()

	exec := runner.New(cfg.ExecDir)

	r := httpapi.SetupRouter(ctx, cfg, gateway, sessionStore, exec)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("instance", instance).Msg("kodesesh server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

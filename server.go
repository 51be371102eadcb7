package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hjeronen/FullStackGraphQL/graph"
	"github.com/hjeronen/FullStackGraphQL/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("LOGGER") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = logger

	cfg, err := graph.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	sqlDB, db, err := graph.Setup(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("setup database")
	}
	defer sqlDB.Close()

	bus := graph.NewEventBus(cfg.SubscriberSize)
	ds := graph.NewDataSource(db)
	resolver := &graph.Resolver{
		DS:  ds,
		Bus: bus,
		Auth: graph.AuthConfig{
			Secret:         cfg.TokenSecret,
			TTL:            cfg.TokenTTL,
			SharedPassword: cfg.LoginPassword,
		},
	}
	exec, err := graph.NewExecutor(resolver)
	if err != nil {
		logger.Fatal().Err(err).Msg("build schema")
	}

	authenticator := &transport.Authenticator{Secret: cfg.TokenSecret, Users: ds}
	ws := transport.NewWSHandler(exec, bus, authenticator)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           transport.Handler(logger, transport.NewHTTPHandler(exec), ws, authenticator),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msgf("server ready at http://localhost:%s/, playground at /playground", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	bus.Close()
	ws.Close()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dkovacev/chatter/internal/config"
	"github.com/dkovacev/chatter/internal/database"
	"github.com/dkovacev/chatter/internal/identity"
	postgresrepo "github.com/dkovacev/chatter/internal/repository/postgres"
	"github.com/dkovacev/chatter/internal/service"
	transporthttp "github.com/dkovacev/chatter/internal/transport/http"
	"github.com/dkovacev/chatter/internal/transport/http/handlers"
	"github.com/dkovacev/chatter/internal/transport/ws"
	"github.com/dkovacev/chatter/pkg/phone"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	if result, err := database.Migrate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("running migrations")
	} else if result.Changed {
		logger.Info().Uint("version", result.Version).Msg("migrations applied")
	}

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Repositories
	accountRepo := postgresrepo.NewAccountRepo(pool)
	convRepo := postgresrepo.NewConversationRepo(pool)
	msgRepo := postgresrepo.NewMessageRepo(pool)

	// Identity directory
	directory := identity.NewDirectory(accountRepo, phone.NewNormalizer(cfg.CountryCode))

	// Services
	authService := service.NewAuthService(accountRepo, directory, cfg.JWTSecret)
	convService := service.NewConversationService(convRepo, msgRepo, directory, logger)
	msgService := service.NewMessageService(msgRepo, convRepo, convService, directory, logger)
	readService := service.NewReadService(convRepo, msgRepo, directory, logger)

	// Live update fan-out
	hub := ws.NewHub(accountRepo, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	var publisher ws.Publisher = hub
	if cfg.RedisURL != "" {
		bridge, err := ws.NewRedisBridge(ctx, hub, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connecting to redis")
		}
		defer bridge.Close()
		publisher = bridge
		g.Go(func() error {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		logger.Info().Msg("redis event bridge enabled")
	}

	notifier := ws.NewHubNotifier(publisher, logger)
	convService.SetNotifier(notifier)
	msgService.SetNotifier(notifier)
	readService.SetNotifier(notifier)
	msgService.SetPresence(hub)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	convHandler := handlers.NewConversationHandler(convService, readService, logger)
	msgHandler := handlers.NewMessageHandler(msgService, logger)

	router := transporthttp.NewRouter(logger, cfg.JWTSecret, hub, authHandler, convHandler, msgHandler)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("server stopped")
}

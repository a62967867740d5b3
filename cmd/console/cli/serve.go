package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kompello/kompello-console/internal/app"
	"github.com/kompello/kompello-console/internal/auth"
	"github.com/kompello/kompello-console/internal/i18n"
	"github.com/kompello/kompello-console/internal/kompello"
	"github.com/kompello/kompello-console/internal/masterdata"
	"github.com/kompello/kompello-console/internal/observability"
	"github.com/kompello/kompello-console/internal/platform/cache"
	"github.com/kompello/kompello-console/internal/shared"
	"github.com/kompello/kompello-console/internal/users"
	"github.com/kompello/kompello-console/internal/view"
)

// NewServeCommand runs the HTTP server until the context is cancelled.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the console HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.InTestMode() {
				slog.Default().Info("test mode detected, skipping runtime startup")
				return nil
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *app.Config) error {
	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "console_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	bundle, err := i18n.NewBundle(cfg.DefaultLocale)
	if err != nil {
		return fmt.Errorf("build message catalog: %w", err)
	}
	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		return err
	}

	client, err := kompello.NewClient(kompello.Options{
		BaseURL: cfg.KompelloBaseURL,
		Timeout: cfg.KompelloTimeout,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	store := auth.NewStore(auth.NewFetcher(client, logger, metrics), auth.StoreOptions{
		CheckTimeout: cfg.AuthCheckTimeout,
		Logger:       logger,
		Recorder:     metrics,
	})
	defer store.Close()

	authService := auth.NewService(client, store, logger, metrics)
	authHandler := auth.NewHandler(logger, authService, store, templates, csrfManager, cfg.AuthSettleTimeout)
	masterDataHandler := masterdata.NewHandler(logger, masterdata.NewService(client), templates, store)
	usersHandler := users.NewHandler(logger, templates, bundle, users.NewService(client), store, cfg.AuthSettleTimeout)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Templates:         templates,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		Bundle:            bundle,
		AuthState:         store,
		AuthHandler:       authHandler,
		MasterDataHandler: masterDataHandler,
		UsersHandler:      usersHandler,
		Metrics:           metrics,
		Ping: func(r *http.Request) error {
			pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		},
	})

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	go auth.NewPoller(store, cfg.AuthPollInterval, logger).Run(ctx)

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("kompello", client.BaseURL()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/udms-pro/udms/cmd/udms/cli"
	"github.com/udms-pro/udms/internal/app"
	"github.com/udms-pro/udms/internal/assistant"
	"github.com/udms-pro/udms/internal/audit"
	audithttp "github.com/udms-pro/udms/internal/audit/http"
	"github.com/udms-pro/udms/internal/console"
	consolehttp "github.com/udms-pro/udms/internal/console/http"
	"github.com/udms-pro/udms/internal/lockdown"
	"github.com/udms-pro/udms/internal/notify"
	"github.com/udms-pro/udms/internal/observability"
	"github.com/udms-pro/udms/internal/platform/cache"
	"github.com/udms-pro/udms/internal/rbac"
	"github.com/udms-pro/udms/internal/session"
	"github.com/udms-pro/udms/internal/store"
	"github.com/udms-pro/udms/internal/telemetry"
	"github.com/udms-pro/udms/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(cmd *cobra.Command) error {
		return serve(cmd.Context())
	})
	if err := root.ExecuteContext(ctx); err != nil {
		var exit cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		slog.Default().Error("udms", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return nil
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	seed, err := store.LoadSeed(cfg.SeedPath)
	if err != nil {
		return err
	}
	entities := store.New()
	if err := entities.Replace(seed); err != nil {
		return fmt.Errorf("load seed: %w", err)
	}

	codec := session.NewCodec(cfg.SessionSecret)
	var sessions session.Store = session.NewMemoryStore(codec)
	var themes session.ThemeStore = &session.MemoryThemeStore{}
	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, session kept in memory", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			sessions = session.NewRedisStore(redisClient, cfg.SessionKey, codec, cfg.SessionTTL)
			themes = session.NewRedisThemeStore(redisClient, cfg.ThemeKey)
		}
	}

	var relay notify.Relay
	var jobHandler *jobs.Handler
	if cfg.NotifyRelay {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client, err := jobs.NewClient(redisOpts)
		if err != nil {
			return fmt.Errorf("notification relay: %w", err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("relay close", slog.Any("error", err))
			}
		}()
		relay = client

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	var collaborator assistant.Collaborator
	if cfg.AssistantURL != "" {
		collaborator = assistant.NewHTTPClient(cfg.AssistantURL,
			assistant.WithAPIKey(cfg.AssistantAPIKey),
			assistant.WithLogger(logger),
		)
	} else {
		logger.Info("assistant collaborator not configured, using offline fallbacks")
	}

	allow, err := cfg.LockdownTabs()
	if err != nil {
		return err
	}

	manager, err := console.NewManager(console.Deps{
		Store:    entities,
		Sessions: sessions,
		Themes:   themes,
		Lockdown: lockdown.New(allow),
		Audit: audit.NewLogger(cfg.AuditCapacity, audit.WithRecordHook(func(e audit.Entry) {
			metrics.ObserveAudit(string(e.Severity))
		})),
		Notify: notify.New(notify.Options{
			TTL:    cfg.NotificationTTL,
			Relay:  relay,
			Logger: logger,
			OnBroadcast: func(n notify.Notification) {
				metrics.ObserveNotification(string(n.Kind))
			},
		}),
		Assistant: assistant.NewService(collaborator, assistant.Config{
			Timeout:     cfg.AssistantTimeout,
			Concurrency: cfg.AssistantConcurrency,
		}, logger),
		Metrics: metrics,
		Logger:  logger,
		Telemetry: telemetry.Config{
			Interval:    cfg.TelemetryInterval,
			Probability: cfg.TelemetryProbability,
			Disabled:    cfg.TelemetryProbability == 0,
		},
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	if restored, err := manager.Restore(ctx); err != nil {
		logger.Warn("restore session", slog.Any("error", err))
	} else if restored != nil {
		logger.Info("session restored", slog.String("user_id", restored.UserID), slog.String("role", string(restored.Role)))
	}

	rbacMiddleware := rbac.Middleware{Gate: manager, Logger: logger}
	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ConsoleHandler:     consolehttp.NewHandler(logger, manager, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, manager, manager),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacMiddleware),
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/orcaflow/orcaflow/internal/app"
	"github.com/orcaflow/orcaflow/internal/auth"
	"github.com/orcaflow/orcaflow/internal/catalog"
	"github.com/orcaflow/orcaflow/internal/doctemplate"
	"github.com/orcaflow/orcaflow/internal/observability"
	"github.com/orcaflow/orcaflow/internal/pdf"
	"github.com/orcaflow/orcaflow/internal/quote"
	"github.com/orcaflow/orcaflow/internal/render"
	"github.com/orcaflow/orcaflow/internal/shared"
	"github.com/orcaflow/orcaflow/internal/users"
	"github.com/orcaflow/orcaflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "orcaflow_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	userRepo, err := users.NewRepository(cfg.DataDir)
	if err != nil {
		logger.Error("open user store", slog.Any("error", err))
		os.Exit(1)
	}
	userService := users.NewService(userRepo)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := userService.Bootstrap(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("bootstrap admin", slog.Any("error", err))
			os.Exit(1)
		}
	}
	usersHandler := users.NewHandler(logger, userService)

	authService := auth.NewService(userRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	catalogRepo, err := catalog.NewRepository(cfg.DataDir)
	if err != nil {
		logger.Error("open product store", slog.Any("error", err))
		os.Exit(1)
	}
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService, cfg.MaxUploadBytes)

	resolver, err := doctemplate.NewResolver(cfg.TemplatesDir)
	if err != nil {
		logger.Error("init template resolver", slog.Any("error", err))
		os.Exit(1)
	}
	templateHandler := doctemplate.NewHandler(logger, resolver)

	pdfStore, err := pdf.NewStore(cfg.PDFDir)
	if err != nil {
		logger.Error("init pdf store", slog.Any("error", err))
		os.Exit(1)
	}
	engine := pdf.NewEngine(cfg.GotenbergURL, cfg.PDFRenderTimeout, logger)
	defer engine.Shutdown(context.Background())

	renderer := render.NewRenderer(logger, cfg.LogoPath)

	quoteRepo, err := quote.NewRepository(cfg.DataDir)
	if err != nil {
		logger.Error("open quote store", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	quoteService := quote.NewService(logger, quoteRepo, catalogService, resolver, pdfStore)
	generator := quote.NewGenerator(logger, quoteService, resolver, renderer, engine, pdfStore, userService, metrics)
	quoteHandler := quote.NewHandler(logger, quoteService, generator)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		UsersHandler:    usersHandler,
		CatalogHandler:  catalogHandler,
		TemplateHandler: templateHandler,
		QuoteHandler:    quoteHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/orcaflow/orcaflow/internal/app"
	jobmetrics "github.com/orcaflow/orcaflow/internal/jobs"
	"github.com/orcaflow/orcaflow/internal/pdf"
	"github.com/orcaflow/orcaflow/internal/quote"
	"github.com/orcaflow/orcaflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	quoteRepo, err := quote.NewRepository(cfg.DataDir)
	if err != nil {
		logger.Error("open quote store", slog.Any("error", err))
		os.Exit(1)
	}
	pdfStore, err := pdf.NewStore(cfg.PDFDir)
	if err != nil {
		logger.Error("init pdf store", slog.Any("error", err))
		os.Exit(1)
	}

	sweeper := jobs.NewPDFSweeper(logger, quoteRepo, pdfStore, jobmetrics.NewMetrics(nil))

	sweepTask, err := jobs.NewPDFSweepTask(jobs.PDFSweepPayload{MinAge: time.Hour})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypePDFSweep, Handler: sweeper.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

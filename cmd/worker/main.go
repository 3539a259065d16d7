package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-quote/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-quote/internal/jobs"
	"github.com/odyssey-erp/odyssey-quote/internal/observability"
	"github.com/odyssey-erp/odyssey-quote/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
	"github.com/odyssey-erp/odyssey-quote/internal/quotes"
	"github.com/odyssey-erp/odyssey-quote/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registry := observability.NewMetrics()
	metrics := jobmetrics.NewMetrics(registry.Registerer())

	table := pricing.DefaultCostTable()
	rates := app.NewRateSources(cfg, table, redisClient, logger)
	calculator := pricing.NewCalculator(table, rates.Source, pricing.CalculatorConfig{
		ExternalTimeout: cfg.RateFeedTimeout,
		Logger:          logger,
	})
	quoteService := quotes.NewService(calculator, quotes.ServiceConfig{
		Store:  quotes.NewRedisStore(redisClient, cfg.QuoteTTL),
		Logger: logger,
	})

	annotateJob := jobs.NewQuoteAnnotateJob(quoteService, app.NewAnnotator(ctx, cfg, logger), logger, metrics)
	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskQuoteAnnotate, Handler: annotateJob.Handle},
	}
	var cron []jobs.CronRegistration
	if rates.Cache != nil {
		warmupJob := jobs.NewRatesWarmupJob(rates.Cache, logger, metrics)
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskRatesWarmup, Handler: warmupJob.Handle})

		warmupTask, err := jobs.NewRatesWarmupTask(jobs.RatesWarmupPayload{})
		if err != nil {
			logger.Error("build warmup task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    "*/10 * * * *",
			Task:    warmupTask,
			Options: []asynq.Option{asynq.MaxRetry(1), asynq.Unique(9 * time.Minute)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if metricsServer := app.NewMetricsServer(cfg, registry); metricsServer != nil {
		g.Go(func() error {
			logger.Info("serving worker metrics", slog.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

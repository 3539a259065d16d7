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
	"github.com/odyssey-erp/odyssey-quote/internal/observability"
	"github.com/odyssey-erp/odyssey-quote/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
	"github.com/odyssey-erp/odyssey-quote/internal/quotes"
	"github.com/odyssey-erp/odyssey-quote/jobs"
	"github.com/odyssey-erp/odyssey-quote/report"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	table := pricing.DefaultCostTable()
	rates := app.NewRateSources(cfg, table, redisClient, logger)
	calculator := pricing.NewCalculator(table, rates.Source, pricing.CalculatorConfig{
		ExternalTimeout: cfg.RateFeedTimeout,
		Logger:          logger,
	})

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	quoteService := quotes.NewService(calculator, quotes.ServiceConfig{
		Store:       quotes.NewRedisStore(redisClient, cfg.QuoteTTL),
		Annotations: jobClient,
		Metrics:     quotes.NewMetrics(metrics.Registerer()),
		Logger:      logger,
	})

	handlerCfg := quotes.HandlerConfig{
		Extractor:    app.NewExtractor(ctx, cfg, logger),
		ExposeErrors: !cfg.IsProduction(),
	}
	var reportHandler *report.Handler
	if cfg.GotenbergURL != "" {
		pdfClient := report.NewClient(cfg.GotenbergURL, report.DefaultTimeout)
		handlerCfg.Documents = report.NewQuoteRenderer(pdfClient)
		reportHandler = report.NewHandler(pdfClient, logger)
	}
	quoteHandler := quotes.NewHandler(logger, quoteService, handlerCfg)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		QuoteHandler:  quoteHandler,
		JobHandler:    jobHandler,
		ReportHandler: reportHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/splitdue/splitdue/internal/charge"
	"github.com/splitdue/splitdue/internal/config"
	"github.com/splitdue/splitdue/internal/infra"
	"github.com/splitdue/splitdue/internal/installment"
	"github.com/splitdue/splitdue/internal/jobs"
	"github.com/splitdue/splitdue/internal/logging"
	"github.com/splitdue/splitdue/internal/processor"
	"github.com/splitdue/splitdue/internal/scheduler"
	"github.com/splitdue/splitdue/internal/settlement"
	"github.com/splitdue/splitdue/internal/wallet"
	"github.com/splitdue/splitdue/internal/webhook"
	"github.com/splitdue/splitdue/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	// The worker mutates shared state; it never falls back to memory stores.
	if cfg.DatabaseURL == "" || cfg.RedisURL == "" {
		logger.Error("worker requires DATABASE_URL and REDIS_URL")
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := infra.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Error("run migrations", "error", err)
		os.Exit(1)
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}()

	walletStore := wallet.NewPostgresStore(db)
	chargeStore := charge.NewPostgresStore(db)
	installmentStore := installment.NewPostgresStore(db)
	webhookStore := webhook.NewPostgresStore(db)
	queue := jobs.NewRedisQueue(cache)

	var proc processor.Client = processor.Static{}
	if cfg.ProcessorURL != "" {
		proc = processor.NewHTTPClient(cfg.ProcessorURL, cfg.ProcessorKey, 30*time.Second)
	} else {
		logger.Warn("no PROCESSOR_URL configured, approving all external charges")
	}

	engine := settlement.NewEngine(walletStore, chargeStore, installmentStore, proc, queue,
		logging.Component(logger, "settlement"))
	dispatcher := webhook.NewDispatcher(chargeStore, webhookStore, cfg.WebhookURLs, cfg.WebhookTimeout,
		logging.Component(logger, "webhook"))
	pool := worker.NewPool(queue, engine, dispatcher, cfg.WorkerCount,
		logging.Component(logger, "worker"))

	installmentSvc := installment.NewService(installmentStore, chargeStore, queue,
		logging.Component(logger, "installment"))
	sched, err := scheduler.New(installmentSvc, cfg.DueSchedule, logging.Component(logger, "scheduler"))
	if err != nil {
		logger.Error("build scheduler", "error", err)
		os.Exit(1)
	}

	runCtx, cancel := context.WithCancel(ctx)
	poolDone := make(chan struct{})
	go func() {
		pool.Run(runCtx)
		close(poolDone)
	}()
	sched.Start()

	logger.Info("worker started", "workers", cfg.WorkerCount, "schedule", cfg.DueSchedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	sched.Stop()
	cancel()

	select {
	case <-poolDone:
		logger.Info("worker exited cleanly")
	case <-time.After(cfg.ShutdownPeriod):
		logger.Warn("worker shutdown timed out")
	}
}

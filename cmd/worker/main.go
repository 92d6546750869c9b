package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"timeclock/internal/clock"
	"timeclock/internal/config"
	"timeclock/internal/consolidation"
	"timeclock/internal/metrics"
	"timeclock/internal/queue"
	"timeclock/internal/store"
)

// Worker consumes consolidation requests and recomputes daily summaries.
// Runs are idempotent, so a redelivered or repeated request is harmless.
func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "timeclock:consolidation")
	}

	repo := clock.NewPostgresRepository(db.Client)
	consolidator := consolidation.New(repo, cfg.OvertimeAfter, logger)

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for messages")
	for msg := range messages {
		if msg.Type != consolidation.MessageType {
			continue
		}

		employeeID, day, err := consolidation.DecodeRequest(string(msg.Body))
		if err != nil {
			logger.Warn("dropping malformed message", zap.Error(err))
			continue
		}

		run := func() error {
			return consolidator.Run(ctx, employeeID, day)
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
		if err := backoff.RetryNotify(run, policy, func(err error, _ time.Duration) {
			metrics.ConsolidationRuns.WithLabelValues("retry").Inc()
		}); err != nil {
			metrics.ConsolidationRuns.WithLabelValues("failed").Inc()
			logger.Error("consolidation failed after retries",
				zap.String("employee_id", employeeID),
				zap.String("day", day.Format("2006-01-02")),
				zap.Error(err),
			)
			continue
		}

		metrics.ConsolidationRuns.WithLabelValues("ok").Inc()
	}

	logger.Info("worker stopped")
}

func newLogger(env string) *zap.Logger {
	if env == "production" || env == "prod" {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}

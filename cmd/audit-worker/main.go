package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/invictos/bet-ledger/internal/audit"
	"github.com/invictos/bet-ledger/internal/shared/config"
	"github.com/invictos/bet-ledger/internal/shared/db"
	"github.com/invictos/bet-ledger/internal/shared/kafka"
	"github.com/invictos/bet-ledger/internal/shared/logger"
	"github.com/invictos/bet-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "audit-worker"
	}
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetChanged, "audit-worker")
	defer reader.Close()

	var dlq audit.MessageWriter
	if cfg.TopicBetChangedDLQ != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetChangedDLQ)
		defer w.Close()
		dlq = w
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("audit-worker started",
		zap.String("consume", cfg.TopicBetChanged),
		zap.String("dlq", cfg.TopicBetChangedDLQ),
	)

	w := audit.NewWorker(log, &audit.PGSink{DB: pg}, dlq)
	w.Run(ctx, reader)
}

package main

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/invictos/bet-ledger/internal/ledger-service/auth"
	lcache "github.com/invictos/bet-ledger/internal/ledger-service/cache"
	"github.com/invictos/bet-ledger/internal/ledger-service/httpapi"
	kpub "github.com/invictos/bet-ledger/internal/ledger-service/producer"
	"github.com/invictos/bet-ledger/internal/ledger-service/repo"
	"github.com/invictos/bet-ledger/internal/shared/cache"
	"github.com/invictos/bet-ledger/internal/shared/config"
	"github.com/invictos/bet-ledger/internal/shared/db"
	"github.com/invictos/bet-ledger/internal/shared/kafka"
	"github.com/invictos/bet-ledger/internal/shared/logger"
	"github.com/invictos/bet-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-service"
	}
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()
	if err := repo.EnsureSchema(context.Background(), pg); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Redis
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer (topic bet_changed)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetChanged)
	defer writer.Close()

	// deps
	repository := repo.NewPostgres(pg)
	betList := lcache.NewBetList(rdb)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpMinutes)
	publ := kpub.NewKafkaPublisher(writer, cfg.TopicBetChanged)
	origins := strings.Split(cfg.AllowedOrigins, ",")

	api := httpapi.NewServer(log, repository, tokens, betList, origins, publ)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("ledger-service listening",
		zap.String("addr", apiSrv.Addr),
		zap.String("metrics", ":"+cfg.MetricsPort),
	)
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

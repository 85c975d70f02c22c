package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/logx"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-restocker"

	log, err := logx.New(name, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}
	// Restocks must land in the store the API reads.
	if err := cfg.RequireDriver(config.DriverPostgres); err != nil {
		log.Fatal("storage driver", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.DB.PostgresDSN())
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	svc := &inventory.Service{
		Catalog: &orders.Catalog{Store: &orders.Repo{DB: db}},
		Log:     log,
	}

	// Redis: event dedup + report cache invalidation
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		svc.Dedup = &redisx.Dedup{Redis: rdb, Service: name}
		svc.Reports = &redisx.ReportCache{Redis: rdb, TTL: cfg.ReportCacheTTL, Log: log}
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.RestockGroup, orders.TopicProductRestocked, cfg.RestockWorkers, log)
	log.Info("restock consumer started",
		zap.String("group", cfg.RestockGroup),
		zap.String("topic", orders.TopicProductRestocked),
		zap.Int("workers", cfg.RestockWorkers))
	if err := cons.Start(ctx, svc.HandleRestock); err != nil {
		log.Error("consumer exit", zap.Error(err))
		return
	}
	log.Info("restock consumer stopped")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/logx"
	"github.com/ariefcatur/go-inventory-orders/internal/memstore"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logx.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var store orders.Store
	switch cfg.StorageDriver {
	case config.DriverMemory:
		log.Warn("using in-memory storage; data is lost on exit")
		store = memstore.New()
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.DB.PostgresDSN())
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Fatal("db schema", zap.Error(err))
		}
		store = &orders.Repo{DB: db}
	default:
		log.Fatal("unknown storage driver", zap.String("driver", cfg.StorageDriver))
	}

	h := &httpx.OrdersHandler{
		Placer:  orders.NewPlacer(store, log.Named("placer"), cfg.OrderTimeout),
		Catalog: &orders.Catalog{Store: store},
		Service: cfg.ServiceName,
		Log:     log,
	}

	// Redis report cache (optional)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		h.Reports = &redisx.ReportCache{Redis: rdb, TTL: cfg.ReportCacheTTL, Log: log.Named("report-cache")}
	}

	// Kafka producer (optional)
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log.Named("producer"))
		prod.Start()
		h.Producer = prod
	}

	router := httpx.NewRouter(log)
	h.Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close()
	}
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/api/routes"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/gas"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/pricing"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/store"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/infrastructure/backend"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/infrastructure/cache"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/infrastructure/config"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/infrastructure/quotes"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/infrastructure/stream"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/session"
	"github.com/Fortis-Ledger/payoova2-sub000/pkg/graceful"
	"github.com/Fortis-Ledger/payoova2-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting wallet core",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
	)

	st := store.New(log)

	// Price feed with an optional Redis snapshot layer behind the
	// in-process cache
	var snapshots pricing.SnapshotStore
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisSnapshotStore(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			log.Warn("Redis unavailable, running without snapshot store", zap.Error(err))
		} else {
			snapshots = redisStore
		}
	}
	priceClient := quotes.NewPriceClient(cfg.Pricing.Endpoint, log)
	prices := pricing.NewCache(priceClient, snapshots, cfg.Pricing.TTL, cfg.Pricing.StaleCeiling, log)

	var gasSource gas.QuoteSource
	var rpcSource *quotes.RPCGasSource
	if cfg.Gas.Source == "rpc" {
		rpcSource = quotes.NewRPCGasSource(cfg.Gas.RPCEndpoints, log)
		gasSource = rpcSource
	} else {
		gasSource = quotes.NewGasClient(cfg.Gas.Endpoint, log)
	}
	estimator := gas.NewEstimator(gasSource, cfg.Gas.TTL, log)

	backendClient := backend.NewClient(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		APIKey:     cfg.Backend.APIKey,
		Timeout:    cfg.Backend.Timeout,
		MaxRetries: cfg.Backend.MaxRetries,
	}, log)

	transport, err := stream.NewNATSTransport(stream.NATSConfig{
		URL:           cfg.Stream.NATSURL,
		SubjectPrefix: cfg.Stream.SubjectPrefix,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}

	sessions := session.NewManager(st, estimator, backendClient, transport, session.ReconcilerConfig{
		Interval: cfg.Reconciler.Interval,
		CronSpec: cfg.Reconciler.CronSpec,
	}, log)

	router := routes.SetupRoutes(cfg, sessions, st, prices, estimator, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	shutdownManager := graceful.NewShutdownManager(server, log)
	shutdownManager.Register(sessions)
	shutdownManager.Register(transport)
	if rpcSource != nil {
		shutdownManager.Register(rpcSource)
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	shutdownManager.WaitForShutdown()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	logpkg "github.com/caramaschiHG/Dilutio/common/logger"
	redispkg "github.com/caramaschiHG/Dilutio/common/redis"
	"github.com/caramaschiHG/Dilutio/internal/aggregator"
	"github.com/caramaschiHG/Dilutio/internal/config"
	httpapi "github.com/caramaschiHG/Dilutio/internal/http"
	"github.com/caramaschiHG/Dilutio/internal/metrics"
	"github.com/caramaschiHG/Dilutio/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "dilutio")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting dilutio service",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// 缓存后端
	kv, closeKV, err := newKVStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize cache backend", zap.Error(err))
	}
	defer closeKV()

	cache := aggregator.NewCacheManager(cfg, kv, m, log)
	agg := aggregator.NewBatchAggregator(cfg, cache, m, log)
	svc := service.NewCompoundingService(agg, cfg.Densities, m, time.Now, log)

	router := httpapi.NewRouter(m, log)
	router.RegisterCompoundingRoutes(httpapi.NewCompoundingHandler(svc, log))
	router.RegisterHealthRoutes()
	router.RegisterMetricsRoute()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("Server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Error("Error stopping server", zap.Error(err))
	}

	log.Info("Service stopped")
}

// newKVStore 按 CACHE_BACKEND 选择 Redis 或进程内缓存
func newKVStore(cfg *config.Config, log *zap.Logger) (aggregator.KVStore, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := redispkg.Connect(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using redis calculation cache", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
		return aggregator.NewRedisKVStore(client), func() {
			if err := client.Close(); err != nil {
				log.Warn("Failed to close redis client", zap.Error(err))
			}
		}, nil
	case "memory", "":
		return aggregator.NewMemoryKVStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Package main is the entrypoint for the pool instance daemon. It loads
// configuration, starts the connection pool manager, and exposes health
// and metrics HTTP surfaces, with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jbrasil/docpool/internal/clock"
	"github.com/jbrasil/docpool/internal/config"
	"github.com/jbrasil/docpool/internal/events"
	"github.com/jbrasil/docpool/internal/health"
	"github.com/jbrasil/docpool/internal/metrics"
	"github.com/jbrasil/docpool/internal/pool"
	"github.com/jbrasil/docpool/internal/wire"
)

var (
	instanceConfigPath = flag.String("config", "configs/instance.yaml", "Path to instance configuration file")
	poolsConfigPath    = flag.String("pools", "configs/pools.yaml", "Path to pools configuration file")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[main] starting docpool instance")

	cfg, err := config.Load(*instanceConfigPath, *poolsConfigPath)
	if err != nil {
		log.Fatalf("[main] failed to load configuration: %v", err)
	}
	log.Printf("[main] configuration loaded: %d pools, instance=%s", len(cfg.Pools), cfg.Instance.InstanceID)

	for _, p := range cfg.Pools {
		log.Printf("[main]   pool %s -> %s:%d (max=%d, min=%d)", p.ID, p.Host, p.Port, p.MaxPoolSize, p.MinPoolSize)
	}

	for _, p := range cfg.Pools {
		label := p.Address().String()
		metrics.ConnectionsActive.WithLabelValues(label).Set(0)
		metrics.ConnectionsIdle.WithLabelValues(label).Set(0)
		metrics.ConnectionsMax.WithLabelValues(label).Set(float64(p.MaxPoolSize))
		metrics.QueueLength.WithLabelValues(label).Set(0)
	}
	metrics.InstanceHeartbeat.WithLabelValues(cfg.Instance.InstanceID).Set(1)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Instance.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[main] metrics server listening on :%d/metrics", cfg.Instance.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[main] metrics server error: %v", err)
		}
	}()

	log.Println("[main] initializing distributed event publisher...")
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	publisher := events.NewRedisPublisher(redisClient, cfg.Instance.InstanceID)
	publisher.StartHeartbeat(context.Background(), cfg.Redis.HeartbeatInterval, cfg.Redis.HeartbeatTTL)
	defer func() {
		log.Println("[main] closing event publisher...")
		publisher.Close()
		if err := redisClient.Close(); err != nil {
			log.Printf("[main] redis client close error: %v", err)
		}
	}()

	log.Println("[main] initializing pool manager...")
	factory := &wire.TCPFactory{DialTimeout: 5 * time.Second}
	poolMgr, err := pool.NewManager(context.Background(), cfg, factory, publisher, clock.Real{})
	if err != nil {
		log.Fatalf("[main] failed to initialize pool manager: %v", err)
	}
	defer func() {
		log.Println("[main] closing pool manager...")
		poolMgr.Close()
	}()

	reapCtx, reapCancel := context.WithCancel(context.Background())
	defer reapCancel()
	for id, p := range poolMgr.Pools() {
		log.Printf("[main]   pool %s ready: pool_size=%d", id, p.PoolSize())
		p.StartReaper(reapCtx, 30*time.Second)
	}

	log.Println("[main] initializing health checker...")
	checker := health.NewChecker(cfg, poolMgr.Pools())
	healthServer := checker.ServeHTTP(context.Background())
	log.Printf("[main] health check server listening on :%d/health", cfg.Instance.HealthCheckPort)

	log.Println("[main] running initial health check...")
	report := checker.Check(context.Background())
	for _, comp := range report.Components {
		log.Printf("[main]   %s: %s (status=%s, latency=%s)", comp.Name, comp.Message, comp.Status, comp.Latency)
	}
	log.Printf("[main] overall health: %s", report.Status)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Println("[main] instance is ready, waiting for shutdown signal...")
	sig := <-sigCh
	log.Printf("[main] received signal %v, shutting down gracefully...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	metrics.InstanceHeartbeat.WithLabelValues(cfg.Instance.InstanceID).Set(0)

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] health server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] metrics server shutdown error: %v", err)
	}
	if err := checker.Close(); err != nil {
		log.Printf("[main] health checker close error: %v", err)
	}

	log.Println("[main] shutdown complete.")
}

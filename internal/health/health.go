// Package health provides HTTP health-check endpoints for the pool
// instance: a checkout/return round trip against each configured pool and
// a PING against the Redis event bus.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jbrasil/docpool/internal/config"
	"github.com/jbrasil/docpool/internal/pool"
	"github.com/redis/go-redis/v9"
)

// Status represents the health of a single component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

// Report is the overall health report.
type Report struct {
	Status     Status            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	InstanceID string            `json:"instance_id"`
	Components []ComponentHealth `json:"components"`
}

// Checker runs health checks against the Redis event bus and every pool
// the instance owns.
type Checker struct {
	cfg         *config.Config
	redisClient *redis.Client
	pools       map[string]*pool.Pool
}

// NewChecker builds a health checker for the given pools, keyed by the
// same pool ID used in the pools configuration file.
func NewChecker(cfg *config.Config, pools map[string]*pool.Pool) *Checker {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	return &Checker{
		cfg:         cfg,
		redisClient: rdb,
		pools:       pools,
	}
}

// Close releases the checker's own resources (its Redis client; it does
// not own the pools it checks).
func (c *Checker) Close() error {
	return c.redisClient.Close()
}

// Check runs health checks against every component and returns a report.
func (c *Checker) Check(ctx context.Context) *Report {
	report := &Report{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		InstanceID: c.cfg.Instance.InstanceID,
	}

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		components []ComponentHealth
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ch := c.checkRedis(ctx)
		mu.Lock()
		components = append(components, ch)
		mu.Unlock()
	}()

	for id, p := range c.pools {
		id, p := id, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := c.checkPool(ctx, id, p)
			mu.Lock()
			components = append(components, ch)
			mu.Unlock()
		}()
	}

	wg.Wait()

	report.Components = components

	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			report.Status = StatusUnhealthy
			break
		}
	}

	return report
}

// checkRedis verifies connectivity to the Redis event bus.
func (c *Checker) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result := c.redisClient.Ping(ctx)
	latency := time.Since(start)

	if result.Err() != nil {
		return ComponentHealth{
			Name:    "redis",
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("PING failed: %v", result.Err()),
			Latency: latency.String(),
		}
	}

	return ComponentHealth{
		Name:    "redis",
		Status:  StatusHealthy,
		Message: "PONG",
		Latency: latency.String(),
	}
}

// checkPool verifies a pool is reachable by checking out a connection and
// immediately returning it, then asserts the pool's own invariants hold.
func (c *Checker) checkPool(ctx context.Context, id string, p *pool.Pool) ComponentHealth {
	start := time.Now()
	name := fmt.Sprintf("pool-%s", id)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := p.Checkout(ctx)
	latency := time.Since(start)
	if err != nil {
		return ComponentHealth{
			Name:    name,
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("checkout failed: %v", err),
			Latency: latency.String(),
		}
	}
	p.Return(conn)

	if err := p.CheckInvariants(); err != nil {
		return ComponentHealth{
			Name:    name,
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("invariant check failed: %v", err),
			Latency: latency.String(),
		}
	}

	return ComponentHealth{
		Name:    name,
		Status:  StatusHealthy,
		Message: fmt.Sprintf("pool_size=%d queue_size=%d generation=%d", p.PoolSize(), p.QueueSize(), p.Generation()),
		Latency: latency.String(),
	}
}

// ServeHTTP starts the health-check HTTP server.
func (c *Checker) ServeHTTP(ctx context.Context) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		report := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(report)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		report := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(report)
	})

	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	addr := fmt.Sprintf(":%d", c.cfg.Instance.HealthCheckPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("[health] HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[health] HTTP server error: %v", err)
		}
	}()

	return server
}

// Package main is a load generator that drives checkout/return cycles
// against one configured pool, to observe wait-queue backpressure under
// concurrent load. It sets no max_idle_time and starts no reaper, so idle
// reaping is not exercised.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jbrasil/docpool/internal/clock"
	"github.com/jbrasil/docpool/internal/pool"
	"github.com/jbrasil/docpool/internal/wire"
	"github.com/jbrasil/docpool/pkg/address"
)

var (
	host        = flag.String("host", "127.0.0.1", "Target server host")
	port        = flag.Int("port", 27017, "Target server port")
	maxPoolSize = flag.Int("max-pool-size", 10, "Pool max_pool_size")
	minPoolSize = flag.Int("min-pool-size", 2, "Pool min_pool_size")
	waitTimeout = flag.Duration("wait-timeout", time.Second, "Pool wait_queue_timeout")
	concurrency = flag.Int("concurrency", 20, "Number of concurrent worker goroutines")
	holdTime    = flag.Duration("hold-time", 50*time.Millisecond, "Time each worker holds its connection before returning it")
	duration    = flag.Duration("duration", 10*time.Second, "Total run duration")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Println("=== docpool load generator ===")
	log.Printf("target=%s:%d max_pool_size=%d min_pool_size=%d concurrency=%d duration=%s",
		*host, *port, *maxPoolSize, *minPoolSize, *concurrency, *duration)

	p, err := pool.New(pool.Options{
		Address:     address.New(*host, *port),
		MaxPoolSize: *maxPoolSize,
		MinPoolSize: *minPoolSize,
		WaitTimeout: *waitTimeout,
		Factory:     &wire.TCPFactory{DialTimeout: 5 * time.Second},
		Clock:       clock.Real{},
	})
	if err != nil {
		log.Fatalf("failed to build pool: %v", err)
	}
	defer p.Close()

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		timedOut  atomic.Int64
		failed    atomic.Int64
	)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for ctx.Err() == nil {
				conn, err := p.Checkout(ctx)
				if err != nil {
					if _, ok := err.(*pool.WaitQueueTimeoutError); ok {
						timedOut.Add(1)
					} else {
						failed.Add(1)
					}
					continue
				}
				time.Sleep(*holdTime)
				p.Return(conn)
				succeeded.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println()
	fmt.Println("=== results ===")
	fmt.Printf("elapsed:        %s\n", elapsed)
	fmt.Printf("succeeded:      %d\n", succeeded.Load())
	fmt.Printf("timed out:      %d\n", timedOut.Load())
	fmt.Printf("failed:         %d\n", failed.Load())
	fmt.Printf("final pool_size: %d, queue_size: %d, generation: %d\n", p.PoolSize(), p.QueueSize(), p.Generation())
}

// RedisPublisher fans ConnectionClosed events out over Redis Pub/Sub so
// monitoring subscribers running in other processes observe the same pool
// lifecycle events a local subscriber would. Adapted from the teacher's
// internal/coordinator/redis.go (Pub/Sub half only — the Lua-scripted
// cross-instance admission-control half is dropped, see DESIGN.md) and its
// internal/coordinator/heartbeat.go (instance liveness announcement).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jbrasil/docpool/internal/metrics"
	"github.com/jbrasil/docpool/pkg/address"
)

const (
	keyEventsChannel = "docpool:events:%s"             // Pub/Sub channel per address
	keyInstanceHB    = "docpool:instance:%s:heartbeat" // TTL'd liveness key
)

// wireEvent is the JSON form of ConnectionClosed published on the wire.
type wireEvent struct {
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	ConnectionID string    `json:"connection_id"`
	Reason       Reason    `json:"reason"`
	At           time.Time `json:"at"`
}

// RedisPublisher publishes ConnectionClosed events to Redis and, when
// started, announces this process's liveness via a heartbeat key.
type RedisPublisher struct {
	client     redis.UniversalClient
	instanceID string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRedisPublisher wraps an existing Redis client. The caller owns the
// client's lifecycle (Close is not called by RedisPublisher.Close).
func NewRedisPublisher(client redis.UniversalClient, instanceID string) *RedisPublisher {
	return &RedisPublisher{
		client:     client,
		instanceID: instanceID,
		stopCh:     make(chan struct{}),
	}
}

// Publish implements Publisher. Redis errors are logged and swallowed —
// event delivery to monitoring subscribers is best-effort and must never
// feed back into pool state.
func (p *RedisPublisher) Publish(evt ConnectionClosed) {
	payload, err := json.Marshal(wireEvent{
		Host:         evt.Address.Host,
		Port:         evt.Address.Port,
		ConnectionID: evt.ConnectionID,
		Reason:       evt.Reason,
		At:           evt.At,
	})
	if err != nil {
		log.Printf("[events] marshal failed for %s: %v", evt.Address, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	channel := fmt.Sprintf(keyEventsChannel, evt.Address.String())
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("[events] publish to %s failed: %v", channel, err)
		metrics.RedisOperations.WithLabelValues("publish", "error").Inc()
		return
	}
	metrics.RedisOperations.WithLabelValues("publish", "ok").Inc()
}

// Subscribe returns a channel of raw JSON payloads published for addr.
// Intended for the monitoring subscriber registry (out of scope for this
// module) to build on.
func (p *RedisPublisher) Subscribe(ctx context.Context, addr address.Address) <-chan string {
	channel := fmt.Sprintf(keyEventsChannel, addr.String())
	sub := p.client.Subscribe(ctx, channel)

	out := make(chan string, 32)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
					// Slow consumer: drop rather than block the fan-out goroutine.
				}
			}
		}
	}()

	return out
}

// StartHeartbeat announces this process's liveness every interval until the
// context is cancelled or Close is called, mirroring the teacher's
// Heartbeat worker.
func (p *RedisPublisher) StartHeartbeat(ctx context.Context, interval, ttl time.Duration) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.sendHeartbeat(ctx, ttl)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sendHeartbeat(ctx, ttl)
			}
		}
	}()
}

func (p *RedisPublisher) sendHeartbeat(ctx context.Context, ttl time.Duration) {
	key := fmt.Sprintf(keyInstanceHB, p.instanceID)
	hbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.client.Set(hbCtx, key, time.Now().Unix(), ttl).Err(); err != nil {
		log.Printf("[events] heartbeat failed for instance %s: %v", p.instanceID, err)
		metrics.RedisOperations.WithLabelValues("heartbeat", "error").Inc()
		metrics.InstanceHeartbeat.WithLabelValues(p.instanceID).Set(0)
		return
	}
	metrics.RedisOperations.WithLabelValues("heartbeat", "ok").Inc()
	metrics.InstanceHeartbeat.WithLabelValues(p.instanceID).Set(1)
}

// Close stops the heartbeat loop and any active subscriptions.
func (p *RedisPublisher) Close() {
	close(p.stopCh)
	p.wg.Wait()
}

// Package relay pushes finished-game results onto a Redis queue for
// out-of-process consumers (stats dashboards and the like). It is a
// boundary hook: the server is fully functional without it, and a push
// failure is logged and forgotten, never surfaced to players.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/awale-live/awale/internal/game"
)

// DefaultQueue is the Redis list results are pushed to.
const DefaultQueue = "awale_results"

// Relay owns the Redis client. A nil *Relay is valid and drops
// everything.
type Relay struct {
	client *redis.Client
	queue  string
	log    *logrus.Logger
}

// New connects to Redis at addr and verifies the connection. An empty
// queue name falls back to DefaultQueue.
func New(addr, queue string, log *logrus.Logger) (*Relay, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &Relay{client: client, queue: queue, log: log}, nil
}

// PublishResult serializes the result and pushes it onto the queue.
func (r *Relay) PublishResult(res game.Result) {
	if r == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		r.log.Warnf("relay: marshal result for game %d: %v", res.GameID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.client.RPush(ctx, r.queue, data).Err(); err != nil {
		r.log.Warnf("relay: push result for game %d: %v", res.GameID, err)
	}
}

// Close releases the Redis client.
func (r *Relay) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}

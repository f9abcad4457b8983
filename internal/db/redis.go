package db

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis manages the optional world-state snapshot cache. A nil-connection
// Redis degrades every method to a no-op/miss.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a new Redis client. An empty addr returns a disconnected
// Redis rather than an error.
func NewRedis(addr string) (*Redis, error) {
	if addr == "" {
		return &Redis{}, nil
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	log.Println("Connected to Redis")
	return &Redis{client: client}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// IsConnected returns true if Redis is connected.
func (r *Redis) IsConnected() bool {
	return r != nil && r.client != nil
}

func snapshotKey(sessionID string) string {
	return "arena:snapshot:" + sessionID
}

// SetSnapshot caches the latest full-sync payload for sessionID, for fast
// reattach without replaying the event log.
func (r *Redis) SetSnapshot(ctx context.Context, sessionID string, snapshot interface{}, ttl time.Duration) error {
	if !r.IsConnected() {
		return nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, snapshotKey(sessionID), data, ttl).Err()
}

// GetSnapshot returns the cached payload for sessionID, or (nil, false) on a
// miss or disconnected Redis.
func (r *Redis) GetSnapshot(ctx context.Context, sessionID string) ([]byte, bool) {
	if !r.IsConnected() {
		return nil, false
	}
	data, err := r.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// PublishTick fans a marshaled tick payload out over a Redis pub/sub
// channel, letting other server processes mirror a session's stream.
func (r *Redis) PublishTick(ctx context.Context, sessionID string, data []byte) error {
	if !r.IsConnected() {
		return nil
	}
	return r.client.Publish(ctx, "arena:tick:"+sessionID, data).Err()
}

// SubscribeTick subscribes to sessionID's tick channel. Callers must close
// the returned subscription.
func (r *Redis) SubscribeTick(ctx context.Context, sessionID string) (*redis.PubSub, error) {
	if !r.IsConnected() {
		return nil, nil
	}
	return r.client.Subscribe(ctx, "arena:tick:"+sessionID), nil
}

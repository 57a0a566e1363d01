package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentstation/homestay/pkg/constants"
	"github.com/agentstation/homestay/pkg/errors"
	"github.com/agentstation/homestay/pkg/homestay"
)

// Redis is a Store shared between instances, holding the snapshot as JSON
// under one key with a server-side expiry.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedis creates a redis-backed store.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = constants.RedisSnapshotKey
	}
	if ttl <= 0 {
		ttl = constants.CacheTTL
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

// Dial parses a redis URL, connects, and verifies the connection with PING.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.NewConfigError("cache", "invalid redis url", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WrapResource("connect", "redis", opts.Addr, err)
	}
	return client, nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context) (*homestay.Snapshot, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapResource("get", "cache", r.key, err)
	}

	var snap homestay.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, errors.WrapParse("json", r.key, err)
	}
	return &snap, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, snap *homestay.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.WrapParse("json", r.key, err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return errors.WrapResource("set", "cache", r.key, err)
	}
	return nil
}

// Clear implements Store.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.WrapResource("delete", "cache", r.key, err)
	}
	return nil
}

// Backend implements Store.
func (r *Redis) Backend() string { return "redis" }

// Ping checks the redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

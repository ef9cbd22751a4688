package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Redis keeps the token in a shared redis instance, e.g. for several
// back-office workers acting under one admin session.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedis returns a redis-backed store. A zero ttl keeps the token until cleared.
func NewRedis(client *redis.Client, namespace, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultKey
	}
	if namespace == "" {
		namespace = "carrental"
	}
	return &Redis{client: client, key: fmt.Sprintf("%s:session:%s", namespace, key), ttl: ttl}
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "tokenstore: redis get")
	}
	return token, nil
}

func (r *Redis) Save(ctx context.Context, token string) error {
	return errors.Wrap(r.client.Set(ctx, r.key, token, r.ttl).Err(), "tokenstore: redis set")
}

func (r *Redis) Clear(ctx context.Context) error {
	return errors.Wrap(r.client.Del(ctx, r.key).Err(), "tokenstore: redis del")
}

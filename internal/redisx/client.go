package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Dedup records processed event IDs for one consuming service.
type Dedup struct {
	Redis   *redis.Client
	Service string
}

func (d *Dedup) key(id string) string { return fmt.Sprintf(KeyDedup, d.Service, id) }

// Seen reports whether id was already marked as processed.
func (d *Dedup) Seen(ctx context.Context, id string) (bool, error) {
	n, err := d.Redis.Exists(ctx, d.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records id as processed. Call it only after the event's effects are
// durable.
func (d *Dedup) Mark(ctx context.Context, id string) error {
	return d.Redis.Set(ctx, d.key(id), "1", TTLDedup).Err()
}

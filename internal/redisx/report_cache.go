package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReportCache keeps the last /report payload for a short TTL. Redis errors
// are logged and treated as misses; the database stays the source of truth.
//
// Entries are keyed by a generation that Invalidate increments, so a report
// built before an invalidation is stored under a generation no reader asks
// for again.
type ReportCache struct {
	Redis *redis.Client
	TTL   time.Duration
	Log   *zap.Logger
}

// Get returns the cached report for the current generation. The returned
// generation must be passed to Set; it is negative when Redis is unavailable.
func (c *ReportCache) Get(ctx context.Context) (orders.Report, int64, bool) {
	gen, err := c.Redis.Get(ctx, KeyReportGen).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		gen = 0
	case err != nil:
		c.Log.Warn("report cache generation", zap.Error(err))
		return orders.Report{}, -1, false
	}

	b, err := c.Redis.Get(ctx, fmt.Sprintf(KeyReport, gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.Log.Warn("report cache get", zap.Error(err))
		}
		return orders.Report{}, gen, false
	}
	var rep orders.Report
	if err := json.Unmarshal(b, &rep); err != nil {
		c.Log.Warn("report cache decode", zap.Error(err))
		return orders.Report{}, gen, false
	}
	return rep, gen, true
}

func (c *ReportCache) Set(ctx context.Context, gen int64, rep orders.Report) {
	if gen < 0 {
		return
	}
	b, err := json.Marshal(rep)
	if err != nil {
		c.Log.Warn("report cache encode", zap.Error(err))
		return
	}
	if err := c.Redis.Set(ctx, fmt.Sprintf(KeyReport, gen), b, c.TTL).Err(); err != nil {
		c.Log.Warn("report cache set", zap.Error(err))
	}
}

func (c *ReportCache) Invalidate(ctx context.Context) {
	if err := c.Redis.Incr(ctx, KeyReportGen).Err(); err != nil {
		c.Log.Warn("report cache invalidate", zap.Error(err))
	}
}

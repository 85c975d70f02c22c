package redisx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "dedup:restocker:abc", fmt.Sprintf(KeyDedup, "restocker", "abc"))
	assert.Equal(t, "report:v1:7", fmt.Sprintf(KeyReport, 7))
}

func TestReportCache_UnreachableRedisIsAMiss(t *testing.T) {
	rdb := New("127.0.0.1:1")
	defer rdb.Close()
	c := &ReportCache{Redis: rdb, TTL: time.Second, Log: zaptest.NewLogger(t)}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Negative(t, gen)
	assert.NotPanics(t, func() {
		c.Set(ctx, gen, orders.Report{})
		c.Invalidate(ctx)
	})
}

func TestDedup_UnreachableRedisReturnsError(t *testing.T) {
	rdb := New("127.0.0.1:1")
	defer rdb.Close()
	d := &Dedup{Redis: rdb, Service: "restocker"}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	seen, err := d.Seen(ctx, "abc")
	assert.Error(t, err)
	assert.False(t, seen)
	assert.Error(t, d.Mark(ctx, "abc"))
}

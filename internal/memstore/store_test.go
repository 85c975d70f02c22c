package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, stock int) int64 {
	t.Helper()
	id, err := s.InsertProduct(context.Background(), orders.NewProduct{
		Name: "widget", Price: decimal.RequireFromString("9.99"), StockQuantity: stock,
	})
	require.NoError(t, err)
	return id
}

func stockOf(t *testing.T, s *Store, id int64) int {
	t.Helper()
	ps, err := s.ListProducts(context.Background())
	require.NoError(t, err)
	for _, p := range ps {
		if p.ID == id {
			return p.StockQuantity
		}
	}
	t.Fatalf("product %d not found", id)
	return 0
}

func TestTx_StagedWritesInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := seed(t, s, 5)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	p, err := tx.LockProductForUpdate(ctx, pid)
	require.NoError(t, err)
	require.NoError(t, tx.UpdateProductStock(ctx, pid, p.StockQuantity-3))

	again, err := tx.LockProductForUpdate(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, 2, again.StockQuantity, "own staged write is visible inside the tx")
	assert.Equal(t, 5, stockOf(t, s, pid), "not visible outside before commit")

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, 2, stockOf(t, s, pid))
}

func TestTx_RollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := seed(t, s, 5)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	o, err := tx.InsertOrder(ctx, 7, orders.StatusProcessing)
	require.NoError(t, err)
	_, err = tx.LockProductForUpdate(ctx, pid)
	require.NoError(t, err)
	require.NoError(t, tx.UpdateProductStock(ctx, pid, 1))
	_, err = tx.InsertOrderItem(ctx, orders.OrderItem{OrderID: o.ID, ProductID: pid, Quantity: 4})
	require.NoError(t, err)

	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, 5, stockOf(t, s, pid))
	all, _ := s.ListOrders(ctx)
	assert.Empty(t, all)
	_, err = s.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestTx_RollbackIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := seed(t, s, 5)

	tx, _ := s.Begin(ctx)
	_, _ = tx.LockProductForUpdate(ctx, pid)
	require.NoError(t, tx.UpdateProductStock(ctx, pid, 4))
	require.NoError(t, tx.Commit(ctx))

	assert.NoError(t, tx.Rollback(ctx))
	assert.NoError(t, tx.Rollback(ctx))
	assert.ErrorIs(t, tx.Commit(ctx), orders.ErrTxDone)
	assert.Equal(t, 4, stockOf(t, s, pid), "rollback after commit must not change data")

	tx2, _ := s.Begin(ctx)
	require.NoError(t, tx2.Rollback(ctx))
	assert.NoError(t, tx2.Rollback(ctx))
	_, err := tx2.LockProductForUpdate(ctx, pid)
	assert.ErrorIs(t, err, orders.ErrTxDone)
}

func TestLock_BlocksUntilHolderEnds(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := seed(t, s, 5)

	holder, _ := s.Begin(ctx)
	_, err := holder.LockProductForUpdate(ctx, pid)
	require.NoError(t, err)

	got := make(chan int, 1)
	go func() {
		waiter, _ := s.Begin(ctx)
		defer waiter.Rollback(ctx)
		p, err := waiter.LockProductForUpdate(ctx, pid)
		if err != nil {
			got <- -1
			return
		}
		got <- p.StockQuantity
	}()

	select {
	case <-got:
		t.Fatal("second locker must block while the row is held")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, holder.UpdateProductStock(ctx, pid, 2))
	require.NoError(t, holder.Commit(ctx))

	select {
	case v := <-got:
		assert.Equal(t, 2, v, "waiter sees the committed value")
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestLock_HonorsContext(t *testing.T) {
	s := New()
	pid := seed(t, s, 5)

	holder, _ := s.Begin(context.Background())
	defer holder.Rollback(context.Background())
	_, err := holder.LockProductForUpdate(context.Background(), pid)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	waiter, _ := s.Begin(context.Background())
	defer waiter.Rollback(context.Background())
	_, err = waiter.LockProductForUpdate(ctx, pid)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLock_MissingProduct(t *testing.T) {
	ctx := context.Background()
	s := New()
	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx)

	p, err := tx.LockProductForUpdate(ctx, 42)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestUpdateStock_RequiresLockAndNonNegative(t *testing.T) {
	ctx := context.Background()
	s := New()
	pid := seed(t, s, 5)
	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx)

	assert.Error(t, tx.UpdateProductStock(ctx, pid, 1), "unlocked row")
	_, _ = tx.LockProductForUpdate(ctx, pid)
	assert.Error(t, tx.UpdateProductStock(ctx, pid, -1))
}

func TestBegin_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Begin(ctx)
	assert.ErrorIs(t, err, orders.ErrConnection)
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const defaultRollbackTimeout = 5 * time.Second

// rollbackContext outlives a cancelled parent but stays bounded.
func rollbackContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultRollbackTimeout
	}
	return context.WithTimeout(context.WithoutCancel(parent), d)
}

// Placer runs order placement. All placements in the process pass through a
// single gate, so at most one of them is between Begin and Commit/Rollback at
// any time. Row locks alone prevent oversell per product; the gate also rules
// out lock-order deadlocks between orders touching the same products.
type Placer struct {
	Store    Store
	Reserver Reserver
	Log      *zap.Logger
	// Timeout bounds the gate wait plus the transaction. Zero means unbounded.
	Timeout time.Duration
	// RollbackTimeout bounds an abort, which runs while the gate is held.
	RollbackTimeout time.Duration

	gate *semaphore.Weighted
}

func NewPlacer(store Store, log *zap.Logger, timeout time.Duration) *Placer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Placer{
		Store:           store,
		Log:             log,
		Timeout:         timeout,
		RollbackTimeout: defaultRollbackTimeout,
		gate:            semaphore.NewWeighted(1),
	}
}

func (r PlaceOrderRequest) Validate() error {
	if r.CustomerID == 0 || len(r.Items) == 0 {
		return invalid("Missing customer_id or items")
	}
	for i, it := range r.Items {
		if it.ProductID == 0 {
			return invalid("item %d: missing product_id", i)
		}
		if it.Quantity <= 0 {
			return invalid("item %d: quantity must be positive", i)
		}
	}
	return nil
}

// PlaceOrder creates the order and reserves every line, or leaves no trace.
// Failures are *PlacementError values.
func (p *Placer) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlacedOrder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	if err := p.gate.Acquire(ctx, 1); err != nil {
		return nil, internal(fmt.Errorf("wait for placement gate: %w", err))
	}
	defer p.gate.Release(1)

	tx, err := p.Store.Begin(ctx)
	if err != nil {
		return nil, &PlacementError{Kind: ErrConnection, Err: err}
	}
	done := false
	defer func() {
		if done {
			return
		}
		rbCtx, cancel := rollbackContext(ctx, p.RollbackTimeout)
		defer cancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil {
			p.Log.Warn("rollback failed", zap.Int64("customer_id", req.CustomerID), zap.Error(rbErr))
		}
	}()

	order, err := tx.InsertOrder(ctx, req.CustomerID, StatusProcessing)
	if err != nil {
		return nil, internal(err)
	}

	placed := &PlacedOrder{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		OrderDate:  order.OrderDate,
		Items:      make([]OrderItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		res, err := p.Reserver.Reserve(ctx, tx, order.ID, it.ProductID, it.Quantity)
		if err != nil {
			var pe *PlacementError
			if errors.As(err, &pe) {
				return nil, err
			}
			return nil, internal(err)
		}
		if !res.OK() {
			p.Log.Info("order rejected",
				zap.Int64("customer_id", req.CustomerID),
				zap.Int64("product_id", res.ProductID),
				zap.Int("requested", res.Requested),
				zap.Int("available", res.Available),
				zap.Bool("product_found", res.Found),
			)
			return nil, res.Err()
		}
		placed.Items = append(placed.Items, *res.Item)
	}

	if !CanTransition(order.Status, StatusCompleted) {
		return nil, internal(fmt.Errorf("order %d: cannot move from %s to %s", order.ID, order.Status, StatusCompleted))
	}
	if err := tx.UpdateOrderStatus(ctx, order.ID, StatusCompleted); err != nil {
		return nil, internal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, internal(fmt.Errorf("commit order %d: %w", order.ID, err))
	}
	done = true
	placed.Status = StatusCompleted

	p.Log.Info("order placed",
		zap.Int64("order_id", placed.OrderID),
		zap.Int64("customer_id", placed.CustomerID),
		zap.Int("items", len(placed.Items)),
		zap.String("total", placed.Total().StringFixed(2)),
	)
	return placed, nil
}

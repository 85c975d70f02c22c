package orders

import (
	"context"
	"fmt"
)

// ReservationResult is the outcome of reserving one order line. A rejected
// reservation has a nil Item and leaves the transaction untouched.
type ReservationResult struct {
	ProductID int64
	Requested int
	// Available is the stock seen under lock; zero when the product is missing.
	Available int
	Found     bool
	Item      *OrderItem
}

func (r ReservationResult) OK() bool { return r.Item != nil }

// Err returns the InsufficientStock failure for a rejected reservation.
func (r ReservationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &PlacementError{Kind: ErrInsufficientStock, ProductID: r.ProductID}
}

// Reserver validates and decrements stock for one line at a time. It never
// finalizes the transaction; undo is left to the caller's Rollback.
type Reserver struct{}

// Reserve locks productID, checks the stock and, when sufficient, stages the
// decrement plus an order item priced at the current product price. The
// returned error is reserved for storage failures; stock shortfalls are
// reported through the result.
func (Reserver) Reserve(ctx context.Context, tx Tx, orderID, productID int64, quantity int) (ReservationResult, error) {
	res := ReservationResult{ProductID: productID, Requested: quantity}
	if quantity <= 0 {
		return res, invalid("quantity for product %d must be positive", productID)
	}

	p, err := tx.LockProductForUpdate(ctx, productID)
	if err != nil {
		return res, fmt.Errorf("lock product %d: %w", productID, err)
	}
	if p == nil {
		return res, nil
	}
	res.Found = true
	res.Available = p.StockQuantity
	if p.StockQuantity < quantity {
		return res, nil
	}

	if err := tx.UpdateProductStock(ctx, productID, p.StockQuantity-quantity); err != nil {
		return res, err
	}

	item := OrderItem{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     p.Price,
	}
	if item.ID, err = tx.InsertOrderItem(ctx, item); err != nil {
		return res, err
	}
	res.Item = &item
	return res, nil
}

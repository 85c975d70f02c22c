package orders

import "context"

// Store is the storage gateway. It is the only component that takes row locks.
type Store interface {
	// Begin opens a unit of work. Failure to reach storage wraps ErrConnection.
	Begin(ctx context.Context) (Tx, error)

	InsertProduct(ctx context.Context, p NewProduct) (int64, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListOrders(ctx context.Context) ([]Order, error)
	// GetOrder returns the order with its items, or ErrNotFound.
	GetOrder(ctx context.Context, id int64) (*Order, error)
}

// Tx is a transaction handle. Writes are visible only through the same
// handle until Commit. Rollback after Commit or Rollback is a no-op.
type Tx interface {
	// LockProductForUpdate reads a product row and holds an exclusive lock on
	// it until the transaction ends. It returns nil, nil if the row is absent.
	LockProductForUpdate(ctx context.Context, productID int64) (*Product, error)
	UpdateProductStock(ctx context.Context, productID int64, quantity int) error

	// InsertOrder creates the order row and returns it with its assigned id
	// and order date.
	InsertOrder(ctx context.Context, customerID int64, status Status) (Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status Status) error
	InsertOrderItem(ctx context.Context, item OrderItem) (int64, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

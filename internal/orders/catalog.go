package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Catalog covers product registration, restocking and reporting.
type Catalog struct {
	Store Store
}

// CreateProductInput mirrors the add-product request; Price is a pointer so a
// missing price is distinguishable from zero.
type CreateProductInput struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity int              `json:"stock_quantity"`
}

func (c *Catalog) CreateProduct(ctx context.Context, in CreateProductInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return 0, invalid("missing name")
	case in.Price == nil:
		return 0, invalid("missing price")
	case in.Price.IsNegative():
		return 0, invalid("price must not be negative")
	case in.StockQuantity < 0:
		return 0, invalid("stock_quantity must not be negative")
	}
	id, err := c.Store.InsertProduct(ctx, NewProduct{
		Name:          name,
		Description:   in.Description,
		Price:         in.Price.Round(2),
		StockQuantity: in.StockQuantity,
	})
	if err != nil {
		return 0, internal(err)
	}
	return id, nil
}

func (c *Catalog) ListProducts(ctx context.Context) ([]Product, error) {
	return c.Store.ListProducts(ctx)
}

func (c *Catalog) ListOrders(ctx context.Context) ([]Order, error) {
	return c.Store.ListOrders(ctx)
}

// Report reads products and orders in two separate statements; the pair is
// not a consistent snapshot.
func (c *Catalog) Report(ctx context.Context) (Report, error) {
	ps, err := c.ListProducts(ctx)
	if err != nil {
		return Report{}, err
	}
	ords, err := c.ListOrders(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{Products: ps, Orders: ords}, nil
}

func (c *Catalog) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return c.Store.GetOrder(ctx, id)
}

// Restock adds quantity to a product's stock under its row lock. It touches a
// single row, so it does not need the placement gate.
func (c *Catalog) Restock(ctx context.Context, productID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, invalid("restock quantity for product %d must be positive", productID)
	}
	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		rbCtx, cancel := rollbackContext(ctx, defaultRollbackTimeout)
		defer cancel()
		_ = tx.Rollback(rbCtx)
	}()

	p, err := tx.LockProductForUpdate(ctx, productID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	next := p.StockQuantity + quantity
	if err := tx.UpdateProductStock(ctx, productID, next); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return next, nil
}

package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `json:"product_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

type NewProduct struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

type Order struct {
	ID         int64       `json:"order_id"`
	CustomerID int64       `json:"customer_id"`
	OrderDate  time.Time   `json:"order_date"`
	Status     Status      `json:"status"`
	Items      []OrderItem `json:"items,omitempty"`
}

// OrderItem.Price is the product price at reservation time, not a live reference.
type OrderItem struct {
	ID        int64           `json:"order_item_id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderRequest struct {
	CustomerID int64       `json:"customer_id"`
	Items      []ItemInput `json:"items"`
}

type PlacedOrder struct {
	OrderID    int64
	CustomerID int64
	OrderDate  time.Time
	Status     Status
	Items      []OrderItem
}

// Total is the sum of quantity * snapshot price over all items.
func (p PlacedOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range p.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

type Report struct {
	Products []Product `json:"products"`
	Orders   []Order   `json:"orders"`
}

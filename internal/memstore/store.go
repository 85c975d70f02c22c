// Package memstore is an in-process orders.Store. Each product row has an
// exclusive lock held from LockProductForUpdate until the owning transaction
// ends, and writes are staged per transaction and applied on Commit.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	products map[int64]orders.Product
	orders   map[int64]orders.Order
	items    map[int64][]orders.OrderItem
	// locks[id] is a 1-slot channel; holding the slot means holding the row lock.
	locks map[int64]chan struct{}

	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
}

var _ orders.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		products: map[int64]orders.Product{},
		orders:   map[int64]orders.Order{},
		items:    map[int64][]orders.OrderItem{},
		locks:    map[int64]chan struct{}{},
	}
}

func (s *Store) Begin(ctx context.Context) (orders.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin tx: %w: %w", orders.ErrConnection, err)
	}
	return &tx{
		s:         s,
		held:      map[int64]chan struct{}{},
		stock:     map[int64]int{},
		newOrders: map[int64]orders.Order{},
		statuses:  map[int64]orders.Status{},
	}, nil
}

func (s *Store) InsertProduct(_ context.Context, p orders.NewProduct) (int64, error) {
	if p.StockQuantity < 0 {
		return 0, fmt.Errorf("insert product: negative stock %d", p.StockQuantity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProductID++
	id := s.nextProductID
	s.products[id] = orders.Product{
		ID:            id,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
	}
	s.locks[id] = make(chan struct{}, 1)
	return id, nil
}

// UpdatePrice changes a product's live price. Committed order items keep
// the price they were reserved at.
func (s *Store) UpdatePrice(_ context.Context, productID int64, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, orders.ErrNotFound)
	}
	p.Price = price
	s.products[productID] = p
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orders.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListOrders(_ context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, id int64) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	o.Items = append([]orders.OrderItem(nil), s.items[id]...)
	return &o, nil
}

type tx struct {
	s    *Store
	held map[int64]chan struct{}

	stock     map[int64]int
	newOrders map[int64]orders.Order
	statuses  map[int64]orders.Status
	items     []orders.OrderItem
	done      bool
}

func (t *tx) LockProductForUpdate(ctx context.Context, productID int64) (*orders.Product, error) {
	if t.done {
		return nil, orders.ErrTxDone
	}
	t.s.mu.Lock()
	_, ok := t.s.products[productID]
	lock := t.s.locks[productID]
	t.s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	if _, mine := t.held[productID]; !mine {
		select {
		case lock <- struct{}{}:
			t.held[productID] = lock
		case <-ctx.Done():
			return nil, fmt.Errorf("lock product %d: %w", productID, ctx.Err())
		}
	}

	// Re-read after acquiring: the previous holder may have committed.
	t.s.mu.Lock()
	p := t.s.products[productID]
	t.s.mu.Unlock()
	if staged, ok := t.stock[productID]; ok {
		p.StockQuantity = staged
	}
	return &p, nil
}

func (t *tx) UpdateProductStock(_ context.Context, productID int64, quantity int) error {
	if t.done {
		return orders.ErrTxDone
	}
	if _, mine := t.held[productID]; !mine {
		return fmt.Errorf("update stock for product %d: row not locked by this transaction", productID)
	}
	if quantity < 0 {
		return fmt.Errorf("update stock for product %d: negative stock %d", productID, quantity)
	}
	t.stock[productID] = quantity
	return nil
}

func (t *tx) InsertOrder(_ context.Context, customerID int64, status orders.Status) (orders.Order, error) {
	if t.done {
		return orders.Order{}, orders.ErrTxDone
	}
	t.s.mu.Lock()
	t.s.nextOrderID++
	id := t.s.nextOrderID
	t.s.mu.Unlock()

	o := orders.Order{ID: id, CustomerID: customerID, OrderDate: time.Now().UTC(), Status: status}
	t.newOrders[id] = o
	return o, nil
}

func (t *tx) UpdateOrderStatus(_ context.Context, orderID int64, status orders.Status) error {
	if t.done {
		return orders.ErrTxDone
	}
	if o, ok := t.newOrders[orderID]; ok {
		o.Status = status
		t.newOrders[orderID] = o
		return nil
	}
	t.s.mu.Lock()
	_, ok := t.s.orders[orderID]
	t.s.mu.Unlock()
	if !ok {
		return fmt.Errorf("update order %d status: %w", orderID, orders.ErrNotFound)
	}
	t.statuses[orderID] = status
	return nil
}

func (t *tx) InsertOrderItem(_ context.Context, item orders.OrderItem) (int64, error) {
	if t.done {
		return 0, orders.ErrTxDone
	}
	t.s.mu.Lock()
	_, orderCommitted := t.s.orders[item.OrderID]
	_, productExists := t.s.products[item.ProductID]
	t.s.mu.Unlock()
	if _, staged := t.newOrders[item.OrderID]; !staged && !orderCommitted {
		return 0, fmt.Errorf("insert order item: order %d does not exist", item.OrderID)
	}
	if !productExists {
		return 0, fmt.Errorf("insert order item: product %d does not exist", item.ProductID)
	}

	t.s.mu.Lock()
	t.s.nextItemID++
	item.ID = t.s.nextItemID
	t.s.mu.Unlock()
	t.items = append(t.items, item)
	return item.ID, nil
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return orders.ErrTxDone
	}
	t.s.mu.Lock()
	for id, q := range t.stock {
		p := t.s.products[id]
		p.StockQuantity = q
		t.s.products[id] = p
	}
	for id, o := range t.newOrders {
		t.s.orders[id] = o
	}
	for id, st := range t.statuses {
		o := t.s.orders[id]
		o.Status = st
		t.s.orders[id] = o
	}
	for _, it := range t.items {
		t.s.items[it.OrderID] = append(t.s.items[it.OrderID], it)
	}
	t.s.mu.Unlock()
	t.finish()
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *tx) finish() {
	t.done = true
	for id, lock := range t.held {
		<-lock
		delete(t.held, id)
	}
}

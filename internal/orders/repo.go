package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres Store. Prices travel as text so NUMERIC(10,2) maps
// onto decimal.Decimal without float rounding.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w: %w", ErrConnection, err)
	}
	return &pgTx{tx: tx}, nil
}

func (r *Repo) InsertProduct(ctx context.Context, p NewProduct) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(name, description, price, stock_quantity)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING product_id`,
		p.Name, p.Description, p.Price.String(), p.StockQuantity,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, name, COALESCE(description, ''), price::text, stock_quantity
		FROM products ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, customer_id, order_date, status
		FROM orders ORDER BY order_id`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var o Order
	var status string
	err := r.DB.QueryRow(ctx, `
		SELECT order_id, customer_id, order_date, status
		FROM orders WHERE order_id=$1`, id).Scan(&o.ID, &o.CustomerID, &o.OrderDate, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	o.Status = Status(status)

	rows, err := r.DB.Query(ctx, `
		SELECT order_item_id, order_id, product_id, quantity, price::text
		FROM order_items WHERE order_id=$1 ORDER BY order_item_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		var price string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order item %d price: %w", it.ID, err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockProductForUpdate(ctx context.Context, productID int64) (*Product, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT product_id, name, COALESCE(description, ''), price::text, stock_quantity
		FROM products WHERE product_id=$1 FOR UPDATE`, productID)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (t *pgTx) UpdateProductStock(ctx context.Context, productID int64, quantity int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock_quantity=$2 WHERE product_id=$1`, productID, quantity)
	if err != nil {
		return fmt.Errorf("update stock for product %d: %w", productID, err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("update stock for product %d: %w", productID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, customerID int64, status Status) (Order, error) {
	o := Order{CustomerID: customerID, Status: status}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(customer_id, status)
		VALUES ($1, $2)
		RETURNING order_id, order_date`, customerID, string(status)).Scan(&o.ID, &o.OrderDate)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, orderID int64, status Status) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE order_id=$1`, orderID, string(status))
	if err != nil {
		return fmt.Errorf("update order %d status: %w", orderID, err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("update order %d status: %w", orderID, ErrNotFound)
	}
	return nil
}

func (t *pgTx) InsertOrderItem(ctx context.Context, item OrderItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4::numeric)
		RETURNING order_item_id`,
		item.OrderID, item.ProductID, item.Quantity, item.Price.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order item: %w", err)
	}
	return id, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return ErrTxDone
	}
	return err
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.StockQuantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("product %d price: %w", p.ID, err)
	}
	p.Price = d
	return &p, nil
}

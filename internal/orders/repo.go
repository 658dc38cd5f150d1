package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres implementation of Store.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) ActiveProducts(ctx context.Context, ids []string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, farmer_id, name, price_cents, stock_qty
		FROM products
		WHERE id = ANY($1) AND state = 'ACTIVE'`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.FarmerID, &p.Name, &p.PriceCents, &p.StockQty); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, consumer_id, farmer_id, delivery_method, status, subtotal_cents, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.ConsumerID, o.FarmerID, o.DeliveryMethod, o.Status, o.SubtotalCents, o.Note, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, position, product_id, product_name, unit_price_cents, qty, line_total_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, o.ID, i, it.ProductID, it.ProductName, it.UnitPriceCents, it.Qty, it.LineTotalCents,
		)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", it.ProductID, err)
		}
	}

	return tx.Commit(ctx)
}

const selectOrder = `
	SELECT o.id, o.consumer_id, o.farmer_id, o.delivery_method, o.status, o.subtotal_cents, o.note,
	       o.created_at, o.updated_at,
	       f.name, f.phone, f.city, fp.property_name, fp.address,
	       c.name, c.phone, c.city
	FROM orders o
	JOIN users f ON f.id = o.farmer_id
	LEFT JOIN farmer_profiles fp ON fp.user_id = o.farmer_id
	JOIN users c ON c.id = o.consumer_id`

func scanOrder(row pgx.Row) (*Order, error) {
	o := Order{Farmer: &FarmerSummary{}, Consumer: &ConsumerSummary{}}
	err := row.Scan(
		&o.ID, &o.ConsumerID, &o.FarmerID, &o.DeliveryMethod, &o.Status, &o.SubtotalCents, &o.Note,
		&o.CreatedAt, &o.UpdatedAt,
		&o.Farmer.Name, &o.Farmer.Phone, &o.Farmer.City, &o.Farmer.PropertyName, &o.Farmer.Address,
		&o.Consumer.Name, &o.Consumer.Phone, &o.Consumer.City,
	)
	if err != nil {
		return nil, err
	}
	o.Farmer.ID = o.FarmerID
	o.Consumer.ID = o.ConsumerID
	return &o, nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, selectOrder+` WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if f.ConsumerID != "" {
		args = append(args, f.ConsumerID)
		where = append(where, fmt.Sprintf("o.consumer_id = $%d", len(args)))
	}
	if f.FarmerID != "" {
		args = append(args, f.FarmerID)
		where = append(where, fmt.Sprintf("o.farmer_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if len(where) == 0 {
		return nil, errors.New("list orders: owner filter required")
	}

	q := selectOrder + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY o.created_at DESC, o.seq ASC`
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) items(ctx context.Context, orderIDs []string) (map[string][]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price_cents, qty, line_total_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPriceCents, &it.Qty, &it.LineTotalCents); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

// UpdateStatus only applies when the stored status is still from, so two
// racing transitions cannot both succeed.
func (r *Repo) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`, id, from, to, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStatusChanged
}

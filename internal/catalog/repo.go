package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres implementation of Store.
type Repo struct{ DB *pgxpool.Pool }

func insertPhotos(ctx context.Context, tx pgx.Tx, productID string, photos []Photo) error {
	for i, ph := range photos {
		_, err := tx.Exec(ctx, `
			INSERT INTO product_photos(id, product_id, position, url) VALUES ($1, $2, $3, $4)`,
			ph.ID, productID, i, ph.URL)
		if err != nil {
			return fmt.Errorf("insert photo: %w", err)
		}
	}
	return nil
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO products(id, farmer_id, name, description, category, unit, price_cents, stock_qty, state, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			p.ID, p.FarmerID, p.Name, p.Description, p.Category, p.Unit, p.PriceCents, p.StockQty, p.State,
			p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return insertPhotos(ctx, tx, p.ID, p.Photos)
	})
}

const selectProduct = `
	SELECT p.id, p.farmer_id, p.name, p.description, p.category, p.price_cents, p.unit, p.stock_qty, p.state,
	       p.created_at, p.updated_at,
	       u.name, u.phone, u.city, fp.property_name, fp.address
	FROM products p
	JOIN users u ON u.id = p.farmer_id
	LEFT JOIN farmer_profiles fp ON fp.user_id = p.farmer_id`

func scanProduct(row pgx.Row) (*Product, error) {
	p := Product{Farmer: &FarmerSummary{}}
	err := row.Scan(
		&p.ID, &p.FarmerID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Unit, &p.StockQty, &p.State,
		&p.CreatedAt, &p.UpdatedAt,
		&p.Farmer.Name, &p.Farmer.Phone, &p.Farmer.City, &p.Farmer.PropertyName, &p.Farmer.Address,
	)
	if err != nil {
		return nil, err
	}
	p.Farmer.ID = p.FarmerID
	return &p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := []Product{*p}
	if err := r.attach(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (r *Repo) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.FarmerID != "" {
		add("p.farmer_id = $%d", f.FarmerID)
	}
	if f.ActiveOnly {
		add("p.state = $%d", StateActive)
	}
	if f.Category != nil {
		add("p.category = $%d", *f.Category)
	}
	if f.City != "" {
		add("lower(u.city) = lower($%d)", f.City)
	}
	if f.Q != "" {
		add("p.name ILIKE '%%' || $%d || '%%'", escapeLike(f.Q))
	}

	q := selectProduct
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY p.created_at DESC, p.id`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attach(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// attach loads photos and certifications for products in two queries.
func (r *Repo) attach(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	idx := make(map[string]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		idx[products[i].ID] = i
		products[i].Photos = []Photo{}
		products[i].Certifications = []Certification{}
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, url FROM product_photos
		WHERE product_id = ANY($1)
		ORDER BY product_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load photos: %w", err)
	}
	for rows.Next() {
		var (
			ph        Photo
			productID string
		)
		if err := rows.Scan(&ph.ID, &productID, &ph.URL); err != nil {
			rows.Close()
			return err
		}
		i := idx[productID]
		products[i].Photos = append(products[i].Photos, ph)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.DB.Query(ctx, selectCertification+`
		WHERE product_id = ANY($1)
		ORDER BY valid_until ASC NULLS LAST, created_at DESC`, ids)
	if err != nil {
		return fmt.Errorf("load certifications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCertification(rows)
		if err != nil {
			return err
		}
		i := idx[c.ProductID]
		products[i].Certifications = append(products[i].Certifications, *c)
	}
	return rows.Err()
}

func (r *Repo) UpdateProduct(ctx context.Context, p *Product, replacePhotos bool) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE products
			SET name = $2, description = $3, category = $4, unit = $5, price_cents = $6, stock_qty = $7,
			    state = $8, updated_at = $9
			WHERE id = $1`,
			p.ID, p.Name, p.Description, p.Category, p.Unit, p.PriceCents, p.StockQty, p.State, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		if !replacePhotos {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_photos WHERE product_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear photos: %w", err)
		}
		return insertPhotos(ctx, tx, p.ID, p.Photos)
	})
}

const selectFarmer = `
	SELECT u.id, u.name, u.phone, u.city, fp.property_name, fp.address, u.created_at,
	       (SELECT count(*) FROM products p WHERE p.farmer_id = u.id AND p.state = 'ACTIVE')
	FROM users u
	LEFT JOIN farmer_profiles fp ON fp.user_id = u.id
	WHERE u.role = 'FARMER'`

func scanFarmer(row pgx.Row) (*Farmer, error) {
	var f Farmer
	err := row.Scan(&f.ID, &f.Name, &f.Phone, &f.City, &f.PropertyName, &f.Address, &f.CreatedAt,
		&f.ActiveProductsCount)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) ListFarmers(ctx context.Context) ([]Farmer, error) {
	rows, err := r.DB.Query(ctx, selectFarmer+` ORDER BY u.created_at DESC, u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Farmer
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *Repo) GetFarmer(ctx context.Context, id string) (*Farmer, error) {
	f, err := scanFarmer(r.DB.QueryRow(ctx, selectFarmer+` AND u.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

const selectCertification = `
	SELECT id, product_id, title, issuer, valid_until, created_at, updated_at
	FROM certifications`

func scanCertification(row pgx.Row) (*Certification, error) {
	var c Certification
	if err := row.Scan(&c.ID, &c.ProductID, &c.Title, &c.Issuer, &c.ValidUntil, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) CreateCertification(ctx context.Context, c *Certification) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO certifications(id, product_id, title, issuer, valid_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.ProductID, c.Title, c.Issuer, c.ValidUntil, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *Repo) GetCertification(ctx context.Context, id string) (*Certification, error) {
	c, err := scanCertification(r.DB.QueryRow(ctx, selectCertification+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *Repo) ListCertifications(ctx context.Context, productID string) ([]Certification, error) {
	rows, err := r.DB.Query(ctx, selectCertification+`
		WHERE product_id = $1
		ORDER BY valid_until ASC NULLS LAST, created_at DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Certification
	for rows.Next() {
		c, err := scanCertification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateCertification(ctx context.Context, c *Certification) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE certifications SET title = $2, issuer = $3, valid_until = $4, updated_at = $5
		WHERE id = $1`, c.ID, c.Title, c.Issuer, c.ValidUntil, c.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteCertification(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM certifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

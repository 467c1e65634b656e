package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, venue_id, category_id, name, price, after_tax_price, tax_rate,
	is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.VenueID, &p.CategoryID, &p.Name, &p.Price, &p.AfterTaxPrice,
		&p.TaxRate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type GetProductParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

func (q *Queries) GetProduct(ctx context.Context, arg GetProductParams) (Product, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND venue_id = $2 AND is_active`,
		arg.ID, arg.VenueID)
	return scanProduct(row)
}

type ListProductsParams struct {
	VenueID    uuid.UUID
	CategoryID pgtype.UUID
	Limit      int32
	Offset     int32
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE venue_id = $1 AND is_active
		  AND ($2::uuid IS NULL OR category_id = $2)
		ORDER BY name
		LIMIT $3 OFFSET $4`,
		arg.VenueID, arg.CategoryID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

type ListProductsByIDsParams struct {
	VenueID uuid.UUID
	IDs     []uuid.UUID
}

// ListProductsByIDs fetches the catalog rows the total calculator needs for
// a given set of order items.
func (q *Queries) ListProductsByIDs(ctx context.Context, arg ListProductsByIDsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE venue_id = $1 AND id = ANY($2)`,
		arg.VenueID, arg.IDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type CreateProductParams struct {
	VenueID       uuid.UUID
	CategoryID    pgtype.UUID
	Name          string
	Price         pgtype.Numeric
	AfterTaxPrice pgtype.Numeric
	TaxRate       pgtype.Numeric
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO products (venue_id, category_id, name, price, after_tax_price, tax_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		arg.VenueID, arg.CategoryID, arg.Name, arg.Price, arg.AfterTaxPrice, arg.TaxRate)
	return scanProduct(row)
}

func (q *Queries) ListCategories(ctx context.Context, venueID uuid.UUID) ([]Category, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, venue_id, name, sort_order, created_at
		FROM categories WHERE venue_id = $1 ORDER BY sort_order, name`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.VenueID, &c.Name, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

type CreateCategoryParams struct {
	VenueID   uuid.UUID
	Name      string
	SortOrder int32
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, `
		INSERT INTO categories (venue_id, name, sort_order)
		VALUES ($1, $2, $3)
		RETURNING id, venue_id, name, sort_order, created_at`,
		arg.VenueID, arg.Name, arg.SortOrder).
		Scan(&c.ID, &c.VenueID, &c.Name, &c.SortOrder, &c.CreatedAt)
	return c, err
}

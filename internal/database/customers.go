package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, venue_id, name, phone, email, points, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.VenueID, &c.Name, &c.Phone, &c.Email, &c.Points,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

type GetCustomerParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

func (q *Queries) GetCustomer(ctx context.Context, arg GetCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND venue_id = $2 AND is_active`,
		arg.ID, arg.VenueID)
	return scanCustomer(row)
}

type GetCustomerForUpdateParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

// GetCustomerForUpdate locks the customer row so concurrent redemptions
// cannot both read the same point balance.
func (q *Queries) GetCustomerForUpdate(ctx context.Context, arg GetCustomerForUpdateParams) (Customer, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers
		 WHERE id = $1 AND venue_id = $2 AND is_active FOR NO KEY UPDATE`,
		arg.ID, arg.VenueID)
	return scanCustomer(row)
}

type ListCustomersParams struct {
	VenueID uuid.UUID
	Search  pgtype.Text
	Limit   int32
	Offset  int32
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE venue_id = $1 AND is_active
		  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR phone ILIKE '%' || $2 || '%')
		ORDER BY name
		LIMIT $3 OFFSET $4`,
		arg.VenueID, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

type CreateCustomerParams struct {
	VenueID uuid.UUID
	Name    string
	Phone   pgtype.Text
	Email   pgtype.Text
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO customers (venue_id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING `+customerColumns,
		arg.VenueID, arg.Name, arg.Phone, arg.Email)
	return scanCustomer(row)
}

type DeductCustomerPointsParams struct {
	ID     uuid.UUID
	Points int64
}

// DeductCustomerPoints redeems points with a balance guard in the WHERE
// clause; an insufficient balance returns pgx.ErrNoRows rather than going
// negative.
func (q *Queries) DeductCustomerPoints(ctx context.Context, arg DeductCustomerPointsParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE customers
		SET points = points - $2, updated_at = now()
		WHERE id = $1 AND points >= $2
		RETURNING `+customerColumns,
		arg.ID, arg.Points)
	return scanCustomer(row)
}

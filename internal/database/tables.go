package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, venue_id, number, capacity, status, created_at, updated_at`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.VenueID, &t.Number, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type GetTableParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (Table, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE id = $1 AND venue_id = $2`,
		arg.ID, arg.VenueID)
	return scanTable(row)
}

func (q *Queries) ListTables(ctx context.Context, venueID uuid.UUID) ([]Table, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE venue_id = $1 ORDER BY number`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type CreateTableParams struct {
	VenueID  uuid.UUID
	Number   string
	Capacity int32
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO tables (venue_id, number, capacity)
		VALUES ($1, $2, $3)
		RETURNING `+tableColumns,
		arg.VenueID, arg.Number, arg.Capacity)
	return scanTable(row)
}

type UpdateTableStatusParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
	Status  string
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables SET status = $3, updated_at = now()
		WHERE id = $1 AND venue_id = $2
		RETURNING `+tableColumns,
		arg.ID, arg.VenueID, arg.Status)
	return scanTable(row)
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateSettlementParams struct {
	OrderID         uuid.UUID
	Method          string
	Amount          pgtype.Numeric
	PointsUsed      int64
	PointsAmount    pgtype.Numeric
	AmountReceived  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
}

func (q *Queries) CreateSettlement(ctx context.Context, arg CreateSettlementParams) (Settlement, error) {
	var s Settlement
	err := q.db.QueryRow(ctx, `
		INSERT INTO settlements (order_id, method, amount, points_used, points_amount,
			amount_received, change_amount, reference_number, processed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, order_id, method, amount, points_used, points_amount,
			amount_received, change_amount, reference_number, processed_by, processed_at`,
		arg.OrderID, arg.Method, arg.Amount, arg.PointsUsed, arg.PointsAmount,
		arg.AmountReceived, arg.ChangeAmount, arg.ReferenceNumber, arg.ProcessedBy).
		Scan(&s.ID, &s.OrderID, &s.Method, &s.Amount, &s.PointsUsed, &s.PointsAmount,
			&s.AmountReceived, &s.ChangeAmount, &s.ReferenceNumber, &s.ProcessedBy, &s.ProcessedAt)
	return s, err
}

func (q *Queries) ListSettlementsByOrder(ctx context.Context, orderID uuid.UUID) ([]Settlement, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, method, amount, points_used, points_amount,
			amount_received, change_amount, reference_number, processed_by, processed_at
		FROM settlements WHERE order_id = $1 ORDER BY processed_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []Settlement
	for rows.Next() {
		var s Settlement
		if err := rows.Scan(&s.ID, &s.OrderID, &s.Method, &s.Amount, &s.PointsUsed,
			&s.PointsAmount, &s.AmountReceived, &s.ChangeAmount, &s.ReferenceNumber,
			&s.ProcessedBy, &s.ProcessedAt); err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

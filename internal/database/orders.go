package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, venue_id, order_number, table_id, customer_id, customer_name,
	customer_count, status, notes, subtotal, tax, discount, total, payment_method,
	einvoice_requested, einvoice_status, einvoice_number, einvoice_symbol, einvoice_template,
	ordered_at, served_at, paid_at, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.VenueID, &o.OrderNumber, &o.TableID, &o.CustomerID, &o.CustomerName,
		&o.CustomerCount, &o.Status, &o.Notes, &o.Subtotal, &o.Tax, &o.Discount, &o.Total,
		&o.PaymentMethod, &o.EinvoiceRequested, &o.EinvoiceStatus, &o.EinvoiceNumber,
		&o.EinvoiceSymbol, &o.EinvoiceTemplate, &o.OrderedAt, &o.ServedAt, &o.PaidAt,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type GetOrderParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND venue_id = $2`,
		arg.ID, arg.VenueID)
	return scanOrder(row)
}

type GetOrderForUpdateParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

// GetOrderForUpdate locks the order row to serialize concurrent settlements
// and status writes against the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderForUpdateParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND venue_id = $2 FOR NO KEY UPDATE`,
		arg.ID, arg.VenueID)
	return scanOrder(row)
}

type ListOrdersParams struct {
	VenueID   uuid.UUID
	Status    pgtype.Text
	TableID   pgtype.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE venue_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::uuid IS NULL OR table_id = $3)
		  AND ($4::timestamptz IS NULL OR ordered_at >= $4)
		  AND ($5::timestamptz IS NULL OR ordered_at < $5)
		ORDER BY ordered_at DESC
		LIMIT $6 OFFSET $7`,
		arg.VenueID, arg.Status, arg.TableID, arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetNextOrderNumber returns MAX+1 of the numeric order sequence per venue.
// Callers must handle the unique-constraint race by retrying.
func (q *Queries) GetNextOrderNumber(ctx context.Context, venueID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INTEGER)), 0) + 1
		FROM orders WHERE venue_id = $1`, venueID).Scan(&next)
	return next, err
}

type CreateOrderParams struct {
	VenueID       uuid.UUID
	OrderNumber   string
	TableID       pgtype.UUID
	CustomerID    pgtype.UUID
	CustomerName  pgtype.Text
	CustomerCount int32
	Notes         pgtype.Text
	Subtotal      pgtype.Numeric
	Tax           pgtype.Numeric
	Discount      pgtype.Numeric
	Total         pgtype.Numeric
	CreatedBy     uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (venue_id, order_number, table_id, customer_id, customer_name,
			customer_count, notes, subtotal, tax, discount, total, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+orderColumns,
		arg.VenueID, arg.OrderNumber, arg.TableID, arg.CustomerID, arg.CustomerName,
		arg.CustomerCount, arg.Notes, arg.Subtotal, arg.Tax, arg.Discount, arg.Total,
		arg.CreatedBy)
	return scanOrder(row)
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	VenueID    uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateOrderStatus is a compare-and-set write: it only succeeds when the
// stored status still matches PrevStatus, so a stale transition returns
// pgx.ErrNoRows instead of silently overwriting a newer state.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $3,
		    served_at = CASE WHEN $3 = 'SERVED' THEN now() ELSE served_at END,
		    updated_at = now()
		WHERE id = $1 AND venue_id = $2 AND status = $4
		RETURNING `+orderColumns,
		arg.ID, arg.VenueID, arg.Status, arg.PrevStatus)
	return scanOrder(row)
}

type UpdateOrderDetailsParams struct {
	ID            uuid.UUID
	VenueID       uuid.UUID
	CustomerName  pgtype.Text
	CustomerCount int32
	Notes         pgtype.Text
	Discount      pgtype.Numeric
}

// UpdateOrderDetails edits the mutable fields of a live order. Terminal
// orders match no rows, so a late edit fails with pgx.ErrNoRows instead of
// rewriting settled amounts.
func (q *Queries) UpdateOrderDetails(ctx context.Context, arg UpdateOrderDetailsParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET customer_name = $3, customer_count = $4, notes = $5, discount = $6,
		    updated_at = now()
		WHERE id = $1 AND venue_id = $2 AND status NOT IN ('PAID', 'CANCELLED')
		RETURNING `+orderColumns,
		arg.ID, arg.VenueID, arg.CustomerName, arg.CustomerCount, arg.Notes, arg.Discount)
	return scanOrder(row)
}

type MarkOrderPaidParams struct {
	ID                uuid.UUID
	VenueID           uuid.UUID
	PaymentMethod     string
	EinvoiceRequested bool
	EinvoiceStatus    int16
	EinvoiceNumber    pgtype.Text
	EinvoiceSymbol    pgtype.Text
	EinvoiceTemplate  pgtype.Text
}

// MarkOrderPaid transitions SERVED -> PAID and records payment metadata.
// The WHERE clause makes SERVED the only state payment can leave from.
func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'PAID', payment_method = $3, paid_at = now(),
		    einvoice_requested = $4, einvoice_status = $5,
		    einvoice_number = $6, einvoice_symbol = $7, einvoice_template = $8,
		    updated_at = now()
		WHERE id = $1 AND venue_id = $2 AND status = 'SERVED'
		RETURNING `+orderColumns,
		arg.ID, arg.VenueID, arg.PaymentMethod, arg.EinvoiceRequested, arg.EinvoiceStatus,
		arg.EinvoiceNumber, arg.EinvoiceSymbol, arg.EinvoiceTemplate)
	return scanOrder(row)
}

type CancelOrderParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

// CancelOrder enforces the precondition atomically: only non-terminal
// orders can be cancelled.
func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = 'CANCELLED', updated_at = now()
		WHERE id = $1 AND venue_id = $2 AND status NOT IN ('PAID', 'CANCELLED')
		RETURNING `+orderColumns,
		arg.ID, arg.VenueID)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Total     pgtype.Numeric
	Notes     pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, order_id, product_id, quantity, unit_price, total, notes, created_at`,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.UnitPrice, arg.Total, arg.Notes).
		Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Total,
			&it.Notes, &it.CreatedAt)
	return it, err
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, total, notes, created_at
		FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&it.Total, &it.Notes, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListEinvoicePending returns paid orders whose requested e-invoice has not
// been published yet (status 0) or failed on a previous attempt (status 2).
func (q *Queries) ListEinvoicePending(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'PAID' AND einvoice_requested AND einvoice_status IN (0, 2)
		ORDER BY paid_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type SetEinvoiceResultParams struct {
	ID             uuid.UUID
	EinvoiceStatus int16
	EinvoiceNumber pgtype.Text
}

func (q *Queries) SetEinvoiceResult(ctx context.Context, arg SetEinvoiceResultParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE orders SET einvoice_status = $2, einvoice_number = $3, updated_at = now()
		WHERE id = $1`,
		arg.ID, arg.EinvoiceStatus, arg.EinvoiceNumber)
	return err
}

// NextInvoiceNumber increments and returns the per-symbol invoice sequence.
func (q *Queries) NextInvoiceNumber(ctx context.Context, symbol string) (int64, error) {
	var next int64
	err := q.db.QueryRow(ctx, `
		INSERT INTO invoice_sequences (symbol, last_number)
		VALUES ($1, 1)
		ON CONFLICT (symbol) DO UPDATE SET last_number = invoice_sequences.last_number + 1
		RETURNING last_number`, symbol).Scan(&next)
	return next, err
}

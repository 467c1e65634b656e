package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const purchaseOrderColumns = `id, venue_id, po_number, supplier_id, status, notes, total,
	created_by, created_at, updated_at`

func scanPurchaseOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.VenueID, &po.PoNumber, &po.SupplierID, &po.Status, &po.Notes,
		&po.Total, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	return po, err
}

type CreatePurchaseOrderParams struct {
	VenueID    uuid.UUID
	PoNumber   string
	SupplierID uuid.UUID
	Status     string
	Notes      pgtype.Text
	Total      pgtype.Numeric
	CreatedBy  uuid.UUID
}

func (q *Queries) CreatePurchaseOrder(ctx context.Context, arg CreatePurchaseOrderParams) (PurchaseOrder, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO purchase_orders (venue_id, po_number, supplier_id, status, notes, total, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+purchaseOrderColumns,
		arg.VenueID, arg.PoNumber, arg.SupplierID, arg.Status, arg.Notes, arg.Total, arg.CreatedBy)
	return scanPurchaseOrder(row)
}

type GetPurchaseOrderParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

func (q *Queries) GetPurchaseOrder(ctx context.Context, arg GetPurchaseOrderParams) (PurchaseOrder, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1 AND venue_id = $2`,
		arg.ID, arg.VenueID)
	return scanPurchaseOrder(row)
}

type ListPurchaseOrdersParams struct {
	VenueID uuid.UUID
	Status  pgtype.Text
	Limit   int32
	Offset  int32
}

func (q *Queries) ListPurchaseOrders(ctx context.Context, arg ListPurchaseOrdersParams) ([]PurchaseOrder, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+purchaseOrderColumns+` FROM purchase_orders
		WHERE venue_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		arg.VenueID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

type CreatePurchaseOrderItemParams struct {
	PurchaseOrderID uuid.UUID
	ProductID       pgtype.UUID
	Description     string
	Quantity        pgtype.Numeric
	UnitPrice       pgtype.Numeric
	Amount          pgtype.Numeric
}

func (q *Queries) CreatePurchaseOrderItem(ctx context.Context, arg CreatePurchaseOrderItemParams) (PurchaseOrderItem, error) {
	var it PurchaseOrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO purchase_order_items (purchase_order_id, product_id, description, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, purchase_order_id, product_id, description, quantity, unit_price, amount`,
		arg.PurchaseOrderID, arg.ProductID, arg.Description, arg.Quantity, arg.UnitPrice, arg.Amount).
		Scan(&it.ID, &it.PurchaseOrderID, &it.ProductID, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.Amount)
	return it, err
}

func (q *Queries) ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]PurchaseOrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, purchase_order_id, product_id, description, quantity, unit_price, amount
		FROM purchase_order_items WHERE purchase_order_id = $1`, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.ProductID, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type CreatePurchaseOrderAttachmentParams struct {
	PurchaseOrderID uuid.UUID
	FileName        string
	ObjectKey       string
	ContentType     string
	SizeBytes       int64
	UploadedBy      uuid.UUID
}

func (q *Queries) CreatePurchaseOrderAttachment(ctx context.Context, arg CreatePurchaseOrderAttachmentParams) (PurchaseOrderAttachment, error) {
	var a PurchaseOrderAttachment
	err := q.db.QueryRow(ctx, `
		INSERT INTO purchase_order_attachments (purchase_order_id, file_name, object_key, content_type, size_bytes, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, purchase_order_id, file_name, object_key, content_type, size_bytes, uploaded_by, created_at`,
		arg.PurchaseOrderID, arg.FileName, arg.ObjectKey, arg.ContentType, arg.SizeBytes, arg.UploadedBy).
		Scan(&a.ID, &a.PurchaseOrderID, &a.FileName, &a.ObjectKey, &a.ContentType, &a.SizeBytes,
			&a.UploadedBy, &a.CreatedAt)
	return a, err
}

func (q *Queries) ListPurchaseOrderAttachments(ctx context.Context, purchaseOrderID uuid.UUID) ([]PurchaseOrderAttachment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, purchase_order_id, file_name, object_key, content_type, size_bytes, uploaded_by, created_at
		FROM purchase_order_attachments WHERE purchase_order_id = $1 ORDER BY created_at`, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []PurchaseOrderAttachment
	for rows.Next() {
		var a PurchaseOrderAttachment
		if err := rows.Scan(&a.ID, &a.PurchaseOrderID, &a.FileName, &a.ObjectKey, &a.ContentType,
			&a.SizeBytes, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// GetNextPONumber returns MAX+1 of the numeric purchase-order sequence per
// venue. Same retry contract as GetNextOrderNumber.
func (q *Queries) GetNextPONumber(ctx context.Context, venueID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(po_number FROM 4) AS INTEGER)), 0) + 1
		FROM purchase_orders WHERE venue_id = $1`, venueID).Scan(&next)
	return next, err
}

const supplierColumns = `id, venue_id, name, phone, email, is_active, created_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.VenueID, &s.Name, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt)
	return s, err
}

type GetSupplierParams struct {
	ID      uuid.UUID
	VenueID uuid.UUID
}

func (q *Queries) GetSupplier(ctx context.Context, arg GetSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1 AND venue_id = $2 AND is_active`,
		arg.ID, arg.VenueID)
	return scanSupplier(row)
}

func (q *Queries) ListSuppliers(ctx context.Context, venueID uuid.UUID) ([]Supplier, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE venue_id = $1 AND is_active ORDER BY name`,
		venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

type CreateSupplierParams struct {
	VenueID uuid.UUID
	Name    string
	Phone   pgtype.Text
	Email   pgtype.Text
}

func (q *Queries) CreateSupplier(ctx context.Context, arg CreateSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO suppliers (venue_id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING `+supplierColumns,
		arg.VenueID, arg.Name, arg.Phone, arg.Email)
	return scanSupplier(row)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
)

var (
	ErrNoPOItems        = errors.New("purchase order must have at least one item")
	ErrBadPOItem        = errors.New("purchase order item needs a description and positive quantity")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrBadPOStatus      = errors.New("invalid purchase order status")
)

// PurchaseStore is what purchase order creation needs from the query layer.
type PurchaseStore interface {
	GetSupplier(ctx context.Context, arg database.GetSupplierParams) (database.Supplier, error)
	GetNextPONumber(ctx context.Context, venueID uuid.UUID) (int32, error)
	CreatePurchaseOrder(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error)
	CreatePurchaseOrderItem(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error)
}

// PurchaseService creates purchase orders: number allocation, the header row
// and all item rows commit together.
type PurchaseService struct {
	db    TxBeginner
	store func(tx pgx.Tx) PurchaseStore
}

func NewPurchaseService(db TxBeginner) *PurchaseService {
	return &PurchaseService{
		db:    db,
		store: func(tx pgx.Tx) PurchaseStore { return database.New(tx) },
	}
}

type CreatePOLine struct {
	ProductID   *uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

type CreatePORequest struct {
	VenueID    uuid.UUID
	SupplierID uuid.UUID
	Status     string
	Notes      string
	Lines      []CreatePOLine
	CreatedBy  uuid.UUID
}

type CreatePOResult struct {
	PurchaseOrder database.PurchaseOrder
	Items         []database.PurchaseOrderItem
}

// Create validates the request and inserts the purchase order with its
// items in one transaction. Item amounts and the header total are derived
// here, never taken from the client.
func (s *PurchaseService) Create(ctx context.Context, req CreatePORequest) (CreatePOResult, error) {
	if len(req.Lines) == 0 {
		return CreatePOResult{}, ErrNoPOItems
	}
	for _, ln := range req.Lines {
		if ln.Description == "" || ln.Quantity.LessThanOrEqual(decimal.Zero) {
			return CreatePOResult{}, ErrBadPOItem
		}
	}
	status := req.Status
	if status == "" {
		status = enum.PurchaseOrderStatusDraft
	}
	if status != enum.PurchaseOrderStatusDraft && status != enum.PurchaseOrderStatusSubmitted {
		return CreatePOResult{}, fmt.Errorf("%w: %q", ErrBadPOStatus, status)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return CreatePOResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.store(tx)

	if _, err := store.GetSupplier(ctx, database.GetSupplierParams{ID: req.SupplierID, VenueID: req.VenueID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreatePOResult{}, ErrSupplierNotFound
		}
		return CreatePOResult{}, fmt.Errorf("get supplier: %w", err)
	}

	total := decimal.Zero
	for _, ln := range req.Lines {
		total = total.Add(ln.Quantity.Mul(ln.UnitPrice))
	}

	seq, err := store.GetNextPONumber(ctx, req.VenueID)
	if err != nil {
		return CreatePOResult{}, fmt.Errorf("next po number: %w", err)
	}

	po, err := store.CreatePurchaseOrder(ctx, database.CreatePurchaseOrderParams{
		VenueID:    req.VenueID,
		PoNumber:   fmt.Sprintf("PO-%05d", seq),
		SupplierID: req.SupplierID,
		Status:     status,
		Notes:      textOrNull(req.Notes),
		Total:      decimalToNumeric(total),
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return CreatePOResult{}, fmt.Errorf("create purchase order: %w", err)
	}

	items := make([]database.PurchaseOrderItem, 0, len(req.Lines))
	for _, ln := range req.Lines {
		var productID pgtype.UUID
		if ln.ProductID != nil {
			productID = pgUUIDValue(*ln.ProductID)
		}
		item, err := store.CreatePurchaseOrderItem(ctx, database.CreatePurchaseOrderItemParams{
			PurchaseOrderID: po.ID,
			ProductID:       productID,
			Description:     ln.Description,
			Quantity:        decimalToNumeric(ln.Quantity),
			UnitPrice:       decimalToNumeric(ln.UnitPrice),
			Amount:          decimalToNumeric(ln.Quantity.Mul(ln.UnitPrice)),
		})
		if err != nil {
			return CreatePOResult{}, fmt.Errorf("create purchase order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return CreatePOResult{}, fmt.Errorf("commit tx: %w", err)
	}
	return CreatePOResult{PurchaseOrder: po, Items: items}, nil
}

func pgUUIDValue(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/pricing"
)

var (
	ErrNoLines        = errors.New("order must have at least one line")
	ErrBadQuantity    = errors.New("line quantity must be positive")
	ErrUnknownProduct = errors.New("unknown product")
	ErrTableNotFound  = errors.New("table not found")
	ErrOrderNotFound  = errors.New("order not found")
)

// TxBeginner starts transactions; satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore is what order creation needs from the query layer.
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, venueID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListProductsByIDs(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
}

// OrderService creates orders transactionally: number allocation, price
// snapshot, item rows and table occupation commit or roll back together.
type OrderService struct {
	db    TxBeginner
	store func(tx pgx.Tx) OrderStore
}

func NewOrderService(db TxBeginner) *OrderService {
	return &OrderService{
		db:    db,
		store: func(tx pgx.Tx) OrderStore { return database.New(tx) },
	}
}

type CreateOrderLine struct {
	ProductID uuid.UUID
	Quantity  int32
	Notes     string
}

type CreateOrderRequest struct {
	VenueID       uuid.UUID
	TableID       *uuid.UUID
	CustomerID    *uuid.UUID
	CustomerName  string
	CustomerCount int32
	Notes         string
	Discount      decimal.Decimal
	Lines         []CreateOrderLine
	CreatedBy     uuid.UUID
}

type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// createAttempts bounds retries when an order number collides with a
// concurrent insert in the same venue.
const createAttempts = 3

// Create validates the request, snapshots current product prices into the
// order lines, computes totals and inserts everything in one transaction.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	if len(req.Lines) == 0 {
		return CreateOrderResult{}, ErrNoLines
	}
	for _, ln := range req.Lines {
		if ln.Quantity <= 0 {
			return CreateOrderResult{}, fmt.Errorf("%w: product %s", ErrBadQuantity, ln.ProductID)
		}
	}

	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		res, err := s.createOnce(ctx, req)
		if err == nil {
			return res, nil
		}
		if !isOrderNumberConflict(err) {
			return CreateOrderResult{}, err
		}
		log.Printf("WARN: order number conflict in venue %s, retrying", req.VenueID)
		lastErr = err
	}
	return CreateOrderResult{}, fmt.Errorf("allocate order number: %w", lastErr)
}

func (s *OrderService) createOnce(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.store(tx)

	products, err := s.snapshotProducts(ctx, store, req)
	if err != nil {
		return CreateOrderResult{}, err
	}

	items := make([]pricing.Item, 0, len(req.Lines))
	for _, ln := range req.Lines {
		p, ok := products[ln.ProductID]
		if !ok {
			return CreateOrderResult{}, fmt.Errorf("%w: %s", ErrUnknownProduct, ln.ProductID)
		}
		items = append(items, pricing.Item{
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			UnitPrice: p.Price,
		})
	}
	totals := pricing.CalculateTotals(items, products)

	seq, err := store.GetNextOrderNumber(ctx, req.VenueID)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("next order number: %w", err)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		VenueID:       req.VenueID,
		OrderNumber:   fmt.Sprintf("ORD-%03d", seq),
		TableID:       uuidPtrToPg(req.TableID),
		CustomerID:    uuidPtrToPg(req.CustomerID),
		CustomerName:  textOrNull(req.CustomerName),
		CustomerCount: req.CustomerCount,
		Notes:         textOrNull(req.Notes),
		Subtotal:      decimalToNumeric(totals.Subtotal),
		Tax:           decimalToNumeric(totals.Tax),
		Discount:      decimalToNumeric(req.Discount),
		Total:         decimalToNumeric(totals.Total),
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("create order: %w", err)
	}

	created := make([]database.OrderItem, 0, len(items))
	for i, it := range items {
		row, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: decimalToNumeric(it.UnitPrice),
			Total:     decimalToNumeric(it.UnitPrice.Mul(decimal.NewFromInt32(it.Quantity))),
			Notes:     textOrNull(req.Lines[i].Notes),
		})
		if err != nil {
			return CreateOrderResult{}, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, row)
	}

	if req.TableID != nil {
		if _, err := store.GetTable(ctx, database.GetTableParams{ID: *req.TableID, VenueID: req.VenueID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return CreateOrderResult{}, ErrTableNotFound
			}
			return CreateOrderResult{}, fmt.Errorf("get table: %w", err)
		}
		if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			ID:      *req.TableID,
			VenueID: req.VenueID,
			Status:  enum.TableStatusOccupied,
		}); err != nil {
			return CreateOrderResult{}, fmt.Errorf("occupy table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateOrderResult{}, fmt.Errorf("commit tx: %w", err)
	}
	return CreateOrderResult{Order: order, Items: created}, nil
}

func (s *OrderService) snapshotProducts(ctx context.Context, store OrderStore, req CreateOrderRequest) (map[uuid.UUID]pricing.Product, error) {
	ids := make([]uuid.UUID, 0, len(req.Lines))
	seen := make(map[uuid.UUID]bool, len(req.Lines))
	for _, ln := range req.Lines {
		if !seen[ln.ProductID] {
			seen[ln.ProductID] = true
			ids = append(ids, ln.ProductID)
		}
	}
	rows, err := store.ListProductsByIDs(ctx, database.ListProductsByIDsParams{VenueID: req.VenueID, IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make(map[uuid.UUID]pricing.Product, len(rows))
	for _, p := range rows {
		if !p.IsActive {
			continue
		}
		out[p.ID] = pricing.Product{
			ID:            p.ID,
			Price:         numericToDecimal(p.Price),
			AfterTaxPrice: numericToNullDecimal(p.AfterTaxPrice),
		}
	}
	return out, nil
}

func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == "orders_venue_id_order_number_key"
}

func uuidPtrToPg(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

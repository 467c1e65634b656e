package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/pricing"
)

var (
	ErrNotServed           = errors.New("only served orders can be settled")
	ErrZeroTotal           = errors.New("order total is zero, nothing to settle")
	ErrInvalidMethod       = errors.New("invalid payment method")
	ErrNoCustomer          = errors.New("order has no customer for point redemption")
	ErrInsufficientPoints  = errors.New("customer has no redeemable points")
	ErrPointsCoverTotal    = errors.New("points cover the full total, settle with POINTS")
	ErrPointsNotEnough     = errors.New("points do not cover the total, add a payment method")
	ErrCashReceived        = errors.New("cash received is less than the amount due")
	ErrMissingCashReceived = errors.New("cash settlement requires amount received")
	ErrEinvoiceSymbol      = errors.New("e-invoice requires symbol and template")
)

// SettlementStore is what the settlement flow needs from the query layer.
type SettlementStore interface {
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListProductsByIDs(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error)
	GetCustomerForUpdate(ctx context.Context, arg database.GetCustomerForUpdateParams) (database.Customer, error)
	DeductCustomerPoints(ctx context.Context, arg database.DeductCustomerPointsParams) (database.Customer, error)
	CreateSettlement(ctx context.Context, arg database.CreateSettlementParams) (database.Settlement, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
	NextInvoiceNumber(ctx context.Context, symbol string) (int64, error)
}

// SettlementService settles served orders: it locks the order, recomputes
// the amount due, redeems loyalty points, records the settlement row and
// marks the order paid in a single transaction. Any failure rolls the whole
// settlement back and leaves the order unpaid.
type SettlementService struct {
	db       TxBeginner
	store    func(tx pgx.Tx) SettlementStore
	provider EinvoiceProvider
}

// NewSettlementService builds the service. A nil provider publishes
// immediate e-invoices as accepted without calling out anywhere, same as
// the background publisher's default.
func NewSettlementService(db TxBeginner, provider EinvoiceProvider) *SettlementService {
	if provider == nil {
		provider = NoopProvider{}
	}
	return &SettlementService{
		db:       db,
		store:    func(tx pgx.Tx) SettlementStore { return database.New(tx) },
		provider: provider,
	}
}

// EinvoiceRequest asks for an electronic invoice alongside payment. When
// PublishNow is false the order is flagged and picked up later by the
// background publisher.
type EinvoiceRequest struct {
	PublishNow bool
	Symbol     string
	Template   string
}

type SettleRequest struct {
	VenueID     uuid.UUID
	OrderID     uuid.UUID
	ProcessedBy uuid.UUID

	// Method is the direct payment channel, or POINTS for a points-only
	// settlement. UsePoints combines the customer's full balance with a
	// direct method when the balance alone cannot cover the total.
	Method    string
	UsePoints bool

	AmountReceived  decimal.NullDecimal
	ReferenceNumber string

	Einvoice *EinvoiceRequest
}

type SettleResult struct {
	Order           database.Order
	Settlement      database.Settlement
	Totals          OrderTotals
	PointsUsed      int64
	RemainingPoints int64
	TableFreed      *uuid.UUID
}

// Settle runs the full settlement flow for a served order.
func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (SettleResult, error) {
	if err := validateSettleRequest(req); err != nil {
		return SettleResult{}, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return SettleResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.store(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderForUpdateParams{ID: req.OrderID, VenueID: req.VenueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SettleResult{}, ErrOrderNotFound
		}
		return SettleResult{}, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.OrderStatusServed {
		return SettleResult{}, fmt.Errorf("%w: order is %s", ErrNotServed, order.Status)
	}

	totals, err := ResolveTotals(ctx, store, order)
	if err != nil {
		return SettleResult{}, err
	}
	due := totals.FinalTotal
	if due.LessThanOrEqual(decimal.Zero) {
		return SettleResult{}, ErrZeroTotal
	}

	var (
		pointsUsed   int64
		pointsAmount = decimal.Zero
		remaining    int64
		charge       = due
		label        = req.Method
	)

	if req.Method == enum.PaymentMethodPoints || req.UsePoints {
		customer, err := s.lockCustomer(ctx, store, order)
		if err != nil {
			return SettleResult{}, err
		}

		if req.Method == enum.PaymentMethodPoints {
			if !pricing.CoversTotal(customer.Points, due) {
				return SettleResult{}, ErrPointsNotEnough
			}
			pointsUsed = pricing.PointsNeeded(due)
			pointsAmount = due
			charge = decimal.Zero
		} else {
			if customer.Points <= 0 {
				return SettleResult{}, ErrInsufficientPoints
			}
			if pricing.CoversTotal(customer.Points, due) {
				return SettleResult{}, ErrPointsCoverTotal
			}
			pointsUsed = customer.Points
			pointsAmount = pricing.PointsValue(customer.Points)
			charge = pricing.MixedRemainder(customer.Points, due)
			label = enum.PaymentMethodPoints + "+" + req.Method
		}

		updated, err := store.DeductCustomerPoints(ctx, database.DeductCustomerPointsParams{ID: customer.ID, Points: pointsUsed})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return SettleResult{}, ErrPointsNotEnough
			}
			return SettleResult{}, fmt.Errorf("deduct points: %w", err)
		}
		remaining = updated.Points
	}

	received, change, err := cashAmounts(req, charge)
	if err != nil {
		return SettleResult{}, err
	}

	settlement, err := store.CreateSettlement(ctx, database.CreateSettlementParams{
		OrderID:         order.ID,
		Method:          label,
		Amount:          decimalToNumeric(charge),
		PointsUsed:      pointsUsed,
		PointsAmount:    decimalToNumeric(pointsAmount),
		AmountReceived:  nullDecimalToNumeric(received),
		ChangeAmount:    nullDecimalToNumeric(change),
		ReferenceNumber: textOrNull(req.ReferenceNumber),
		ProcessedBy:     req.ProcessedBy,
	})
	if err != nil {
		return SettleResult{}, fmt.Errorf("create settlement: %w", err)
	}

	einvStatus, einvNumber, err := s.resolveEinvoice(ctx, store, order, due, req.Einvoice)
	if err != nil {
		return SettleResult{}, err
	}

	paid, err := store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
		ID:                order.ID,
		VenueID:           req.VenueID,
		PaymentMethod:     label,
		EinvoiceRequested: req.Einvoice != nil,
		EinvoiceStatus:    einvStatus,
		EinvoiceNumber:    einvNumber,
		EinvoiceSymbol:    einvoiceSymbol(req.Einvoice),
		EinvoiceTemplate:  einvoiceTemplate(req.Einvoice),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SettleResult{}, ErrNotServed
		}
		return SettleResult{}, fmt.Errorf("mark paid: %w", err)
	}

	var freed *uuid.UUID
	if order.TableID.Valid {
		tableID := uuid.UUID(order.TableID.Bytes)
		if _, err := store.UpdateTableStatus(ctx, database.UpdateTableStatusParams{
			ID:      tableID,
			VenueID: req.VenueID,
			Status:  enum.TableStatusAvailable,
		}); err != nil {
			return SettleResult{}, fmt.Errorf("free table: %w", err)
		}
		freed = &tableID
	}

	if err := tx.Commit(ctx); err != nil {
		return SettleResult{}, fmt.Errorf("commit tx: %w", err)
	}

	return SettleResult{
		Order:           paid,
		Settlement:      settlement,
		Totals:          totals,
		PointsUsed:      pointsUsed,
		RemainingPoints: remaining,
		TableFreed:      freed,
	}, nil
}

func validateSettleRequest(req SettleRequest) error {
	switch {
	case req.Method == enum.PaymentMethodPoints:
		if req.UsePoints {
			// POINTS already consumes points; the flag adds nothing.
			return fmt.Errorf("%w: use_points is redundant with POINTS", ErrInvalidMethod)
		}
	case enum.IsDirectPaymentMethod(req.Method):
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method)
	}
	if req.Einvoice != nil && (req.Einvoice.Symbol == "" || req.Einvoice.Template == "") {
		return ErrEinvoiceSymbol
	}
	return nil
}

func (s *SettlementService) lockCustomer(ctx context.Context, store SettlementStore, order database.Order) (database.Customer, error) {
	if !order.CustomerID.Valid {
		return database.Customer{}, ErrNoCustomer
	}
	customer, err := store.GetCustomerForUpdate(ctx, database.GetCustomerForUpdateParams{
		ID:      uuid.UUID(order.CustomerID.Bytes),
		VenueID: order.VenueID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrNoCustomer
		}
		return database.Customer{}, fmt.Errorf("lock customer: %w", err)
	}
	return customer, nil
}

// cashAmounts validates the tendered cash against the direct charge and
// computes change. Non-cash methods carry no received/change amounts.
func cashAmounts(req SettleRequest, charge decimal.Decimal) (decimal.NullDecimal, decimal.NullDecimal, error) {
	isCash := req.Method == enum.PaymentMethodCash && charge.GreaterThan(decimal.Zero)
	if !isCash {
		return decimal.NullDecimal{}, decimal.NullDecimal{}, nil
	}
	if !req.AmountReceived.Valid {
		return decimal.NullDecimal{}, decimal.NullDecimal{}, ErrMissingCashReceived
	}
	received := req.AmountReceived.Decimal
	if received.LessThan(charge) {
		return decimal.NullDecimal{}, decimal.NullDecimal{}, fmt.Errorf("%w: received %s, due %s",
			ErrCashReceived, received, charge)
	}
	return decimal.NullDecimal{Decimal: received, Valid: true},
		decimal.NullDecimal{Decimal: received.Sub(charge), Valid: true}, nil
}

// resolveEinvoice allocates the invoice number and publishes through the
// provider when PublishNow is set. A provider failure does not fail the
// settlement: the order is marked paid with e-invoice status 2 and keeps
// the issued number, so the background sweep retries with the same number.
func (s *SettlementService) resolveEinvoice(ctx context.Context, store SettlementStore, order database.Order, due decimal.Decimal, req *EinvoiceRequest) (int16, pgtype.Text, error) {
	if req == nil || !req.PublishNow {
		return enum.EinvoiceNotPublished, pgtype.Text{}, nil
	}
	seq, err := store.NextInvoiceNumber(ctx, req.Symbol)
	if err != nil {
		return 0, pgtype.Text{}, fmt.Errorf("next invoice number: %w", err)
	}
	number := fmt.Sprintf("%s-%07d", req.Symbol, seq)
	numberText := pgtype.Text{String: number, Valid: true}

	if err := s.provider.Publish(ctx, Einvoice{
		OrderNumber: order.OrderNumber,
		Number:      number,
		Symbol:      req.Symbol,
		Template:    req.Template,
		Total:       due.String(),
	}); err != nil {
		log.Printf("ERROR: publish einvoice %s for order %s: %v", number, order.OrderNumber, err)
		return enum.EinvoiceError, numberText, nil
	}
	return enum.EinvoicePublished, numberText, nil
}

func einvoiceSymbol(req *EinvoiceRequest) pgtype.Text {
	if req == nil {
		return pgtype.Text{}
	}
	return textOrNull(req.Symbol)
}

func einvoiceTemplate(req *EinvoiceRequest) pgtype.Text {
	if req == nil {
		return pgtype.Text{}
	}
	return textOrNull(req.Template)
}

func nullDecimalToNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return decimalToNumeric(d.Decimal)
}

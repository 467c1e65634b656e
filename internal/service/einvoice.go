package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
)

// EinvoiceProvider is the external e-invoice endpoint. Publish returning an
// error marks the order's invoice as errored so the next sweep retries it.
type EinvoiceProvider interface {
	Publish(ctx context.Context, inv Einvoice) error
}

// Einvoice is what gets sent to the provider.
type Einvoice struct {
	OrderNumber string
	Number      string
	Symbol      string
	Template    string
	Total       string
}

// NoopProvider accepts every invoice. Used until a real provider account is
// configured.
type NoopProvider struct{}

func (NoopProvider) Publish(context.Context, Einvoice) error { return nil }

// EinvoiceStore is what the background publisher needs from the query layer.
type EinvoiceStore interface {
	ListEinvoicePending(ctx context.Context, limit int32) ([]database.Order, error)
	NextInvoiceNumber(ctx context.Context, symbol string) (int64, error)
	SetEinvoiceResult(ctx context.Context, arg database.SetEinvoiceResultParams) error
}

// EinvoicePublisher sweeps paid orders whose invoice was requested but not
// yet published (or errored on a previous attempt) and publishes them.
type EinvoicePublisher struct {
	store    EinvoiceStore
	provider EinvoiceProvider
	batch    int32
}

func NewEinvoicePublisher(store EinvoiceStore, provider EinvoiceProvider) *EinvoicePublisher {
	if provider == nil {
		provider = NoopProvider{}
	}
	return &EinvoicePublisher{store: store, provider: provider, batch: 50}
}

// PublishPending processes one batch. Per-order failures are recorded and
// logged without stopping the batch; only listing errors abort the sweep.
func (p *EinvoicePublisher) PublishPending(ctx context.Context) error {
	orders, err := p.store.ListEinvoicePending(ctx, p.batch)
	if err != nil {
		return fmt.Errorf("list pending invoices: %w", err)
	}

	for _, order := range orders {
		if err := p.publishOne(ctx, order); err != nil {
			// publishOne records the errored state itself; here we only log.
			log.Printf("ERROR: publish invoice for order %s: %v", order.OrderNumber, err)
		}
	}
	return nil
}

func (p *EinvoicePublisher) publishOne(ctx context.Context, order database.Order) error {
	if !order.EinvoiceSymbol.Valid {
		if err := p.store.SetEinvoiceResult(ctx, database.SetEinvoiceResultParams{
			ID:             order.ID,
			EinvoiceStatus: enum.EinvoiceError,
		}); err != nil {
			log.Printf("ERROR: mark invoice errored for order %s: %v", order.OrderNumber, err)
		}
		return fmt.Errorf("order %s has no invoice symbol", order.OrderNumber)
	}
	symbol := order.EinvoiceSymbol.String

	// Errored orders keep the number issued on their first attempt.
	number := order.EinvoiceNumber.String
	if number == "" {
		seq, err := p.store.NextInvoiceNumber(ctx, symbol)
		if err != nil {
			return fmt.Errorf("next invoice number: %w", err)
		}
		number = fmt.Sprintf("%s-%07d", symbol, seq)
	}

	inv := Einvoice{
		OrderNumber: order.OrderNumber,
		Number:      number,
		Symbol:      symbol,
		Template:    order.EinvoiceTemplate.String,
		Total:       numericToDecimal(order.Total).String(),
	}
	if err := p.provider.Publish(ctx, inv); err != nil {
		// Record the issued number so the retry does not burn another one.
		if setErr := p.store.SetEinvoiceResult(ctx, database.SetEinvoiceResultParams{
			ID:             order.ID,
			EinvoiceStatus: enum.EinvoiceError,
			EinvoiceNumber: pgtype.Text{String: number, Valid: true},
		}); setErr != nil {
			log.Printf("ERROR: record invoice number for order %s: %v", order.OrderNumber, setErr)
		}
		return err
	}

	return p.store.SetEinvoiceResult(ctx, database.SetEinvoiceResultParams{
		ID:             order.ID,
		EinvoiceStatus: enum.EinvoicePublished,
		EinvoiceNumber: pgtype.Text{String: number, Valid: true},
	})
}

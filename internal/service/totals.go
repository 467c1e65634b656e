package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/pricing"
)

// TotalsStore is the slice of the query layer the totals resolver needs.
type TotalsStore interface {
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListProductsByIDs(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error)
}

// OrderTotals is the money view of an order the API exposes.
type OrderTotals struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	FinalTotal decimal.Decimal
}

// StoredTotals reads the totals persisted on the order row itself, the
// snapshot taken at creation time.
func StoredTotals(order database.Order) OrderTotals {
	discount := numericToDecimal(order.Discount)
	total := numericToDecimal(order.Total)
	return OrderTotals{
		Subtotal:   numericToDecimal(order.Subtotal),
		Tax:        numericToDecimal(order.Tax),
		Discount:   discount,
		Total:      total,
		FinalTotal: pricing.FinalTotal(total, discount),
	}
}

// ResolveTotals returns the effective totals for an order. Live orders are
// recomputed from their items and current catalog tax data; once an order is
// PAID or CANCELLED its stored totals are returned untouched so historical
// amounts never drift under later catalog edits.
func ResolveTotals(ctx context.Context, store TotalsStore, order database.Order) (OrderTotals, error) {
	discount := numericToDecimal(order.Discount)

	if enum.IsTerminalOrderStatus(order.Status) {
		return StoredTotals(order), nil
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return OrderTotals{}, fmt.Errorf("list order items: %w", err)
	}
	products, err := productsForItems(ctx, store, order.VenueID, items)
	if err != nil {
		return OrderTotals{}, err
	}

	totals := pricing.CalculateTotals(toPricingItems(items), products)
	return OrderTotals{
		Subtotal:   totals.Subtotal,
		Tax:        totals.Tax,
		Discount:   discount,
		Total:      totals.Total,
		FinalTotal: pricing.FinalTotal(totals.Total, discount),
	}, nil
}

func toPricingItems(items []database.OrderItem) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: numericToDecimal(it.UnitPrice),
		})
	}
	return out
}

func productsForItems(ctx context.Context, store TotalsStore, venueID uuid.UUID, items []database.OrderItem) (map[uuid.UUID]pricing.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	out := make(map[uuid.UUID]pricing.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := store.ListProductsByIDs(ctx, database.ListProductsByIDsParams{VenueID: venueID, IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for _, p := range rows {
		out[p.ID] = pricing.Product{
			ID:            p.ID,
			Price:         numericToDecimal(p.Price),
			AfterTaxPrice: numericToNullDecimal(p.AfterTaxPrice),
		}
	}
	return out, nil
}

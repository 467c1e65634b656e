package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
)

type totalsStoreMock struct {
	listOrderItemsByOrder func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listProductsByIDs     func(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error)
}

func (m *totalsStoreMock) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrder(ctx, orderID)
}

func (m *totalsStoreMock) ListProductsByIDs(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error) {
	return m.listProductsByIDs(ctx, arg)
}

func TestResolveTotalsPaidOrderKeepsStoredAmounts(t *testing.T) {
	store := &totalsStoreMock{
		listOrderItemsByOrder: func(context.Context, uuid.UUID) ([]database.OrderItem, error) {
			t.Fatal("paid order must not recompute from items")
			return nil, nil
		},
		listProductsByIDs: func(context.Context, database.ListProductsByIDsParams) ([]database.Product, error) {
			t.Fatal("paid order must not consult the catalog")
			return nil, nil
		},
	}
	order := database.Order{
		ID:       uuid.New(),
		Status:   enum.OrderStatusPaid,
		Subtotal: mustNumeric(t, "20000"),
		Tax:      mustNumeric(t, "2000"),
		Discount: mustNumeric(t, "2000"),
		Total:    mustNumeric(t, "22000"),
	}

	got, err := ResolveTotals(context.Background(), store, order)
	if err != nil {
		t.Fatalf("resolve totals: %v", err)
	}
	if !got.Total.Equal(decimal.NewFromInt(22000)) {
		t.Errorf("total = %s, want stored 22000", got.Total)
	}
	if !got.FinalTotal.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("final total = %s, want 20000", got.FinalTotal)
	}
}

func TestResolveTotalsLiveOrderRecomputes(t *testing.T) {
	productID := uuid.New()
	store := &totalsStoreMock{
		listOrderItemsByOrder: func(context.Context, uuid.UUID) ([]database.OrderItem, error) {
			return []database.OrderItem{{
				ProductID: productID,
				Quantity:  2,
				UnitPrice: mustNumeric(t, "10000"),
			}}, nil
		},
		listProductsByIDs: func(context.Context, database.ListProductsByIDsParams) ([]database.Product, error) {
			return []database.Product{{
				ID:            productID,
				Price:         mustNumeric(t, "10000"),
				AfterTaxPrice: mustNumeric(t, "11000"),
			}}, nil
		},
	}
	order := database.Order{
		ID:     uuid.New(),
		Status: enum.OrderStatusServed,
		// Stored totals are stale on purpose: live orders ignore them.
		Total:    mustNumeric(t, "1"),
		Discount: mustNumeric(t, "2000"),
	}

	got, err := ResolveTotals(context.Background(), store, order)
	if err != nil {
		t.Fatalf("resolve totals: %v", err)
	}
	if !got.Subtotal.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("subtotal = %s, want 20000", got.Subtotal)
	}
	if !got.Tax.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("tax = %s, want 2000", got.Tax)
	}
	if !got.Total.Equal(decimal.NewFromInt(22000)) {
		t.Errorf("total = %s, want 22000", got.Total)
	}
	if !got.FinalTotal.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("final total = %s, want 20000", got.FinalTotal)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/ws"
)

type settlementsStoreMock struct {
	getOrder               func(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	listSettlementsByOrder func(ctx context.Context, orderID uuid.UUID) ([]database.Settlement, error)
}

func (m *settlementsStoreMock) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.getOrder(ctx, arg)
}

func (m *settlementsStoreMock) ListSettlementsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Settlement, error) {
	return m.listSettlementsByOrder(ctx, orderID)
}

func TestListSettlementsScopedToVenue(t *testing.T) {
	venueID := uuid.New()
	orderID := uuid.New()
	mock := &settlementsStoreMock{}

	var gotLookup database.GetOrderParams
	mock.getOrder = func(_ context.Context, arg database.GetOrderParams) (database.Order, error) {
		gotLookup = arg
		// The order belongs to another venue, so the scoped lookup finds
		// nothing.
		return database.Order{}, pgx.ErrNoRows
	}
	mock.listSettlementsByOrder = func(context.Context, uuid.UUID) ([]database.Settlement, error) {
		t.Fatal("foreign order must not reach the settlements query")
		return nil, nil
	}

	h := NewSettlementsHandler(nil, mock, testCache(), ws.NewHub())
	w := httptest.NewRecorder()
	r := newRequest(t, http.MethodGet, "/venues/v/orders/o/settlements", "", venueID,
		map[string]string{"vid": venueID.String(), "id": orderID.String()})

	h.List(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body %s", w.Code, w.Body.String())
	}
	if gotLookup.ID != orderID || gotLookup.VenueID != venueID {
		t.Errorf("order lookup = %+v, want scoped to venue %s", gotLookup, venueID)
	}
}

func TestListSettlementsReturnsHistory(t *testing.T) {
	venueID := uuid.New()
	orderID := uuid.New()
	mock := &settlementsStoreMock{}
	mock.getOrder = func(context.Context, database.GetOrderParams) (database.Order, error) {
		return storedOrder(venueID, orderID, enum.OrderStatusPaid), nil
	}
	mock.listSettlementsByOrder = func(_ context.Context, id uuid.UUID) ([]database.Settlement, error) {
		if id != orderID {
			t.Errorf("listed settlements for order %s, want %s", id, orderID)
		}
		return []database.Settlement{{
			ID:           uuid.New(),
			OrderID:      orderID,
			Method:       enum.PaymentMethodCash,
			Amount:       testNumeric(t, "22000"),
			PointsAmount: testNumeric(t, "0"),
			ProcessedBy:  uuid.New(),
			ProcessedAt:  time.Now(),
		}}, nil
	}

	h := NewSettlementsHandler(nil, mock, testCache(), ws.NewHub())
	w := httptest.NewRecorder()
	r := newRequest(t, http.MethodGet, "/venues/v/orders/o/settlements", "", venueID,
		map[string]string{"vid": venueID.String(), "id": orderID.String()})

	h.List(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Settlements []settlementResponse `json:"settlements"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Settlements) != 1 {
		t.Fatalf("settlements = %d, want 1", len(resp.Settlements))
	}
	if resp.Settlements[0].Method != enum.PaymentMethodCash || resp.Settlements[0].Amount != "22000" {
		t.Errorf("settlement view = %+v", resp.Settlements[0])
	}
}

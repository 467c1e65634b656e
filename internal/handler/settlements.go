package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/cache"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/service"
	"github.com/resto-pos/api/internal/ws"
)

type SettlementsStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListSettlementsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Settlement, error)
}

type SettlementsHandler struct {
	svc   *service.SettlementService
	store SettlementsStore
	cache *cache.Cache
	hub   *ws.Hub
}

func NewSettlementsHandler(svc *service.SettlementService, store SettlementsStore, c *cache.Cache, hub *ws.Hub) *SettlementsHandler {
	return &SettlementsHandler{svc: svc, store: store, cache: c, hub: hub}
}

type einvoiceRequestBody struct {
	PublishNow bool   `json:"publish_now"`
	Symbol     string `json:"symbol"`
	Template   string `json:"template"`
}

type settleRequestBody struct {
	Method          string               `json:"method"`
	UsePoints       bool                 `json:"use_points"`
	AmountReceived  string               `json:"amount_received"`
	ReferenceNumber string               `json:"reference_number"`
	Einvoice        *einvoiceRequestBody `json:"einvoice"`
}

type settlementResponse struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	Method          string `json:"method"`
	Amount          string `json:"amount"`
	PointsUsed      int64  `json:"points_used"`
	PointsAmount    string `json:"points_amount"`
	AmountReceived  string `json:"amount_received,omitempty"`
	ChangeAmount    string `json:"change_amount,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`
	ProcessedAt     string `json:"processed_at"`
}

type settleResponse struct {
	Order           orderResponse      `json:"order"`
	Settlement      settlementResponse `json:"settlement"`
	RemainingPoints int64              `json:"remaining_points"`
}

func (h *SettlementsHandler) Settle(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var body settleRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := service.SettleRequest{
		VenueID:         venueID,
		OrderID:         orderID,
		ProcessedBy:     claims.UserID,
		Method:          body.Method,
		UsePoints:       body.UsePoints,
		ReferenceNumber: body.ReferenceNumber,
	}
	if body.AmountReceived != "" {
		d, err := decimal.NewFromString(body.AmountReceived)
		if err != nil || d.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid amount received")
			return
		}
		req.AmountReceived = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	if body.Einvoice != nil {
		req.Einvoice = &service.EinvoiceRequest{
			PublishNow: body.Einvoice.PublishNow,
			Symbol:     body.Einvoice.Symbol,
			Template:   body.Einvoice.Template,
		}
	}

	res, err := h.svc.Settle(r.Context(), req)
	if err != nil {
		h.writeSettleError(w, err)
		return
	}

	h.cache.InvalidateOrder(r.Context(), venueID, orderID)
	h.broadcast(venueID, ws.EventPaymentCompleted, map[string]interface{}{
		"order_id":     orderID.String(),
		"order_number": res.Order.OrderNumber,
		"method":       res.Settlement.Method,
		"amount":       numericString(res.Settlement.Amount),
		"points_used":  res.PointsUsed,
	})
	if res.TableFreed != nil {
		h.cache.InvalidateTables(r.Context(), venueID)
		h.broadcast(venueID, ws.EventTableStatusChanged, map[string]string{
			"table_id": res.TableFreed.String(),
			"status":   enum.TableStatusAvailable,
		})
	}

	writeJSON(w, http.StatusCreated, settleResponse{
		Order:           orderViewWithTotals(res.Order, res.Totals),
		Settlement:      settlementView(res.Settlement),
		RemainingPoints: res.RemainingPoints,
	})
}

func (h *SettlementsHandler) writeSettleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrInvalidMethod),
		errors.Is(err, service.ErrMissingCashReceived),
		errors.Is(err, service.ErrEinvoiceSymbol):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotServed),
		errors.Is(err, service.ErrZeroTotal):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoCustomer),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrPointsCoverTotal),
		errors.Is(err, service.ErrPointsNotEnough),
		errors.Is(err, service.ErrCashReceived):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("ERROR: settle order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to settle order")
	}
}

// List returns the settlement history of an order.
func (h *SettlementsHandler) List(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	// The settlements table is keyed by order alone, so the order lookup
	// carries the venue check.
	if _, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, VenueID: venueID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order for settlements: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}

	settlements, err := h.store.ListSettlementsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list settlements: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}

	out := make([]settlementResponse, 0, len(settlements))
	for _, s := range settlements {
		out = append(out, settlementView(s))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settlements": out})
}

func (h *SettlementsHandler) broadcast(venueID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s payload: %v", event, err)
		return
	}
	h.hub.BroadcastToVenue(venueID, ws.Event{Type: event, Payload: data})
}

func settlementView(s database.Settlement) settlementResponse {
	resp := settlementResponse{
		ID:              s.ID.String(),
		OrderID:         s.OrderID.String(),
		Method:          s.Method,
		Amount:          numericString(s.Amount),
		PointsUsed:      s.PointsUsed,
		PointsAmount:    numericString(s.PointsAmount),
		ReferenceNumber: textString(s.ReferenceNumber),
		ProcessedAt:     s.ProcessedAt.UTC().Format(time.RFC3339),
	}
	if s.AmountReceived.Valid {
		resp.AmountReceived = numericString(s.AmountReceived)
	}
	if s.ChangeAmount.Valid {
		resp.ChangeAmount = numericString(s.ChangeAmount)
	}
	return resp
}

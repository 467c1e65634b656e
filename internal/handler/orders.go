package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/cache"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/service"
	"github.com/resto-pos/api/internal/ws"
)

// OrdersStore is what the orders handler reads and writes outside the
// creation transaction.
type OrdersStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListProductsByIDs(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	UpdateOrderDetails(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
}

type OrdersHandler struct {
	svc   *service.OrderService
	store OrdersStore
	cache *cache.Cache
	hub   *ws.Hub
}

func NewOrdersHandler(svc *service.OrderService, store OrdersStore, c *cache.Cache, hub *ws.Hub) *OrdersHandler {
	return &OrdersHandler{svc: svc, store: store, cache: c, hub: hub}
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Notes     string `json:"notes"`
}

type createOrderRequest struct {
	TableID       string                   `json:"table_id"`
	CustomerID    string                   `json:"customer_id"`
	CustomerName  string                   `json:"customer_name"`
	CustomerCount int32                    `json:"customer_count"`
	Notes         string                   `json:"notes"`
	Discount      string                   `json:"discount"`
	Items         []createOrderItemRequest `json:"items"`
}

type orderItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
	Notes     string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID            string `json:"id"`
	VenueID       string `json:"venue_id"`
	OrderNumber   string `json:"order_number"`
	TableID       string `json:"table_id,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerCount int32  `json:"customer_count"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	Subtotal      string `json:"subtotal"`
	Tax           string `json:"tax"`
	Discount      string `json:"discount"`
	Total         string `json:"total"`
	FinalTotal    string `json:"final_total"`
	PaymentMethod string `json:"payment_method,omitempty"`

	EinvoiceRequested bool   `json:"einvoice_requested"`
	EinvoiceStatus    int16  `json:"einvoice_status"`
	EinvoiceNumber    string `json:"einvoice_number,omitempty"`

	OrderedAt string `json:"ordered_at"`
	ServedAt  string `json:"served_at,omitempty"`
	PaidAt    string `json:"paid_at,omitempty"`
}

type orderDetailResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
}

func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svcReq := service.CreateOrderRequest{
		VenueID:       venueID,
		CustomerName:  req.CustomerName,
		CustomerCount: req.CustomerCount,
		Notes:         req.Notes,
		CreatedBy:     claims.UserID,
	}
	if req.TableID != "" {
		id, err := uuid.Parse(req.TableID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid table ID")
			return
		}
		svcReq.TableID = &id
	}
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid customer ID")
			return
		}
		svcReq.CustomerID = &id
	}
	if req.Discount != "" {
		d, err := decimal.NewFromString(req.Discount)
		if err != nil || d.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid discount")
			return
		}
		svcReq.Discount = d
	}
	for _, it := range req.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid product ID")
			return
		}
		svcReq.Lines = append(svcReq.Lines, service.CreateOrderLine{
			ProductID: productID,
			Quantity:  it.Quantity,
			Notes:     it.Notes,
		})
	}

	res, err := h.svc.Create(r.Context(), svcReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoLines), errors.Is(err, service.ErrBadQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnknownProduct):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrTableNotFound):
			writeError(w, http.StatusNotFound, "table not found")
		default:
			log.Printf("ERROR: create order: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	detail := h.detailView(r.Context(), res.Order, res.Items)
	h.broadcast(venueID, ws.EventOrderCreated, detail)
	if svcReq.TableID != nil {
		h.cache.InvalidateTables(r.Context(), venueID)
		h.broadcast(venueID, ws.EventTableStatusChanged, map[string]string{
			"table_id": svcReq.TableID.String(),
			"status":   enum.TableStatusOccupied,
		})
	}

	writeJSON(w, http.StatusCreated, detail)
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	params := database.ListOrdersParams{
		VenueID: venueID,
		Limit:   50,
	}
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		if !enum.IsValidOrderStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := q.Get("table_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid table ID filter")
			return
		}
		params.TableID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		params.Limit = int32(n)
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		params.Offset = int32(n)
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, h.orderView(r.Context(), o))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": out})
}

func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	key := h.cache.OrderKey(venueID, orderID)
	var cached orderDetailResponse
	if err := h.cache.GetJSON(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	detail := h.detailView(r.Context(), order, items)
	h.cache.SetJSON(r.Context(), key, detail)
	writeJSON(w, http.StatusOK, detail)
}

type updateOrderRequest struct {
	CustomerName  *string `json:"customer_name"`
	CustomerCount *int32  `json:"customer_count"`
	Notes         *string `json:"notes"`
	Discount      *string `json:"discount"`
}

// Update edits the mutable details of a live order. Items are fixed at
// creation; status has its own endpoint.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}
	if enum.IsTerminalOrderStatus(order.Status) {
		writeError(w, http.StatusConflict, "order is already paid or cancelled")
		return
	}

	// Absent fields keep their stored values.
	params := database.UpdateOrderDetailsParams{
		ID:            orderID,
		VenueID:       venueID,
		CustomerName:  order.CustomerName,
		CustomerCount: order.CustomerCount,
		Notes:         order.Notes,
		Discount:      order.Discount,
	}
	if req.CustomerName != nil {
		params.CustomerName = pgtype.Text{String: *req.CustomerName, Valid: *req.CustomerName != ""}
	}
	if req.CustomerCount != nil {
		if *req.CustomerCount < 0 {
			writeError(w, http.StatusBadRequest, "invalid customer count")
			return
		}
		params.CustomerCount = *req.CustomerCount
	}
	if req.Notes != nil {
		params.Notes = pgtype.Text{String: *req.Notes, Valid: *req.Notes != ""}
	}
	if req.Discount != nil {
		d, err := decimal.NewFromString(*req.Discount)
		if err != nil || d.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid discount")
			return
		}
		params.Discount = decimalNumeric(d)
	}

	updated, err := h.store.UpdateOrderDetails(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "order is already paid or cancelled")
			return
		}
		log.Printf("ERROR: update order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	h.cache.InvalidateOrder(r.Context(), venueID, orderID)
	h.broadcast(venueID, ws.EventOrderUpdated, map[string]string{
		"order_id":     orderID.String(),
		"order_number": updated.OrderNumber,
	})

	writeJSON(w, http.StatusOK, h.orderView(r.Context(), updated))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	if err := service.ValidateTransition(order.Status, req.Status); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderTerminal), errors.Is(err, service.ErrSettlementOnly):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:         orderID,
		VenueID:    venueID,
		Status:     req.Status,
		PrevStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "order status changed concurrently, retry")
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	h.cache.InvalidateOrder(r.Context(), venueID, orderID)
	h.broadcast(venueID, ws.EventOrderStatusUpdated, map[string]string{
		"order_id": orderID.String(),
		"status":   updated.Status,
	})

	writeJSON(w, http.StatusOK, h.orderView(r.Context(), updated))
}

func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
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

	cancelled, err := h.store.CancelOrder(r.Context(), database.CancelOrderParams{ID: orderID, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "order is already paid or cancelled")
			return
		}
		log.Printf("ERROR: cancel order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}

	h.cache.InvalidateOrder(r.Context(), venueID, orderID)
	h.broadcast(venueID, ws.EventOrderStatusUpdated, map[string]string{
		"order_id": orderID.String(),
		"status":   cancelled.Status,
	})

	if cancelled.TableID.Valid {
		tableID := uuid.UUID(cancelled.TableID.Bytes)
		if _, err := h.store.UpdateTableStatus(r.Context(), database.UpdateTableStatusParams{
			ID:      tableID,
			VenueID: venueID,
			Status:  enum.TableStatusAvailable,
		}); err != nil {
			log.Printf("ERROR: free table after cancel: %v", err)
		} else {
			h.cache.InvalidateTables(r.Context(), venueID)
			h.broadcast(venueID, ws.EventTableStatusChanged, map[string]string{
				"table_id": tableID.String(),
				"status":   enum.TableStatusAvailable,
			})
		}
	}

	writeJSON(w, http.StatusOK, h.orderView(r.Context(), cancelled))
}

func (h *OrdersHandler) broadcast(venueID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s payload: %v", event, err)
		return
	}
	h.hub.BroadcastToVenue(venueID, ws.Event{Type: event, Payload: data})
}

func (h *OrdersHandler) orderView(ctx context.Context, o database.Order) orderResponse {
	totals, err := service.ResolveTotals(ctx, h.store, o)
	if err != nil {
		log.Printf("ERROR: resolve totals for order %s: %v", o.OrderNumber, err)
		// Fall back to the stored amounts rather than failing the response.
		totals = service.StoredTotals(o)
	}
	return orderViewWithTotals(o, totals)
}

func (h *OrdersHandler) detailView(ctx context.Context, o database.Order, items []database.OrderItem) orderDetailResponse {
	out := orderDetailResponse{
		orderResponse: h.orderView(ctx, o),
		Items:         make([]orderItemResponse, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, orderItemResponse{
			ID:        it.ID.String(),
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			UnitPrice: numericString(it.UnitPrice),
			Total:     numericString(it.Total),
			Notes:     textString(it.Notes),
		})
	}
	return out
}

func orderViewWithTotals(o database.Order, totals service.OrderTotals) orderResponse {
	return orderResponse{
		ID:            o.ID.String(),
		VenueID:       o.VenueID.String(),
		OrderNumber:   o.OrderNumber,
		TableID:       uuidString(o.TableID),
		CustomerID:    uuidString(o.CustomerID),
		CustomerName:  textString(o.CustomerName),
		CustomerCount: o.CustomerCount,
		Status:        o.Status,
		Notes:         textString(o.Notes),
		Subtotal:      totals.Subtotal.String(),
		Tax:           totals.Tax.String(),
		Discount:      totals.Discount.String(),
		Total:         totals.Total.String(),
		FinalTotal:    totals.FinalTotal.String(),
		PaymentMethod: textString(o.PaymentMethod),

		EinvoiceRequested: o.EinvoiceRequested,
		EinvoiceStatus:    o.EinvoiceStatus,
		EinvoiceNumber:    textString(o.EinvoiceNumber),

		OrderedAt: o.OrderedAt.UTC().Format(time.RFC3339),
		ServedAt:  timeString(o.ServedAt),
		PaidAt:    timeString(o.PaidAt),
	}
}

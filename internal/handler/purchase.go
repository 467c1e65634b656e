package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/middleware"
	"github.com/resto-pos/api/internal/objectstore"
	"github.com/resto-pos/api/internal/service"
)

// maxAttachmentSize bounds uploaded delivery notes and supplier invoices.
const maxAttachmentSize = 10 << 20

// attachmentURLExpiry is how long a presigned download link stays valid.
const attachmentURLExpiry = 15 * time.Minute

type PurchaseStore interface {
	GetPurchaseOrder(ctx context.Context, arg database.GetPurchaseOrderParams) (database.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, arg database.ListPurchaseOrdersParams) ([]database.PurchaseOrder, error)
	ListPurchaseOrderItems(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderItem, error)
	CreatePurchaseOrderAttachment(ctx context.Context, arg database.CreatePurchaseOrderAttachmentParams) (database.PurchaseOrderAttachment, error)
	ListPurchaseOrderAttachments(ctx context.Context, purchaseOrderID uuid.UUID) ([]database.PurchaseOrderAttachment, error)
}

type PurchaseHandler struct {
	svc     *service.PurchaseService
	store   PurchaseStore
	objects objectstore.Store
}

func NewPurchaseHandler(svc *service.PurchaseService, store PurchaseStore, objects objectstore.Store) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, store: store, objects: objects}
}

type poItemRequest struct {
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type createPORequest struct {
	SupplierID string          `json:"supplier_id"`
	Status     string          `json:"status"`
	Notes      string          `json:"notes"`
	Items      []poItemRequest `json:"items"`
}

type poItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id,omitempty"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

type poAttachmentResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	DownloadURL string `json:"download_url,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type poResponse struct {
	ID         string `json:"id"`
	PoNumber   string `json:"po_number"`
	SupplierID string `json:"supplier_id"`
	Status     string `json:"status"`
	Notes      string `json:"notes,omitempty"`
	Total      string `json:"total"`
	CreatedAt  string `json:"created_at"`
}

type poDetailResponse struct {
	poResponse
	Items       []poItemResponse       `json:"items"`
	Attachments []poAttachmentResponse `json:"attachments"`
}

func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	var req createPORequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid supplier ID")
		return
	}

	svcReq := service.CreatePORequest{
		VenueID:    venueID,
		SupplierID: supplierID,
		Status:     req.Status,
		Notes:      req.Notes,
		CreatedBy:  claims.UserID,
	}
	for _, it := range req.Items {
		qty, err := decimal.NewFromString(it.Quantity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item quantity")
			return
		}
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil || price.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid item unit price")
			return
		}
		line := service.CreatePOLine{
			Description: it.Description,
			Quantity:    qty,
			UnitPrice:   price,
		}
		if it.ProductID != "" {
			id, err := uuid.Parse(it.ProductID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid item product ID")
				return
			}
			line.ProductID = &id
		}
		svcReq.Lines = append(svcReq.Lines, line)
	}

	res, err := h.svc.Create(r.Context(), svcReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPOItems),
			errors.Is(err, service.ErrBadPOItem),
			errors.Is(err, service.ErrBadPOStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSupplierNotFound):
			writeError(w, http.StatusNotFound, "supplier not found")
		default:
			log.Printf("ERROR: create purchase order: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create purchase order")
		}
		return
	}

	out := poDetailResponse{
		poResponse:  poView(res.PurchaseOrder),
		Items:       poItemViews(res.Items),
		Attachments: []poAttachmentResponse{},
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	params := database.ListPurchaseOrdersParams{VenueID: venueID, Limit: 50}
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
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

	orders, err := h.store.ListPurchaseOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list purchase orders: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list purchase orders")
		return
	}

	out := make([]poResponse, 0, len(orders))
	for _, po := range orders {
		out = append(out, poView(po))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"purchase_orders": out})
}

func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}
	poID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase order ID")
		return
	}

	po, err := h.store.GetPurchaseOrder(r.Context(), database.GetPurchaseOrderParams{ID: poID, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "purchase order not found")
			return
		}
		log.Printf("ERROR: get purchase order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get purchase order")
		return
	}

	items, err := h.store.ListPurchaseOrderItems(r.Context(), po.ID)
	if err != nil {
		log.Printf("ERROR: list purchase order items: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get purchase order")
		return
	}
	attachments, err := h.store.ListPurchaseOrderAttachments(r.Context(), po.ID)
	if err != nil {
		log.Printf("ERROR: list purchase order attachments: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get purchase order")
		return
	}

	out := poDetailResponse{
		poResponse:  poView(po),
		Items:       poItemViews(items),
		Attachments: make([]poAttachmentResponse, 0, len(attachments)),
	}
	for _, a := range attachments {
		view := poAttachmentResponse{
			ID:          a.ID.String(),
			FileName:    a.FileName,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
			CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
		}
		url, err := h.objects.PresignedURL(r.Context(), a.ObjectKey, attachmentURLExpiry)
		if err != nil {
			log.Printf("WARN: presign attachment %s: %v", a.ObjectKey, err)
		} else {
			view.DownloadURL = url
		}
		out.Attachments = append(out.Attachments, view)
	}
	writeJSON(w, http.StatusOK, out)
}

// UploadAttachment accepts a multipart "file" part and stores it in object
// storage, keyed under the purchase order.
func (h *PurchaseHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}
	poID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase order ID")
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())

	if _, err := h.store.GetPurchaseOrder(r.Context(), database.GetPurchaseOrderParams{ID: poID, VenueID: venueID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "purchase order not found")
			return
		}
		log.Printf("ERROR: get purchase order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to upload attachment")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentSize)
	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "attachment too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectKey := fmt.Sprintf("po/%s/%s%s", poID, uuid.New(), filepath.Ext(header.Filename))

	if err := h.objects.Upload(r.Context(), objectKey, file, header.Size, contentType); err != nil {
		log.Printf("ERROR: upload attachment %s: %v", objectKey, err)
		writeError(w, http.StatusInternalServerError, "failed to upload attachment")
		return
	}

	attachment, err := h.store.CreatePurchaseOrderAttachment(r.Context(), database.CreatePurchaseOrderAttachmentParams{
		PurchaseOrderID: poID,
		FileName:        header.Filename,
		ObjectKey:       objectKey,
		ContentType:     contentType,
		SizeBytes:       header.Size,
		UploadedBy:      claims.UserID,
	})
	if err != nil {
		log.Printf("ERROR: record attachment: %v", err)
		// The object is orphaned if this fails; best effort cleanup.
		if delErr := h.objects.Delete(r.Context(), objectKey); delErr != nil {
			log.Printf("WARN: cleanup orphaned object %s: %v", objectKey, delErr)
		}
		writeError(w, http.StatusInternalServerError, "failed to record attachment")
		return
	}

	writeJSON(w, http.StatusCreated, poAttachmentResponse{
		ID:          attachment.ID.String(),
		FileName:    attachment.FileName,
		ContentType: attachment.ContentType,
		SizeBytes:   attachment.SizeBytes,
		CreatedAt:   attachment.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func poView(po database.PurchaseOrder) poResponse {
	return poResponse{
		ID:         po.ID.String(),
		PoNumber:   po.PoNumber,
		SupplierID: po.SupplierID.String(),
		Status:     po.Status,
		Notes:      textString(po.Notes),
		Total:      numericString(po.Total),
		CreatedAt:  po.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func poItemViews(items []database.PurchaseOrderItem) []poItemResponse {
	out := make([]poItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, poItemResponse{
			ID:          it.ID.String(),
			ProductID:   uuidString(it.ProductID),
			Description: it.Description,
			Quantity:    numericString(it.Quantity),
			UnitPrice:   numericString(it.UnitPrice),
			Amount:      numericString(it.Amount),
		})
	}
	return out
}

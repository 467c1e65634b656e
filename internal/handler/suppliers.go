package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/resto-pos/api/internal/database"
)

type SuppliersStore interface {
	ListSuppliers(ctx context.Context, venueID uuid.UUID) ([]database.Supplier, error)
	CreateSupplier(ctx context.Context, arg database.CreateSupplierParams) (database.Supplier, error)
}

type SuppliersHandler struct {
	store SuppliersStore
}

func NewSuppliersHandler(store SuppliersStore) *SuppliersHandler {
	return &SuppliersHandler{store: store}
}

type supplierResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (h *SuppliersHandler) List(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	suppliers, err := h.store.ListSuppliers(r.Context(), venueID)
	if err != nil {
		log.Printf("ERROR: list suppliers: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list suppliers")
		return
	}

	out := make([]supplierResponse, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, supplierView(s))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suppliers": out})
}

type createSupplierRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (h *SuppliersHandler) Create(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	var req createSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	supplier, err := h.store.CreateSupplier(r.Context(), database.CreateSupplierParams{
		VenueID: venueID,
		Name:    req.Name,
		Phone:   optionalText(req.Phone),
		Email:   optionalText(req.Email),
	})
	if err != nil {
		log.Printf("ERROR: create supplier: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create supplier")
		return
	}
	writeJSON(w, http.StatusCreated, supplierView(supplier))
}

func supplierView(s database.Supplier) supplierResponse {
	return supplierResponse{
		ID:    s.ID.String(),
		Name:  s.Name,
		Phone: textString(s.Phone),
		Email: textString(s.Email),
	}
}

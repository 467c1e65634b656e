package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/resto-pos/api/internal/database"
)

type CustomersStore interface {
	GetCustomer(ctx context.Context, arg database.GetCustomerParams) (database.Customer, error)
	ListCustomers(ctx context.Context, arg database.ListCustomersParams) ([]database.Customer, error)
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
}

type CustomersHandler struct {
	store CustomersStore
}

func NewCustomersHandler(store CustomersStore) *CustomersHandler {
	return &CustomersHandler{store: store}
}

type customerResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	Points int64  `json:"points"`
}

func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	params := database.ListCustomersParams{VenueID: venueID, Limit: 50}
	q := r.URL.Query()
	if s := q.Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
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

	customers, err := h.store.ListCustomers(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}

	out := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, customerView(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"customers": out})
}

func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}
	customerID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), database.GetCustomerParams{ID: customerID, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		log.Printf("ERROR: get customer: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}
	writeJSON(w, http.StatusOK, customerView(customer))
}

type createCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (h *CustomersHandler) Create(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		VenueID: venueID,
		Name:    req.Name,
		Phone:   optionalText(req.Phone),
		Email:   optionalText(req.Email),
	})
	if err != nil {
		log.Printf("ERROR: create customer: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create customer")
		return
	}
	writeJSON(w, http.StatusCreated, customerView(customer))
}

func customerView(c database.Customer) customerResponse {
	return customerResponse{
		ID:     c.ID.String(),
		Name:   c.Name,
		Phone:  textString(c.Phone),
		Email:  textString(c.Email),
		Points: c.Points,
	}
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

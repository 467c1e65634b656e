package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/database"
)

type ProductsStore interface {
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	ListCategories(ctx context.Context, venueID uuid.UUID) ([]database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
}

type ProductsHandler struct {
	store ProductsStore
}

func NewProductsHandler(store ProductsStore) *ProductsHandler {
	return &ProductsHandler{store: store}
}

type productResponse struct {
	ID            string `json:"id"`
	CategoryID    string `json:"category_id,omitempty"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	AfterTaxPrice string `json:"after_tax_price,omitempty"`
}

func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	params := database.ListProductsParams{VenueID: venueID, Limit: 100}
	q := r.URL.Query()
	if s := q.Get("category_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category ID")
			return
		}
		params.CategoryID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
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

	products, err := h.store.ListProducts(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productView(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"products": out})
}

type createProductRequest struct {
	CategoryID    string `json:"category_id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	AfterTaxPrice string `json:"after_tax_price"`
}

func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.LessThanOrEqual(decimal.Zero) {
		writeError(w, http.StatusBadRequest, "price must be a positive number")
		return
	}

	params := database.CreateProductParams{
		VenueID: venueID,
		Name:    req.Name,
		Price:   decimalNumeric(price),
	}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category ID")
			return
		}
		params.CategoryID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if req.AfterTaxPrice != "" {
		atp, err := decimal.NewFromString(req.AfterTaxPrice)
		if err != nil || atp.LessThan(price) {
			writeError(w, http.StatusBadRequest, "after_tax_price must be at least the price")
			return
		}
		params.AfterTaxPrice = decimalNumeric(atp)
	}

	product, err := h.store.CreateProduct(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, productView(product))
}

type categoryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int32  `json:"sort_order"`
}

func (h *ProductsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	categories, err := h.store.ListCategories(r.Context(), venueID)
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID.String(), Name: c.Name, SortOrder: c.SortOrder})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": out})
}

type createCategoryRequest struct {
	Name      string `json:"name"`
	SortOrder int32  `json:"sort_order"`
}

func (h *ProductsHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		VenueID:   venueID,
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		log.Printf("ERROR: create category: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create category")
		return
	}
	writeJSON(w, http.StatusCreated, categoryResponse{
		ID:        category.ID.String(),
		Name:      category.Name,
		SortOrder: category.SortOrder,
	})
}

func productView(p database.Product) productResponse {
	resp := productResponse{
		ID:         p.ID.String(),
		CategoryID: uuidString(p.CategoryID),
		Name:       p.Name,
		Price:      numericString(p.Price),
	}
	if p.AfterTaxPrice.Valid {
		resp.AfterTaxPrice = numericString(p.AfterTaxPrice)
	}
	return resp
}

func decimalNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

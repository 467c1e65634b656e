package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/resto-pos/api/internal/cache"
	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/ws"
)

type TablesStore interface {
	ListTables(ctx context.Context, venueID uuid.UUID) ([]database.Table, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
}

type TablesHandler struct {
	store TablesStore
	cache *cache.Cache
	hub   *ws.Hub
}

func NewTablesHandler(store TablesStore, c *cache.Cache, hub *ws.Hub) *TablesHandler {
	return &TablesHandler{store: store, cache: c, hub: hub}
}

type tableResponse struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Capacity int32  `json:"capacity"`
	Status   string `json:"status"`
}

func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	key := h.cache.TablesKey(venueID)
	var cached []tableResponse
	if err := h.cache.GetJSON(r.Context(), key, &cached); err == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"tables": cached})
		return
	}

	tables, err := h.store.ListTables(r.Context(), venueID)
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list tables")
		return
	}

	out := make([]tableResponse, 0, len(tables))
	for _, t := range tables {
		out = append(out, tableView(t))
	}
	h.cache.SetJSON(r.Context(), key, out)
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": out})
}

type createTableRequest struct {
	Number   string `json:"number"`
	Capacity int32  `json:"capacity"`
}

func (h *TablesHandler) Create(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number == "" || req.Capacity < 1 {
		writeError(w, http.StatusBadRequest, "number and positive capacity are required")
		return
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		VenueID:  venueID,
		Number:   req.Number,
		Capacity: req.Capacity,
	})
	if err != nil {
		log.Printf("ERROR: create table: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create table")
		return
	}

	h.cache.InvalidateTables(r.Context(), venueID)
	writeJSON(w, http.StatusCreated, tableView(table))
}

type updateTableStatusRequest struct {
	Status string `json:"status"`
}

func (h *TablesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	venueID, err := pathUUID(r, "vid")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid venue ID")
		return
	}
	tableID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	var req updateTableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != enum.TableStatusAvailable && req.Status != enum.TableStatusOccupied {
		writeError(w, http.StatusBadRequest, "invalid table status")
		return
	}

	table, err := h.store.UpdateTableStatus(r.Context(), database.UpdateTableStatusParams{
		ID:      tableID,
		VenueID: venueID,
		Status:  req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		log.Printf("ERROR: update table status: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update table")
		return
	}

	h.cache.InvalidateTables(r.Context(), venueID)
	payload, _ := json.Marshal(map[string]string{
		"table_id": tableID.String(),
		"status":   table.Status,
	})
	h.hub.BroadcastToVenue(venueID, ws.Event{Type: ws.EventTableStatusChanged, Payload: payload})

	writeJSON(w, http.StatusOK, tableView(table))
}

func tableView(t database.Table) tableResponse {
	return tableResponse{
		ID:       t.ID.String(),
		Number:   t.Number,
		Capacity: t.Capacity,
		Status:   t.Status,
	}
}

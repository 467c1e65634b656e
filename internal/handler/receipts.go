package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jung-kurt/gofpdf"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/service"
)

type ReceiptsStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListProductsByIDs(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error)
	ListSettlementsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Settlement, error)
}

type ReceiptsHandler struct {
	store ReceiptsStore
}

func NewReceiptsHandler(store ReceiptsStore) *ReceiptsHandler {
	return &ReceiptsHandler{store: store}
}

// Get renders the PDF receipt for a paid order. Unpaid orders have no
// receipt: the stored totals only become authoritative at settlement.
func (h *ReceiptsHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, VenueID: venueID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate receipt")
		return
	}
	if order.Status != enum.OrderStatusPaid {
		writeError(w, http.StatusConflict, "receipt is only available for paid orders")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate receipt")
		return
	}
	settlements, err := h.store.ListSettlementsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list settlements: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate receipt")
		return
	}
	totals, err := service.ResolveTotals(r.Context(), h.store, order)
	if err != nil {
		log.Printf("ERROR: resolve totals: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate receipt")
		return
	}

	names := h.productNames(r.Context(), venueID, items)
	pdf := buildReceiptPDF(order, items, names, settlements, totals)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "receipt-"+order.OrderNumber+".pdf"))
	if err := pdf.Output(w); err != nil {
		log.Printf("ERROR: write receipt pdf: %v", err)
	}
}

// productNames resolves display names for the receipt lines. A deleted
// product falls back to its id prefix rather than failing the receipt.
func (h *ReceiptsHandler) productNames(ctx context.Context, venueID uuid.UUID, items []database.OrderItem) map[uuid.UUID]string {
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	names := make(map[uuid.UUID]string, len(ids))
	products, err := h.store.ListProductsByIDs(ctx, database.ListProductsByIDsParams{VenueID: venueID, IDs: ids})
	if err != nil {
		log.Printf("WARN: resolve product names: %v", err)
		return names
	}
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names
}

func buildReceiptPDF(order database.Order, items []database.OrderItem, names map[uuid.UUID]string, settlements []database.Settlement, totals service.OrderTotals) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "RECEIPT", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Order "+order.OrderNumber, "", 1, "C", false, 0, "")
	if order.PaidAt.Valid {
		pdf.CellFormat(0, 6, "Paid at "+order.PaidAt.Time.UTC().Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(70, 6, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(15, 6, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range items {
		name := names[it.ProductID]
		if name == "" {
			name = it.ProductID.String()[:8]
		}
		pdf.CellFormat(70, 6, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, numericString(it.Total), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	receiptLine := func(label, value string, bold bool) {
		if bold {
			pdf.SetFont("Helvetica", "B", 10)
		} else {
			pdf.SetFont("Helvetica", "", 9)
		}
		pdf.CellFormat(85, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, value, "", 1, "R", false, 0, "")
	}

	receiptLine("Subtotal", totals.Subtotal.String(), false)
	receiptLine("Tax", totals.Tax.String(), false)
	if !totals.Discount.IsZero() {
		receiptLine("Discount", "-"+totals.Discount.String(), false)
	}
	receiptLine("Total", totals.FinalTotal.String(), true)
	pdf.Ln(2)

	for _, s := range settlements {
		receiptLine("Paid by "+s.Method, numericString(s.Amount), false)
		if s.PointsUsed > 0 {
			receiptLine(fmt.Sprintf("Points redeemed (%d)", s.PointsUsed), numericString(s.PointsAmount), false)
		}
		if s.AmountReceived.Valid {
			receiptLine("Received", numericString(s.AmountReceived), false)
			receiptLine("Change", numericString(s.ChangeAmount), false)
		}
	}

	if order.EinvoiceNumber.Valid {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 5, "E-invoice: "+order.EinvoiceNumber.String, "", 1, "L", false, 0, "")
	}

	return pdf
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
)

type purchaseStoreMock struct {
	getSupplier             func(ctx context.Context, arg database.GetSupplierParams) (database.Supplier, error)
	getNextPONumber         func(ctx context.Context, venueID uuid.UUID) (int32, error)
	createPurchaseOrder     func(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error)
	createPurchaseOrderItem func(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error)
}

func (m *purchaseStoreMock) GetSupplier(ctx context.Context, arg database.GetSupplierParams) (database.Supplier, error) {
	return m.getSupplier(ctx, arg)
}

func (m *purchaseStoreMock) GetNextPONumber(ctx context.Context, venueID uuid.UUID) (int32, error) {
	return m.getNextPONumber(ctx, venueID)
}

func (m *purchaseStoreMock) CreatePurchaseOrder(ctx context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error) {
	return m.createPurchaseOrder(ctx, arg)
}

func (m *purchaseStoreMock) CreatePurchaseOrderItem(ctx context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error) {
	return m.createPurchaseOrderItem(ctx, arg)
}

func newTestPurchaseService(mock *purchaseStoreMock) (*PurchaseService, *fakeTx) {
	tx := &fakeTx{}
	svc := NewPurchaseService(&fakeDB{tx: tx})
	svc.store = func(pgx.Tx) PurchaseStore { return mock }
	return svc, tx
}

func basePurchaseMock(supplierID uuid.UUID) *purchaseStoreMock {
	return &purchaseStoreMock{
		getSupplier: func(_ context.Context, arg database.GetSupplierParams) (database.Supplier, error) {
			if arg.ID != supplierID {
				return database.Supplier{}, pgx.ErrNoRows
			}
			return database.Supplier{ID: supplierID, Name: "Fresh Produce", IsActive: true}, nil
		},
		getNextPONumber: func(context.Context, uuid.UUID) (int32, error) { return 12, nil },
		createPurchaseOrder: func(_ context.Context, arg database.CreatePurchaseOrderParams) (database.PurchaseOrder, error) {
			return database.PurchaseOrder{
				ID:         uuid.New(),
				VenueID:    arg.VenueID,
				PoNumber:   arg.PoNumber,
				SupplierID: arg.SupplierID,
				Status:     arg.Status,
				Total:      arg.Total,
			}, nil
		},
		createPurchaseOrderItem: func(_ context.Context, arg database.CreatePurchaseOrderItemParams) (database.PurchaseOrderItem, error) {
			return database.PurchaseOrderItem{
				ID:              uuid.New(),
				PurchaseOrderID: arg.PurchaseOrderID,
				Description:     arg.Description,
				Quantity:        arg.Quantity,
				UnitPrice:       arg.UnitPrice,
				Amount:          arg.Amount,
			}, nil
		},
	}
}

func TestCreatePurchaseOrderDerivesTotals(t *testing.T) {
	supplierID := uuid.New()
	svc, tx := newTestPurchaseService(basePurchaseMock(supplierID))

	res, err := svc.Create(context.Background(), CreatePORequest{
		VenueID:    uuid.New(),
		SupplierID: supplierID,
		CreatedBy:  uuid.New(),
		Lines: []CreatePOLine{
			{Description: "Rice 25kg", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(300000)},
			{Description: "Fish sauce", Quantity: decimal.NewFromFloat(2.5), UnitPrice: decimal.NewFromInt(80000)},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if want := "PO-00012"; res.PurchaseOrder.PoNumber != want {
		t.Errorf("po number = %q, want %q", res.PurchaseOrder.PoNumber, want)
	}
	if res.PurchaseOrder.Status != enum.PurchaseOrderStatusDraft {
		t.Errorf("status = %s, want DRAFT by default", res.PurchaseOrder.Status)
	}
	if got := numericToDecimal(res.PurchaseOrder.Total); !got.Equal(decimal.NewFromInt(1400000)) {
		t.Errorf("total = %s, want 1400000", got)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(res.Items))
	}
	if got := numericToDecimal(res.Items[1].Amount); !got.Equal(decimal.NewFromInt(200000)) {
		t.Errorf("second item amount = %s, want 200000", got)
	}
	if !tx.committed {
		t.Error("transaction not committed")
	}
}

func TestCreatePurchaseOrderValidation(t *testing.T) {
	supplierID := uuid.New()
	svc, _ := newTestPurchaseService(basePurchaseMock(supplierID))

	_, err := svc.Create(context.Background(), CreatePORequest{VenueID: uuid.New(), SupplierID: supplierID})
	if !errors.Is(err, ErrNoPOItems) {
		t.Errorf("err = %v, want ErrNoPOItems", err)
	}

	_, err = svc.Create(context.Background(), CreatePORequest{
		VenueID:    uuid.New(),
		SupplierID: supplierID,
		Lines:      []CreatePOLine{{Description: "", Quantity: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, ErrBadPOItem) {
		t.Errorf("err = %v, want ErrBadPOItem", err)
	}

	_, err = svc.Create(context.Background(), CreatePORequest{
		VenueID:    uuid.New(),
		SupplierID: supplierID,
		Status:     "APPROVED",
		Lines:      []CreatePOLine{{Description: "Rice", Quantity: decimal.NewFromInt(1)}},
	})
	if !errors.Is(err, ErrBadPOStatus) {
		t.Errorf("err = %v, want ErrBadPOStatus", err)
	}
}

func TestCreatePurchaseOrderUnknownSupplier(t *testing.T) {
	svc, tx := newTestPurchaseService(basePurchaseMock(uuid.New()))

	_, err := svc.Create(context.Background(), CreatePORequest{
		VenueID:    uuid.New(),
		SupplierID: uuid.New(),
		Lines:      []CreatePOLine{{Description: "Rice", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1000)}},
	})
	if !errors.Is(err, ErrSupplierNotFound) {
		t.Fatalf("err = %v, want ErrSupplierNotFound", err)
	}
	if tx.committed {
		t.Error("transaction committed for unknown supplier")
	}
}

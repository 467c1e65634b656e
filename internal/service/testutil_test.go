package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/resto-pos/api/internal/database"
)

// fakeTx satisfies pgx.Tx so services can be exercised with mocked stores.
// Only Commit and Rollback matter; the query methods are never reached
// because the store factory is swapped for a mock.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(context.Context) error          { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                        { return nil }

type fakeDB struct {
	tx *fakeTx
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) { return d.tx, nil }

func mustNumeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// settlementStoreMock implements SettlementStore with overridable funcs.
type settlementStoreMock struct {
	getOrderForUpdate     func(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error)
	listOrderItemsByOrder func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listProductsByIDs     func(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error)
	getCustomerForUpdate  func(ctx context.Context, arg database.GetCustomerForUpdateParams) (database.Customer, error)
	deductCustomerPoints  func(ctx context.Context, arg database.DeductCustomerPointsParams) (database.Customer, error)
	createSettlement      func(ctx context.Context, arg database.CreateSettlementParams) (database.Settlement, error)
	markOrderPaid         func(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
	updateTableStatus     func(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
	nextInvoiceNumber     func(ctx context.Context, symbol string) (int64, error)
}

func (m *settlementStoreMock) GetOrderForUpdate(ctx context.Context, arg database.GetOrderForUpdateParams) (database.Order, error) {
	return m.getOrderForUpdate(ctx, arg)
}

func (m *settlementStoreMock) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrder(ctx, orderID)
}

func (m *settlementStoreMock) ListProductsByIDs(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error) {
	return m.listProductsByIDs(ctx, arg)
}

func (m *settlementStoreMock) GetCustomerForUpdate(ctx context.Context, arg database.GetCustomerForUpdateParams) (database.Customer, error) {
	return m.getCustomerForUpdate(ctx, arg)
}

func (m *settlementStoreMock) DeductCustomerPoints(ctx context.Context, arg database.DeductCustomerPointsParams) (database.Customer, error) {
	return m.deductCustomerPoints(ctx, arg)
}

func (m *settlementStoreMock) CreateSettlement(ctx context.Context, arg database.CreateSettlementParams) (database.Settlement, error) {
	return m.createSettlement(ctx, arg)
}

func (m *settlementStoreMock) MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error) {
	return m.markOrderPaid(ctx, arg)
}

func (m *settlementStoreMock) UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error) {
	return m.updateTableStatus(ctx, arg)
}

func (m *settlementStoreMock) NextInvoiceNumber(ctx context.Context, symbol string) (int64, error) {
	return m.nextInvoiceNumber(ctx, symbol)
}

// orderStoreMock implements OrderStore with overridable funcs.
type orderStoreMock struct {
	getNextOrderNumber func(ctx context.Context, venueID uuid.UUID) (int32, error)
	createOrder        func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItem    func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	listProductsByIDs  func(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error)
	getTable           func(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	updateTableStatus  func(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error)
}

func (m *orderStoreMock) GetNextOrderNumber(ctx context.Context, venueID uuid.UUID) (int32, error) {
	return m.getNextOrderNumber(ctx, venueID)
}

func (m *orderStoreMock) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrder(ctx, arg)
}

func (m *orderStoreMock) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItem(ctx, arg)
}

func (m *orderStoreMock) ListProductsByIDs(ctx context.Context, arg database.ListProductsByIDsParams) ([]database.Product, error) {
	return m.listProductsByIDs(ctx, arg)
}

func (m *orderStoreMock) GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error) {
	return m.getTable(ctx, arg)
}

func (m *orderStoreMock) UpdateTableStatus(ctx context.Context, arg database.UpdateTableStatusParams) (database.Table, error) {
	return m.updateTableStatus(ctx, arg)
}

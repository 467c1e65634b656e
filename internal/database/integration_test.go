//go:build integration

package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/resto-pos/api/internal/database"
	"github.com/resto-pos/api/internal/enum"
	"github.com/resto-pos/api/internal/service"
)

type testEnv struct {
	pool    *pgxpool.Pool
	queries *database.Queries

	venueID    uuid.UUID
	userID     uuid.UUID
	tableID    uuid.UUID
	customerID uuid.UUID
	productID  uuid.UUID
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pos_test"),
		postgres.WithUsername("pos"),
		postgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		t.Fatalf("migrate init: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	t.Cleanup(pool.Close)

	env := &testEnv{pool: pool, queries: database.New(pool)}
	env.seed(t)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if err := e.pool.QueryRow(ctx,
		`INSERT INTO venues (name) VALUES ('Test Venue') RETURNING id`).Scan(&e.venueID); err != nil {
		t.Fatalf("seed venue: %v", err)
	}
	if err := e.pool.QueryRow(ctx, `
		INSERT INTO users (venue_id, email, hashed_password, full_name, role)
		VALUES ($1, 'cashier@test.local', 'x', 'Test Cashier', 'CASHIER') RETURNING id`,
		e.venueID).Scan(&e.userID); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := e.pool.QueryRow(ctx,
		`INSERT INTO tables (venue_id, number, capacity) VALUES ($1, 'T1', 4) RETURNING id`,
		e.venueID).Scan(&e.tableID); err != nil {
		t.Fatalf("seed table: %v", err)
	}
	if err := e.pool.QueryRow(ctx,
		`INSERT INTO customers (venue_id, name, points) VALUES ($1, 'Loyal Customer', 25) RETURNING id`,
		e.venueID).Scan(&e.customerID); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	if err := e.pool.QueryRow(ctx, `
		INSERT INTO products (venue_id, name, price, after_tax_price)
		VALUES ($1, 'Pho Bo', 10000, 11000) RETURNING id`,
		e.venueID).Scan(&e.productID); err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func (e *testEnv) createOrder(t *testing.T, withCustomer bool) database.Order {
	t.Helper()
	svc := service.NewOrderService(e.pool)
	req := service.CreateOrderRequest{
		VenueID:   e.venueID,
		TableID:   &e.tableID,
		CreatedBy: e.userID,
		Lines:     []service.CreateOrderLine{{ProductID: e.productID, Quantity: 2}},
	}
	if withCustomer {
		req.CustomerID = &e.customerID
	}
	res, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return res.Order
}

func (e *testEnv) advanceToServed(t *testing.T, order database.Order) database.Order {
	t.Helper()
	ctx := context.Background()
	current := order
	for _, next := range []string{
		enum.OrderStatusConfirmed, enum.OrderStatusPreparing,
		enum.OrderStatusReady, enum.OrderStatusServed,
	} {
		updated, err := e.queries.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         current.ID,
			VenueID:    e.venueID,
			Status:     next,
			PrevStatus: current.Status,
		})
		if err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		current = updated
	}
	return current
}

func TestOrderLifecycleAndNumbering(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first := env.createOrder(t, false)
	if first.OrderNumber != "ORD-001" {
		t.Errorf("first order number = %q, want ORD-001", first.OrderNumber)
	}
	second := env.createOrder(t, false)
	if second.OrderNumber != "ORD-002" {
		t.Errorf("second order number = %q, want ORD-002", second.OrderNumber)
	}

	table, err := env.queries.GetTable(ctx, database.GetTableParams{ID: env.tableID, VenueID: env.venueID})
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if table.Status != enum.TableStatusOccupied {
		t.Errorf("table status = %s, want OCCUPIED", table.Status)
	}

	served := env.advanceToServed(t, first)
	if !served.ServedAt.Valid {
		t.Error("served_at not set")
	}

	// A stale CAS write must fail instead of overwriting.
	_, err = env.queries.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         served.ID,
		VenueID:    env.venueID,
		Status:     enum.OrderStatusCancelled,
		PrevStatus: enum.OrderStatusPending,
	})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("stale CAS err = %v, want pgx.ErrNoRows", err)
	}
}

func TestSettlementEndToEnd(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	order := env.advanceToServed(t, env.createOrder(t, true))
	svc := service.NewSettlementService(env.pool, nil)

	// 2 x 10000 with after-tax 11000 gives a final total of 22000, so 25
	// points (25000) cover it with 22 consumed.
	res, err := svc.Settle(ctx, service.SettleRequest{
		VenueID:     env.venueID,
		OrderID:     order.ID,
		ProcessedBy: env.userID,
		Method:      enum.PaymentMethodPoints,
		Einvoice:    &service.EinvoiceRequest{PublishNow: true, Symbol: "HD", Template: "01GTKT"},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Order.Status != enum.OrderStatusPaid {
		t.Errorf("order status = %s, want PAID", res.Order.Status)
	}
	if res.PointsUsed != 22 {
		t.Errorf("points used = %d, want 22", res.PointsUsed)
	}
	if res.RemainingPoints != 3 {
		t.Errorf("remaining points = %d, want 3", res.RemainingPoints)
	}
	if res.Order.EinvoiceNumber.String != "HD-0000001" {
		t.Errorf("einvoice number = %q, want HD-0000001", res.Order.EinvoiceNumber.String)
	}

	table, err := env.queries.GetTable(ctx, database.GetTableParams{ID: env.tableID, VenueID: env.venueID})
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if table.Status != enum.TableStatusAvailable {
		t.Errorf("table status = %s, want AVAILABLE after settlement", table.Status)
	}

	// Settling again must fail: the order left SERVED.
	_, err = svc.Settle(ctx, service.SettleRequest{
		VenueID:     env.venueID,
		OrderID:     order.ID,
		ProcessedBy: env.userID,
		Method:      enum.PaymentMethodCash,
		AmountReceived: decimal.NullDecimal{
			Decimal: decimal.NewFromInt(30000), Valid: true,
		},
	})
	if !errors.Is(err, service.ErrNotServed) {
		t.Errorf("second settle err = %v, want ErrNotServed", err)
	}

	customer, err := env.queries.GetCustomer(ctx, database.GetCustomerParams{ID: env.customerID, VenueID: env.venueID})
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer.Points != 3 {
		t.Errorf("customer points = %d, want 3", customer.Points)
	}
}

func TestDeferredEinvoiceSweep(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	order := env.advanceToServed(t, env.createOrder(t, false))
	svc := service.NewSettlementService(env.pool, nil)

	_, err := svc.Settle(ctx, service.SettleRequest{
		VenueID:        env.venueID,
		OrderID:        order.ID,
		ProcessedBy:    env.userID,
		Method:         enum.PaymentMethodCash,
		AmountReceived: decimal.NullDecimal{Decimal: decimal.NewFromInt(25000), Valid: true},
		Einvoice:       &service.EinvoiceRequest{Symbol: "HD", Template: "01GTKT"},
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	pending, err := env.queries.ListEinvoicePending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending invoices = %d, want 1", len(pending))
	}

	pub := service.NewEinvoicePublisher(env.queries, nil)
	if err := pub.PublishPending(ctx); err != nil {
		t.Fatalf("publish pending: %v", err)
	}

	got, err := env.queries.GetOrder(ctx, database.GetOrderParams{ID: order.ID, VenueID: env.venueID})
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.EinvoiceStatus != enum.EinvoicePublished {
		t.Errorf("einvoice status = %d, want published", got.EinvoiceStatus)
	}
	if got.EinvoiceNumber.String == "" {
		t.Error("no einvoice number issued by sweep")
	}

	pending, err = env.queries.ListEinvoicePending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending after sweep: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending invoices after sweep = %d, want 0", len(pending))
	}
}

func TestPurchaseOrderFlow(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	var supplierID uuid.UUID
	if err := env.pool.QueryRow(ctx,
		`INSERT INTO suppliers (venue_id, name) VALUES ($1, 'Test Supplier') RETURNING id`,
		env.venueID).Scan(&supplierID); err != nil {
		t.Fatalf("seed supplier: %v", err)
	}

	svc := service.NewPurchaseService(env.pool)
	res, err := svc.Create(ctx, service.CreatePORequest{
		VenueID:    env.venueID,
		SupplierID: supplierID,
		Status:     enum.PurchaseOrderStatusSubmitted,
		CreatedBy:  env.userID,
		Lines: []service.CreatePOLine{
			{Description: "Rice 25kg", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(300000)},
		},
	})
	if err != nil {
		t.Fatalf("create po: %v", err)
	}
	if res.PurchaseOrder.PoNumber != "PO-00001" {
		t.Errorf("po number = %q, want PO-00001", res.PurchaseOrder.PoNumber)
	}

	items, err := env.queries.ListPurchaseOrderItems(ctx, res.PurchaseOrder.ID)
	if err != nil {
		t.Fatalf("list po items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("po items = %d, want 1", len(items))
	}

	listed, err := env.queries.ListPurchaseOrders(ctx, database.ListPurchaseOrdersParams{
		VenueID: env.venueID,
		Status:  pgtype.Text{String: enum.PurchaseOrderStatusSubmitted, Valid: true},
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("list pos: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("listed pos = %d, want 1", len(listed))
	}
}

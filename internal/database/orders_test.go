package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestGetNextOrderNumber(t *testing.T) {
	mock := newMock(t)
	venueID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INTEGER)), 0) + 1")).
		WithArgs(venueID).
		WillReturnRows(pgxmock.NewRows([]string{"next"}).AddRow(int32(42)))

	next, err := New(mock).GetNextOrderNumber(context.Background(), venueID)
	if err != nil {
		t.Fatalf("GetNextOrderNumber: %v", err)
	}
	if next != 42 {
		t.Errorf("next order number: got %d, want 42", next)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestNextInvoiceNumber_IncrementsSequence(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoice_sequences")).
		WithArgs("C24TRS").
		WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(int64(7)))

	got, err := New(mock).NextInvoiceNumber(context.Background(), "C24TRS")
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	if got != 7 {
		t.Errorf("sequence: got %d, want 7", got)
	}
}

func TestDeductCustomerPoints_InsufficientBalance(t *testing.T) {
	// The balance guard lives in the WHERE clause: an over-redemption
	// matches no rows instead of driving the balance negative.
	mock := newMock(t)
	customerID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE customers")).
		WithArgs(customerID, int64(50)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "venue_id", "name", "phone", "email", "points", "is_active", "created_at", "updated_at",
		}))

	_, err := New(mock).DeductCustomerPoints(context.Background(), DeductCustomerPointsParams{
		ID: customerID, Points: 50,
	})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected pgx.ErrNoRows for insufficient balance, got %v", err)
	}
}

func TestDeductCustomerPoints_ReturnsUpdatedBalance(t *testing.T) {
	mock := newMock(t)
	customerID := uuid.New()
	venueID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE customers")).
		WithArgs(customerID, int64(20)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "venue_id", "name", "phone", "email", "points", "is_active", "created_at", "updated_at",
		}).AddRow(customerID, venueID, "Budi", nil, nil, int64(5), true, now, now))

	c, err := New(mock).DeductCustomerPoints(context.Background(), DeductCustomerPointsParams{
		ID: customerID, Points: 20,
	})
	if err != nil {
		t.Fatalf("DeductCustomerPoints: %v", err)
	}
	if c.Points != 5 {
		t.Errorf("remaining points: got %d, want 5", c.Points)
	}
}

func TestUpdateOrderStatus_StaleStateReturnsNoRows(t *testing.T) {
	// Compare-and-set: when the stored status no longer matches the
	// expected previous status, no row is updated.
	mock := newMock(t)
	orderID := uuid.New()
	venueID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders")).
		WithArgs(orderID, venueID, "CONFIRMED", "PENDING").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := New(mock).UpdateOrderStatus(context.Background(), UpdateOrderStatusParams{
		ID: orderID, VenueID: venueID, Status: "CONFIRMED", PrevStatus: "PENDING",
	})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected pgx.ErrNoRows on stale transition, got %v", err)
	}
}

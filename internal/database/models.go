package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Order is a customer's table-service transaction. Totals are stored in
// currency minor units; once the order is PAID or CANCELLED the stored
// totals are authoritative and are never recomputed from items.
type Order struct {
	ID                uuid.UUID
	VenueID           uuid.UUID
	OrderNumber       string
	TableID           pgtype.UUID
	CustomerID        pgtype.UUID
	CustomerName      pgtype.Text
	CustomerCount     int32
	Status            string
	Notes             pgtype.Text
	Subtotal          pgtype.Numeric
	Tax               pgtype.Numeric
	Discount          pgtype.Numeric
	Total             pgtype.Numeric
	PaymentMethod     pgtype.Text
	EinvoiceRequested bool
	EinvoiceStatus    int16
	EinvoiceNumber    pgtype.Text
	EinvoiceSymbol    pgtype.Text
	EinvoiceTemplate  pgtype.Text
	OrderedAt         time.Time
	ServedAt          pgtype.Timestamptz
	PaidAt            pgtype.Timestamptz
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem snapshots the unit price at order time, independent of later
// product price changes.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Total     pgtype.Numeric
	Notes     pgtype.Text
	CreatedAt time.Time
}

// Product is catalog reference data. AfterTaxPrice, when set, is the
// tax-inclusive unit price used to derive per-unit tax.
type Product struct {
	ID            uuid.UUID
	VenueID       uuid.UUID
	CategoryID    pgtype.UUID
	Name          string
	Price         pgtype.Numeric
	AfterTaxPrice pgtype.Numeric
	TaxRate       pgtype.Numeric
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Category struct {
	ID        uuid.UUID
	VenueID   uuid.UUID
	Name      string
	SortOrder int32
	CreatedAt time.Time
}

// Customer carries a redeemable loyalty point balance.
type Customer struct {
	ID        uuid.UUID
	VenueID   uuid.UUID
	Name      string
	Phone     pgtype.Text
	Email     pgtype.Text
	Points    int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Table struct {
	ID        uuid.UUID
	VenueID   uuid.UUID
	Number    string
	Capacity  int32
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settlement records how an order's final total was satisfied. Mixed
// settlements carry both the points consumed and the residual amount in a
// single row so they commit atomically with the paid-mark.
type Settlement struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	Method          string
	Amount          pgtype.Numeric
	PointsUsed      int64
	PointsAmount    pgtype.Numeric
	AmountReceived  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
	ProcessedAt     time.Time
}

type Supplier struct {
	ID        uuid.UUID
	VenueID   uuid.UUID
	Name      string
	Phone     pgtype.Text
	Email     pgtype.Text
	IsActive  bool
	CreatedAt time.Time
}

type PurchaseOrder struct {
	ID         uuid.UUID
	VenueID    uuid.UUID
	PoNumber   string
	SupplierID uuid.UUID
	Status     string
	Notes      pgtype.Text
	Total      pgtype.Numeric
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type PurchaseOrderItem struct {
	ID              uuid.UUID
	PurchaseOrderID uuid.UUID
	ProductID       pgtype.UUID
	Description     string
	Quantity        pgtype.Numeric
	UnitPrice       pgtype.Numeric
	Amount          pgtype.Numeric
}

// PurchaseOrderAttachment points at an object-storage key, not file bytes.
type PurchaseOrderAttachment struct {
	ID              uuid.UUID
	PurchaseOrderID uuid.UUID
	FileName        string
	ObjectKey       string
	ContentType     string
	SizeBytes       int64
	UploadedBy      uuid.UUID
	CreatedAt       time.Time
}

type User struct {
	ID             uuid.UUID
	VenueID        uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
}

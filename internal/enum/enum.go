package enum

// ── Order lifecycle (strict forward order, CANCELLED absorbing) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

// IsValidOrderStatus reports whether s names a known lifecycle status.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusServed, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminalOrderStatus reports whether an order can no longer change.
// Terminal orders keep their stored totals authoritative.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
)

// ── Settlement ──

const (
	PaymentMethodCash    = "CASH"
	PaymentMethodCard    = "CARD"
	PaymentMethodEwallet = "EWALLET"
	PaymentMethodQR      = "QR"
	PaymentMethodPoints  = "POINTS"
)

// IsDirectPaymentMethod reports whether the method charges an external
// channel in full (everything except loyalty points).
func IsDirectPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodEwallet, PaymentMethodQR:
		return true
	}
	return false
}

// E-invoice publish states, stored as smallint.
const (
	EinvoiceNotPublished int16 = 0
	EinvoicePublished    int16 = 1
	EinvoiceError        int16 = 2
)

// ── Purchasing ──

const (
	PurchaseOrderStatusDraft     = "DRAFT"
	PurchaseOrderStatusSubmitted = "SUBMITTED"
)

// ── Users ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleWaiter  = "WAITER"
)

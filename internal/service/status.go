package service

import (
	"errors"
	"fmt"

	"github.com/resto-pos/api/internal/enum"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderTerminal     = errors.New("order is in a terminal status")
	ErrSettlementOnly    = errors.New("orders are marked paid through settlement")
)

// allowedTransitions holds the forward edges of the order lifecycle.
// PAID is deliberately absent as a target: it is only reachable through
// the settlement flow, which performs its own guarded write.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusConfirmed, enum.OrderStatusCancelled},
	enum.OrderStatusConfirmed: {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusServed, enum.OrderStatusCancelled},
	enum.OrderStatusServed:    {enum.OrderStatusCancelled},
}

// ValidateTransition reports whether an order may move from one status to
// another through the status endpoint.
func ValidateTransition(from, to string) error {
	if !enum.IsValidOrderStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if enum.IsTerminalOrderStatus(from) {
		return ErrOrderTerminal
	}
	if to == enum.OrderStatusPaid {
		return ErrSettlementOnly
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

package service

import (
	"errors"
	"testing"

	"github.com/resto-pos/api/internal/enum"
)

func TestValidateTransitionForwardPath(t *testing.T) {
	path := []string{
		enum.OrderStatusPending,
		enum.OrderStatusConfirmed,
		enum.OrderStatusPreparing,
		enum.OrderStatusReady,
		enum.OrderStatusServed,
	}
	for i := 0; i < len(path)-1; i++ {
		if err := ValidateTransition(path[i], path[i+1]); err != nil {
			t.Errorf("%s -> %s: %v", path[i], path[i+1], err)
		}
	}
}

func TestValidateTransitionRejectsSkips(t *testing.T) {
	cases := [][2]string{
		{enum.OrderStatusPending, enum.OrderStatusPreparing},
		{enum.OrderStatusPending, enum.OrderStatusServed},
		{enum.OrderStatusConfirmed, enum.OrderStatusReady},
		{enum.OrderStatusServed, enum.OrderStatusPending},
		{enum.OrderStatusReady, enum.OrderStatusConfirmed},
	}
	for _, c := range cases {
		if err := ValidateTransition(c[0], c[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> %s: err = %v, want ErrInvalidTransition", c[0], c[1], err)
		}
	}
}

func TestValidateTransitionCancelFromAnyLiveStatus(t *testing.T) {
	live := []string{
		enum.OrderStatusPending,
		enum.OrderStatusConfirmed,
		enum.OrderStatusPreparing,
		enum.OrderStatusReady,
		enum.OrderStatusServed,
	}
	for _, from := range live {
		if err := ValidateTransition(from, enum.OrderStatusCancelled); err != nil {
			t.Errorf("%s -> CANCELLED: %v", from, err)
		}
	}
}

func TestValidateTransitionTerminalStatusesAreFrozen(t *testing.T) {
	for _, from := range []string{enum.OrderStatusPaid, enum.OrderStatusCancelled} {
		if err := ValidateTransition(from, enum.OrderStatusPending); !errors.Is(err, ErrOrderTerminal) {
			t.Errorf("%s -> PENDING: err = %v, want ErrOrderTerminal", from, err)
		}
	}
}

func TestValidateTransitionPaidOnlyViaSettlement(t *testing.T) {
	if err := ValidateTransition(enum.OrderStatusServed, enum.OrderStatusPaid); !errors.Is(err, ErrSettlementOnly) {
		t.Errorf("SERVED -> PAID: err = %v, want ErrSettlementOnly", err)
	}
}

func TestValidateTransitionUnknownStatus(t *testing.T) {
	if err := ValidateTransition(enum.OrderStatusPending, "SHIPPED"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
}

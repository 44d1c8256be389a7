package payment

import (
	"errors"
	"fmt"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrDuplicatePayment guards the gateway against double submission: a
	// charge or payout is refused while one for the same target is still
	// pending or already completed.
	ErrDuplicatePayment = errors.New("a payment for this target is already pending or completed")
	ErrTerminalStatus   = errors.New("payment is already in a terminal status")
)

// ValidationError rejects bad caller input before any gateway call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GatewayError carries the gateway's diagnostic for a failed initiation.
type GatewayError struct {
	Code        string
	Description string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Description)
}

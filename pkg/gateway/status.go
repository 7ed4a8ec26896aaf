package gateway

import (
	"fmt"
	"slices"
	"strings"
)

// Method is a payment method accepted at checkout.
type Method string

const (
	MethodPIX        Method = "PIX"
	MethodCreditCard Method = "CREDIT_CARD"
)

// Methods lists the accepted payment methods.
var Methods = []Method{MethodPIX, MethodCreditCard}

func (m Method) Valid() bool {
	return slices.Contains(Methods, m)
}

// Status is the internal payment status. Processor vocabularies are mapped
// onto it at the adapter boundary and never compared deeper in the system.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
	StatusCanceled Status = "canceled"

	// StatusUnknown marks a processor status with no internal meaning.
	// It is never persisted.
	StatusUnknown Status = "unknown"
)

// Statuses lists every persistable status.
var Statuses = []Status{StatusPending, StatusPaid, StatusFailed, StatusRefunded, StatusCanceled}

func (s Status) String() string { return string(s) }

// Valid reports whether s may be persisted.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusRefunded, StatusCanceled:
		return true
	}
	return false
}

// ParseStatus parses an internal status name. "confirmed" is accepted as
// an alias of paid, and "cancelled" of canceled.
func ParseStatus(s string) (Status, error) {
	switch v := Status(strings.ToLower(strings.TrimSpace(s))); v {
	case "confirmed":
		return StatusPaid, nil
	case "cancelled":
		return StatusCanceled, nil
	default:
		if v.Valid() {
			return v, nil
		}
	}
	return StatusUnknown, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

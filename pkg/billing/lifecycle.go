package billing

import (
	"github.com/dmitrymomot/biolink/pkg/gateway"
	"github.com/dmitrymomot/biolink/pkg/statemachine"
)

// PaymentLifecycle is the payment status graph. Webhooks may only move a
// payment along these edges; everything else is acknowledged and dropped.
var PaymentLifecycle = statemachine.MustNew(
	statemachine.WithTransition(gateway.StatusPending, []gateway.Status{
		gateway.StatusPaid,
		gateway.StatusFailed,
		gateway.StatusCanceled,
	}),
	statemachine.WithTransition(gateway.StatusPaid, []gateway.Status{
		gateway.StatusRefunded,
	}),
)

// Final statuses stamp processedAt on entry. Paid counts even though a
// refund may still follow.
func isFinal(s gateway.Status) bool {
	return s != gateway.StatusPending
}

// Package billing turns processor charges into plan entitlements.
//
// A Service ties a Store, a catalog.Catalog and one or more
// gateway.Gateway implementations together:
//
//   - Checkout resolves the plan, reuses or creates the processor customer,
//     charges the catalog price and stores a pending Payment.
//   - HandleProviderWebhook verifies and parses a delivery, records it in
//     the webhook event log and moves the payment along PaymentLifecycle.
//     The first transition to paid activates or extends the user's
//     Subscription.
//   - Cancel, GetPayment, ListPayments and SalesReport cover the user and
//     admin read/write paths. ExpireSubscriptions is run by the scheduler.
//
// Payment status only moves forward. Redelivered and out-of-order events
// are acknowledged and logged as anomalies without touching stored state.
// Subscription activation runs under Repository.LockSubscription, so
// payments of the same user settling concurrently each add their period.
//
// Usage:
//
//	svc := billing.NewService(cfg, pgstore.New(pool), cat, asaasClient,
//	    billing.WithLogger(log),
//	    billing.WithNotifier(mailer),
//	    billing.WithGateway(paddleGateway),
//	)
//
//	resp, err := svc.Checkout(ctx, billing.CheckoutInput{
//	    UserID:   userID,
//	    PlanID:   catalog.Pro,
//	    Method:   gateway.MethodPIX,
//	    Customer: customer,
//	})
//
// Only ErrInvalidSignature, ErrMalformedEvent and ErrUnknownGateway come
// back from webhook handling. Everything else is answered as handled and
// surfaced through logs and Notifier.OperatorAlert.
package billing

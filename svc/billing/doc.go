// Package billing exposes checkout, payment status, cancellation, plan
// limits and processor webhooks over HTTP.
//
// Routes are mounted on a chi router:
//
//	r := chi.NewRouter()
//	billing.New(billingSvc, limitsSvc, plans, authSvc).Routes(r)
//
// User routes need a bearer token, admin routes the admin role, and
// webhook routes authenticate through the processor signature instead.
package billing

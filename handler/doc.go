// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a request value populated by the
// configured binders, and returns a Response:
//
//	h := handler.HandlerFunc[handler.Context, CheckoutRequest](
//		func(ctx handler.Context, req CheckoutRequest) handler.Response {
//			payment, err := svc.Checkout(ctx, input(req))
//			if err != nil {
//				return handler.JSONError(err)
//			}
//			return handler.JSON(payment)
//		},
//	)
//	r.Post("/checkout", handler.Wrap(h, handler.WithBinders[handler.Context, CheckoutRequest](binder.JSON())))
//
// Every JSON body uses the envelope {success, data, message, error}.
package handler

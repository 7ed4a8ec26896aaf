package billing

import "errors"

var (
	ErrNotFound           = errors.New("billing: not found")
	ErrDuplicate          = errors.New("billing: already exists")
	ErrPlanNotPurchasable = errors.New("billing: plan is not purchasable")
	ErrInvalidSignature   = errors.New("billing: invalid webhook signature")
	ErrMalformedEvent     = errors.New("billing: malformed webhook event")
	ErrInvalidInput       = errors.New("billing: invalid input")
	ErrUnknownGateway     = errors.New("billing: unknown payment gateway")

	ErrFailedToCreateCustomer = errors.New("billing: failed to create processor customer")
	ErrFailedToCreateCharge   = errors.New("billing: failed to create processor charge")
	ErrFailedToPersist        = errors.New("billing: failed to persist billing record")
)

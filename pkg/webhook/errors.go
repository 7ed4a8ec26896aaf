package webhook

import "errors"

var (
	ErrMissingSecret      = errors.New("webhook: signing secret is not configured")
	ErrMissingSignature   = errors.New("webhook: signature is missing")
	ErrMalformedSignature = errors.New("webhook: signature is malformed")
	ErrSignatureMismatch  = errors.New("webhook: signature mismatch")
)

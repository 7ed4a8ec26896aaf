package auth

import "errors"

var (
	ErrMissingSecret = errors.New("auth: missing signing secret")
	ErrMissingToken  = errors.New("auth: missing bearer token")
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrInvalidUserID = errors.New("auth: token subject is not a user id")
)

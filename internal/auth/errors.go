package auth

import "errors"

var (
	// ErrUnauthorized represents missing or invalid authentication tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired is returned when the access token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

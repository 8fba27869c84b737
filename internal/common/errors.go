// Package common defines shared constants and sentinel errors used across
// the authentication server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Token errors surfaced by the codec.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Session errors added on top of the codec.
	ErrStaleToken     = errors.New("refresh token superseded")
	ErrPersonNotFound = errors.New("person not found")
	ErrMissingToken   = errors.New("missing token")
)

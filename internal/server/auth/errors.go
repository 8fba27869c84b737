package auth

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/storeauth/internal/common"
)

// Kind classifies an authentication failure.
type Kind string

const (
	// KindInvalid: malformed token or signature mismatch. The payload is never trusted.
	KindInvalid Kind = "invalid_token"
	// KindExpired: well-formed, correctly signed, past its expiry.
	KindExpired Kind = "token_expired"
	// KindStale: a refresh token superseded by a later rotation.
	KindStale Kind = "stale_token"
	// KindPersonNotFound: the token names a person that no longer exists.
	KindPersonNotFound Kind = "person_not_found"
	// KindMissingToken: a required token was not presented.
	KindMissingToken Kind = "missing_token"
)

// AuthError is the structured result of a failed authentication. None of
// the kinds are retryable: the client has to log in again or present a
// valid refresh token.
type AuthError struct {
	Kind    Kind
	Message string
	// Status is the HTTP-equivalent status code, 401 for every kind.
	Status int
	// State is the resolver state in which the request failed, not the
	// terminal outcome: every AuthError from Resolve is a rejection. It is
	// StateRejected when the access token itself was missing or unusable,
	// StateAccessExpiredRefreshMissing when an expired access token came
	// without a refresh token, StateAccessExpiredRefreshInvalid when the
	// refresh token failed, and StateAccessValid when a valid access token
	// named an unknown person. Empty for errors produced outside the resolver.
	State State
}

func newAuthError(kind Kind, msg string) *AuthError {
	return &AuthError{Kind: kind, Message: msg, Status: http.StatusUnauthorized}
}

func (e *AuthError) Error() string {
	return e.Message
}

// Unwrap exposes the matching sentinel from internal/common so callers can
// use errors.Is(err, common.ErrTokenExpired) and friends.
func (e *AuthError) Unwrap() error {
	switch e.Kind {
	case KindInvalid:
		return common.ErrInvalidToken
	case KindExpired:
		return common.ErrTokenExpired
	case KindStale:
		return common.ErrStaleToken
	case KindPersonNotFound:
		return common.ErrPersonNotFound
	case KindMissingToken:
		return common.ErrMissingToken
	}
	return common.ErrorUnauthorized
}

// AsAuthError returns the *AuthError inside err, if any.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// withState returns a copy of e tagged with the resolver state s.
func (e *AuthError) withState(s State) *AuthError {
	c := *e
	c.State = s
	return &c
}

func (e *AuthError) withMessage(msg string) *AuthError {
	c := *e
	c.Message = msg
	return &c
}

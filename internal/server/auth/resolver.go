package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storeauth/internal/logging"
	"github.com/dmitrijs2005/storeauth/internal/server/models"
)

// State is a step of the per-request resolution state machine.
type State string

const (
	StateAccessValid                 State = "access_valid"
	StateAccessExpiredRefreshMissing State = "access_expired_refresh_missing"
	StateAccessExpiredRefreshInvalid State = "access_expired_refresh_invalid"
	StateAuthenticated               State = "authenticated"
	StateRejected                    State = "rejected"
)

// Session is a successfully resolved request: the person plus the token
// pair the caller must relay back to the client.
type Session struct {
	Person       *models.Person
	AccessToken  string
	RefreshToken string
	State        State

	AccessRenewed  bool
	RefreshRotated bool
}

// SessionResolver is the entry point for protected endpoints. It keeps no
// per-request state: every call is reconstructed from the presented tokens.
type SessionResolver struct {
	access  *AccessTokenManager
	refresh *RefreshTokenManager
	persons PersonStore
	logger  logging.Logger
}

// NewSessionResolver validates s, derives the per-purpose keys and wires the
// managers around persons.
func NewSessionResolver(s Settings, persons PersonStore, logger logging.Logger) (*SessionResolver, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth settings: %w", err)
	}
	accessKey, refreshKey, err := DeriveKeys(s.SecretKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}

	now := s.clock()
	return &SessionResolver{
		access:  NewAccessTokenManager(NewCodec(accessKey, now), s),
		refresh: NewRefreshTokenManager(NewCodec(refreshKey, now), persons, s),
		persons: persons,
		logger:  logger.With("module", "session_resolver"),
	}, nil
}

func (r *SessionResolver) AccessTokens() *AccessTokenManager   { return r.access }
func (r *SessionResolver) RefreshTokens() *RefreshTokenManager { return r.refresh }

// Resolve runs the state machine once for a request carrying accessToken and
// an optional refreshToken (empty string when absent). Authentication
// failures are returned as *AuthError with State set to where the request
// was rejected; any other error is an internal failure.
func (r *SessionResolver) Resolve(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if accessToken == "" {
		return nil, r.reject(ctx, StateRejected, newAuthError(KindMissingToken, "missing access token"), 0)
	}

	claims, err := r.access.Decode(accessToken)
	if err == nil {
		return r.resolveValidAccess(ctx, accessToken, refreshToken, claims)
	}

	ae, ok := AsAuthError(err)
	if !ok || ae.Kind != KindExpired {
		return nil, r.reject(ctx, StateRejected, err, 0)
	}

	if refreshToken == "" {
		return nil, r.reject(ctx, StateAccessExpiredRefreshMissing,
			newAuthError(KindMissingToken, "token expired, no refresh token provided"), 0)
	}

	return r.resolveWithRefresh(ctx, refreshToken)
}

func (r *SessionResolver) resolveValidAccess(ctx context.Context, accessToken, refreshToken string, claims *Claims) (*Session, error) {
	person, err := lookupPerson(ctx, r.persons, claims.PersonID)
	if err != nil {
		return nil, r.reject(ctx, StateAccessValid, err, claims.PersonID)
	}

	token, renewed, err := r.access.renew(accessToken, claims)
	if err != nil {
		return nil, err
	}
	if renewed {
		r.logger.Debug(ctx, "access token renewed", "person_id", person.ID)
	}

	return &Session{
		Person:        person,
		AccessToken:   token,
		RefreshToken:  refreshToken,
		State:         StateAccessValid,
		AccessRenewed: renewed,
	}, nil
}

func (r *SessionResolver) resolveWithRefresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := r.refresh.Decode(refreshToken)
	if err != nil {
		if ae, ok := AsAuthError(err); ok {
			switch ae.Kind {
			case KindExpired:
				err = ae.withMessage("refresh token has expired")
			case KindInvalid:
				err = ae.withMessage("invalid refresh token")
			}
		}
		return nil, r.reject(ctx, StateAccessExpiredRefreshInvalid, err, 0)
	}

	person, err := r.refresh.check(ctx, claims)
	if err != nil {
		return nil, r.reject(ctx, StateAccessExpiredRefreshInvalid, err, claims.PersonID)
	}

	access, err := r.access.Issue(person.ID)
	if err != nil {
		return nil, err
	}

	token, rotated, err := r.refresh.RotateIfNearExpiry(ctx, refreshToken, claims, person)
	if err != nil {
		return nil, r.reject(ctx, StateAccessExpiredRefreshInvalid, err, person.ID)
	}
	if rotated {
		r.logger.Debug(ctx, "refresh token rotated", "person_id", person.ID)
	}

	return &Session{
		Person:         person,
		AccessToken:    access.Token,
		RefreshToken:   token,
		State:          StateAuthenticated,
		AccessRenewed:  true,
		RefreshRotated: rotated,
	}, nil
}

// Start opens a session for an already authenticated person: a fresh access
// token plus a refresh token that supersedes any earlier one.
func (r *SessionResolver) Start(ctx context.Context, personID int64) (*Session, error) {
	person, err := lookupPerson(ctx, r.persons, personID)
	if err != nil {
		return nil, err
	}
	access, err := r.access.Issue(person.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := r.refresh.Issue(ctx, person)
	if err != nil {
		return nil, err
	}
	r.logger.Info(ctx, "session started", "person_id", person.ID)

	return &Session{
		Person:         person,
		AccessToken:    access.Token,
		RefreshToken:   refresh.Token,
		State:          StateAuthenticated,
		AccessRenewed:  true,
		RefreshRotated: true,
	}, nil
}

// Revoke ends every session of the person: all outstanding refresh tokens
// become stale. Access tokens stay valid until they expire.
func (r *SessionResolver) Revoke(ctx context.Context, personID int64) error {
	person, err := lookupPerson(ctx, r.persons, personID)
	if err != nil {
		return err
	}
	if err := r.refresh.Revoke(ctx, person); err != nil {
		return err
	}
	r.logger.Info(ctx, "sessions revoked", "person_id", person.ID)
	return nil
}

// reject tags authentication failures with the state they occurred in and
// logs them. Internal errors pass through untouched.
func (r *SessionResolver) reject(ctx context.Context, state State, err error, personID int64) error {
	var ae *AuthError
	if !errors.As(err, &ae) {
		r.logger.Error(ctx, "session resolution failed", "state", state, "error", err)
		return err
	}
	r.logger.Warn(ctx, "request rejected", "state", state, "kind", ae.Kind, "person_id", personID)
	return ae.withState(state)
}

package auth

import (
	"time"
)

// AccessToken is a freshly minted access token.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// AccessTokenManager issues stateless access tokens and replaces them
// proactively when they come close to expiry. Nothing is persisted.
type AccessTokenManager struct {
	codec          *Codec
	ttl            time.Duration
	renewThreshold time.Duration
	now            func() time.Time
}

func NewAccessTokenManager(codec *Codec, s Settings) *AccessTokenManager {
	return &AccessTokenManager{
		codec:          codec,
		ttl:            s.AccessTokenTTL,
		renewThreshold: s.AccessRenewThreshold,
		now:            s.clock(),
	}
}

// Issue mints an access token for personID expiring at now+ttl.
func (m *AccessTokenManager) Issue(personID int64) (*AccessToken, error) {
	exp := m.now().Add(m.ttl)
	token, err := m.codec.Encode(Claims{
		PersonID:         personID,
		RegisteredClaims: expiringAt(exp),
	})
	if err != nil {
		return nil, err
	}
	return &AccessToken{Token: token, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Decode verifies an access token. Tokens carrying a refresh id are not
// access tokens and are rejected as invalid.
func (m *AccessTokenManager) Decode(token string) (*Claims, error) {
	claims, err := m.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.RefreshTokenID != "" {
		return nil, newAuthError(KindInvalid, "invalid token")
	}
	return claims, nil
}

// RefreshIfNearExpiry decodes token and, if its expiry falls at or before
// now+renewThreshold, returns a brand-new token for personID. Otherwise the
// original token is returned unchanged. The bool reports a replacement.
func (m *AccessTokenManager) RefreshIfNearExpiry(token string, personID int64) (string, bool, error) {
	claims, err := m.Decode(token)
	if err != nil {
		return "", false, err
	}
	if claims.PersonID != personID {
		return "", false, newAuthError(KindInvalid, "invalid token")
	}
	return m.renew(token, claims)
}

func (m *AccessTokenManager) nearExpiry(claims *Claims) bool {
	return !claims.Expiry().After(m.now().Add(m.renewThreshold))
}

func (m *AccessTokenManager) renew(token string, claims *Claims) (string, bool, error) {
	if !m.nearExpiry(claims) {
		return token, false, nil
	}
	fresh, err := m.Issue(claims.PersonID)
	if err != nil {
		return "", false, err
	}
	return fresh.Token, true, nil
}

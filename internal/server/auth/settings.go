package auth

import (
	"errors"
	"time"
)

// Default token lifetimes and renewal windows.
const (
	DefaultAccessTokenTTL           = 15 * time.Minute
	DefaultRefreshTokenTTL          = 7 * 24 * time.Hour
	DefaultRefreshRotationThreshold = 3 * 24 * time.Hour
)

// Settings is the explicit configuration of the token subsystem. It is
// passed to every component at construction; nothing here is global.
type Settings struct {
	// SecretKey is the master HMAC secret. Per-purpose signing keys are
	// derived from it, see DeriveKeys.
	SecretKey []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// AccessRenewThreshold: an access token whose expiry falls at or before
	// now+threshold is replaced with a fresh one.
	AccessRenewThreshold time.Duration
	// RefreshRotationThreshold: a refresh token whose expiry falls at or
	// before now+threshold is rotated when it is used.
	RefreshRotationThreshold time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultSettings returns settings with the stock lifetimes for secret.
func DefaultSettings(secret []byte) Settings {
	return Settings{
		SecretKey:                secret,
		AccessTokenTTL:           DefaultAccessTokenTTL,
		RefreshTokenTTL:          DefaultRefreshTokenTTL,
		AccessRenewThreshold:     DefaultAccessTokenTTL,
		RefreshRotationThreshold: DefaultRefreshRotationThreshold,
	}
}

func (s Settings) Validate() error {
	if len(s.SecretKey) == 0 {
		return errors.New("secret key is empty")
	}
	if s.AccessTokenTTL <= 0 {
		return errors.New("access token ttl must be positive")
	}
	if s.RefreshTokenTTL <= 0 {
		return errors.New("refresh token ttl must be positive")
	}
	if s.AccessRenewThreshold < 0 || s.RefreshRotationThreshold < 0 {
		return errors.New("renewal thresholds must not be negative")
	}
	return nil
}

// clock returns a UTC clock based on s.Now.
func (s Settings) clock() func() time.Time {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return func() time.Time { return now().UTC() }
}

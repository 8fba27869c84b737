// Package auth implements the token lifecycle: signing and verifying claims,
// issuing and renewing access tokens, issuing and rotating refresh tokens
// anchored on the person record, and resolving a request's session from the
// tokens it presents.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed payload of both token kinds. Access tokens carry only
// the person id; refresh tokens also carry the rotation id.
type Claims struct {
	PersonID       int64  `json:"person_id"`
	RefreshTokenID string `json:"refresh_token_id,omitempty"`
	jwt.RegisteredClaims
}

// Expiry returns the embedded expiry instant in UTC, or the zero time when
// the claim is absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time.UTC()
}

func expiringAt(exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
}

// Codec signs and verifies claims with HS256 under a single key. It does no
// I/O and is safe for concurrent use.
type Codec struct {
	key []byte
	now func() time.Time
}

func NewCodec(key []byte, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{key: key, now: now}
}

// Encode signs claims as a header.payload.signature token. ExpiresAt must be set.
func (c *Codec) Encode(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode verifies the signature and only then checks expiry, so a forged
// token is reported as invalid whatever expiry it claims. A token is expired
// once now >= exp.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, newAuthError(KindInvalid, "invalid token")
	}

	if claims.ExpiresAt == nil {
		return nil, newAuthError(KindInvalid, "invalid token")
	}
	if !c.now().UTC().Before(claims.Expiry()) {
		return nil, newAuthError(KindExpired, "token expired")
	}

	return claims, nil
}

// Package models holds the persistent records owned by the server.
package models

import "time"

// Person is the identity anchor for issued tokens. RefreshTokenID names the
// single refresh token currently accepted for the person; an empty value
// means no refresh token is live.
type Person struct {
	ID             int64
	RefreshTokenID string
	CreatedAt      time.Time
}

// HasLiveRefreshToken reports whether a refresh token may currently be
// accepted for the person.
func (p *Person) HasLiveRefreshToken() bool {
	return p.RefreshTokenID != ""
}

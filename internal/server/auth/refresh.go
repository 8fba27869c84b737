package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/dmitrijs2005/storeauth/internal/server/models"
	"github.com/google/uuid"
)

// PersonStore is the persistence port used by the token subsystem. A
// missing person is reported as common.ErrorNotFound.
type PersonStore interface {
	FindPersonByID(ctx context.Context, id int64) (*models.Person, error)
	SavePerson(ctx context.Context, p *models.Person) error
}

// RefreshToken is a freshly minted refresh token.
type RefreshToken struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// RefreshTokenManager issues refresh tokens and anchors them on the person
// record. Issuing is the rotation point: the person's stored id is replaced,
// so every earlier refresh token for that person becomes stale.
//
// Concurrent rotations for one person are not serialised. The last write
// wins and the loser's token fails later with KindStale.
type RefreshTokenManager struct {
	codec             *Codec
	persons           PersonStore
	ttl               time.Duration
	rotationThreshold time.Duration
	now               func() time.Time
	newID             func() string
}

func NewRefreshTokenManager(codec *Codec, persons PersonStore, s Settings) *RefreshTokenManager {
	return &RefreshTokenManager{
		codec:             codec,
		persons:           persons,
		ttl:               s.RefreshTokenTTL,
		rotationThreshold: s.RefreshRotationThreshold,
		now:               s.clock(),
		newID:             uuid.NewString,
	}
}

// Issue mints a refresh token with a new random id and persists that id on
// the person.
func (m *RefreshTokenManager) Issue(ctx context.Context, person *models.Person) (*RefreshToken, error) {
	id := m.newID()
	exp := m.now().Add(m.ttl)

	token, err := m.codec.Encode(Claims{
		PersonID:         person.ID,
		RefreshTokenID:   id,
		RegisteredClaims: expiringAt(exp),
	})
	if err != nil {
		return nil, err
	}

	previous := person.RefreshTokenID
	person.RefreshTokenID = id
	if err := m.persons.SavePerson(ctx, person); err != nil {
		person.RefreshTokenID = previous
		return nil, storageError("save person", err)
	}

	return &RefreshToken{ID: id, Token: token, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Decode verifies a refresh token without consulting storage. Tokens
// without a refresh id are access tokens and are rejected as invalid.
func (m *RefreshTokenManager) Decode(token string) (*Claims, error) {
	claims, err := m.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.RefreshTokenID == "" {
		return nil, newAuthError(KindInvalid, "invalid token")
	}
	return claims, nil
}

// Validate decodes token, loads its person and checks that the token is the
// person's current one. The person lookup happens before the staleness check.
func (m *RefreshTokenManager) Validate(ctx context.Context, token string) (*Claims, *models.Person, error) {
	claims, err := m.Decode(token)
	if err != nil {
		return nil, nil, err
	}
	person, err := m.check(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return claims, person, nil
}

// RotateIfNearExpiry issues a replacement when the decoded token expires at
// or before now+rotationThreshold; otherwise token is returned unchanged.
// The bool reports a rotation.
func (m *RefreshTokenManager) RotateIfNearExpiry(ctx context.Context, token string, claims *Claims, person *models.Person) (string, bool, error) {
	if claims.Expiry().After(m.now().Add(m.rotationThreshold)) {
		return token, false, nil
	}
	fresh, err := m.Issue(ctx, person)
	if err != nil {
		return "", false, err
	}
	return fresh.Token, true, nil
}

// Revoke clears the person's refresh id so that no refresh token is live.
func (m *RefreshTokenManager) Revoke(ctx context.Context, person *models.Person) error {
	previous := person.RefreshTokenID
	person.RefreshTokenID = ""
	if err := m.persons.SavePerson(ctx, person); err != nil {
		person.RefreshTokenID = previous
		return storageError("save person", err)
	}
	return nil
}

func (m *RefreshTokenManager) check(ctx context.Context, claims *Claims) (*models.Person, error) {
	person, err := lookupPerson(ctx, m.persons, claims.PersonID)
	if err != nil {
		return nil, err
	}
	if person.RefreshTokenID != claims.RefreshTokenID {
		return nil, newAuthError(KindStale, "refresh token has been superseded")
	}
	return person, nil
}

func lookupPerson(ctx context.Context, persons PersonStore, id int64) (*models.Person, error) {
	person, err := persons.FindPersonByID(ctx, id)
	if err != nil {
		return nil, storageError("find person", err)
	}
	return person, nil
}

// storageError turns a repository failure into either a PersonNotFound
// authentication failure or an internal error.
func storageError(op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return newAuthError(KindPersonNotFound, "person not found")
	}
	return fmt.Errorf("%w: %s: %v", common.ErrorInternal, op, err)
}

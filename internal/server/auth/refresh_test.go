package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRefreshManager(clock *testClock, store PersonStore) *RefreshTokenManager {
	s := testSettings(clock)
	_, refresh, _ := DeriveKeys(s.SecretKey)
	return NewRefreshTokenManager(NewCodec(refresh, s.clock()), store, s)
}

func TestRefreshTokenManager_IssuePersistsID(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newFakePersonStore(42)
	m := newRefreshManager(clock, store)

	person, err := store.FindPersonByID(ctx, 42)
	require.NoError(t, err)

	tok, err := m.Issue(ctx, person)
	require.NoError(t, err)

	_, err = uuid.Parse(tok.ID)
	require.NoError(t, err, "refresh id must be a uuid")
	assert.Equal(t, tok.ID, person.RefreshTokenID)
	assert.Equal(t, tok.ID, store.current(42))
	assert.True(t, tok.ExpiresAt.Equal(t0.Add(7*24*time.Hour)))

	claims, err := m.Decode(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, claims.RefreshTokenID)
	assert.Equal(t, int64(42), claims.PersonID)
}

func TestRefreshTokenManager_RotationMakesPreviousStale(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newFakePersonStore(42)
	m := newRefreshManager(clock, store)

	person, _ := store.FindPersonByID(ctx, 42)
	first, err := m.Issue(ctx, person)
	require.NoError(t, err)
	second, err := m.Issue(ctx, person)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	_, _, err = m.Validate(ctx, first.Token)
	requireKind(t, err, KindStale)
	assert.True(t, errors.Is(err, common.ErrStaleToken))

	claims, p, err := m.Validate(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, second.ID, claims.RefreshTokenID)
	assert.Equal(t, int64(42), p.ID)
}

func TestRefreshTokenManager_Validate_Failures(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newFakePersonStore(1, 2)
	m := newRefreshManager(clock, store)

	p1, _ := store.FindPersonByID(ctx, 1)
	tok, err := m.Issue(ctx, p1)
	require.NoError(t, err)

	t.Run("invalid", func(t *testing.T) {
		_, _, err := m.Validate(ctx, tok.Token+"x")
		requireKind(t, err, KindInvalid)
	})

	t.Run("access token presented as refresh", func(t *testing.T) {
		access := newAccessManager(clock, nil)
		a, err := access.Issue(1)
		require.NoError(t, err)
		_, _, err = m.Validate(ctx, a.Token)
		requireKind(t, err, KindInvalid)
	})

	t.Run("person lookup precedes staleness", func(t *testing.T) {
		p2, _ := store.FindPersonByID(ctx, 2)
		tok2, err := m.Issue(ctx, p2)
		require.NoError(t, err)
		_, err = m.Issue(ctx, p2) // tok2 is now stale as well
		require.NoError(t, err)
		store.delete(2)

		_, _, err = m.Validate(ctx, tok2.Token)
		requireKind(t, err, KindPersonNotFound)
	})

	t.Run("storage failure is internal", func(t *testing.T) {
		store.findErr = errors.New("connection reset")
		defer func() { store.findErr = nil }()

		_, _, err := m.Validate(ctx, tok.Token)
		require.Error(t, err)
		_, isAuth := AsAuthError(err)
		assert.False(t, isAuth)
		assert.True(t, errors.Is(err, common.ErrorInternal))
	})

	t.Run("expired", func(t *testing.T) {
		clock.Advance(8 * 24 * time.Hour)
		_, _, err := m.Validate(ctx, tok.Token)
		requireKind(t, err, KindExpired)
	})
}

func TestRefreshTokenManager_IssueSaveFailureKeepsPreviousID(t *testing.T) {
	ctx := context.Background()
	store := newFakePersonStore(5)
	m := newRefreshManager(newTestClock(), store)

	person, _ := store.FindPersonByID(ctx, 5)
	first, err := m.Issue(ctx, person)
	require.NoError(t, err)

	store.saveErr = errors.New("disk full")
	_, err = m.Issue(ctx, person)
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.Equal(t, first.ID, person.RefreshTokenID)
	assert.Equal(t, first.ID, store.current(5))
}

func TestRefreshTokenManager_RotateIfNearExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newFakePersonStore(42)
	m := newRefreshManager(clock, store)

	person, _ := store.FindPersonByID(ctx, 42)
	tok, err := m.Issue(ctx, person)
	require.NoError(t, err)

	// 4 days left: outside the 3-day window
	clock.Advance(3 * 24 * time.Hour)
	claims, person, err := m.Validate(ctx, tok.Token)
	require.NoError(t, err)
	same, rotated, err := m.RotateIfNearExpiry(ctx, tok.Token, claims, person)
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.Equal(t, tok.Token, same)
	assert.Equal(t, tok.ID, store.current(42))

	// exactly 3 days left: rotates
	clock.Advance(24 * time.Hour)
	claims, person, err = m.Validate(ctx, tok.Token)
	require.NoError(t, err)
	fresh, rotated, err := m.RotateIfNearExpiry(ctx, tok.Token, claims, person)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.NotEqual(t, tok.Token, fresh)

	_, _, err = m.Validate(ctx, tok.Token)
	requireKind(t, err, KindStale)
	_, _, err = m.Validate(ctx, fresh)
	require.NoError(t, err)
}

func TestRefreshTokenManager_Revoke(t *testing.T) {
	ctx := context.Background()
	store := newFakePersonStore(9)
	m := newRefreshManager(newTestClock(), store)

	person, _ := store.FindPersonByID(ctx, 9)
	tok, err := m.Issue(ctx, person)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, person))
	assert.Empty(t, store.current(9))
	assert.False(t, person.HasLiveRefreshToken())

	_, _, err = m.Validate(ctx, tok.Token)
	requireKind(t, err, KindStale)
}

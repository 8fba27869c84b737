package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/dmitrijs2005/storeauth/internal/server/models"
)

var t0 = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: t0} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakePersonStore struct {
	mu      sync.Mutex
	persons map[int64]models.Person
	saves   int
	saveErr error
	findErr error
}

func newFakePersonStore(ids ...int64) *fakePersonStore {
	s := &fakePersonStore{persons: map[int64]models.Person{}}
	for _, id := range ids {
		s.persons[id] = models.Person{ID: id}
	}
	return s
}

func (s *fakePersonStore) FindPersonByID(_ context.Context, id int64) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	p, ok := s.persons[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (s *fakePersonStore) SavePerson(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.persons[p.ID]; !ok {
		return common.ErrorNotFound
	}
	s.persons[p.ID] = *p
	s.saves++
	return nil
}

func (s *fakePersonStore) current(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persons[id].RefreshTokenID
}

func (s *fakePersonStore) delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.persons, id)
}

func testSettings(clock *testClock) Settings {
	s := DefaultSettings([]byte("test-secret"))
	s.Now = clock.Now
	return s
}

func requireKind(t *testing.T, err error, want Kind) *AuthError {
	t.Helper()
	ae, ok := AsAuthError(err)
	if !ok {
		t.Fatalf("expected *AuthError of kind %q, got %v", want, err)
	}
	if ae.Kind != want {
		t.Fatalf("kind = %q, want %q (message %q)", ae.Kind, want, ae.Message)
	}
	return ae
}

package persons

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/dmitrijs2005/storeauth/internal/server/models"
)

// MemoryRepository is a process-local Repository for development and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	persons map[int64]models.Person
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{persons: make(map[int64]models.Person)}
}

func (r *MemoryRepository) Create(_ context.Context, p *models.Person) (*models.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now().UTC()
	r.persons[p.ID] = *p
	return p, nil
}

// FindPersonByID returns a copy; callers never share the stored record.
func (r *MemoryRepository) FindPersonByID(_ context.Context, id int64) (*models.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.persons[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) SavePerson(_ context.Context, p *models.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.persons[p.ID]
	if !ok {
		return common.ErrorNotFound
	}
	stored.RefreshTokenID = p.RefreshTokenID
	r.persons[p.ID] = stored
	return nil
}

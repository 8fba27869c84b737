// Package persons stores the Person records that anchor refresh tokens.
// PostgreSQL, Redis and in-memory implementations share one contract.
package persons

import (
	"context"

	"github.com/dmitrijs2005/storeauth/internal/server/models"
)

// Repository persists persons. Lookups and updates of an unknown id return
// common.ErrorNotFound.
type Repository interface {
	// Create stores a new person and returns it with ID and CreatedAt set.
	Create(ctx context.Context, p *models.Person) (*models.Person, error)

	FindPersonByID(ctx context.Context, id int64) (*models.Person, error)

	// SavePerson writes the mutable fields of an existing person. Only
	// RefreshTokenID is mutable today; an empty value clears it.
	SavePerson(ctx context.Context, p *models.Person) error
}

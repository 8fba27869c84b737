package persons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storeauth/internal/common"
	"github.com/dmitrijs2005/storeauth/internal/dbx"
	"github.com/dmitrijs2005/storeauth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Person) (*models.Person, error) {
	query := `
		INSERT INTO persons (refresh_token_id)
		VALUES ($1)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, nullable(p.RefreshTokenID)).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) FindPersonByID(ctx context.Context, id int64) (*models.Person, error) {
	query := `
		SELECT id, refresh_token_id, created_at
		FROM persons
		WHERE id = $1
	`
	var (
		p         models.Person
		refreshID sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &refreshID, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.RefreshTokenID = refreshID.String
	return &p, nil
}

func (r *PostgresRepository) SavePerson(ctx context.Context, p *models.Person) error {
	query := `
		UPDATE persons
		SET refresh_token_id = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, p.ID, nullable(p.RefreshTokenID))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/kamala96/email-service/internal/models"
)

type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) CreateIdentity(ctx context.Context, name string) (*models.Identity, error) {
	identity := &models.Identity{
		PublicID: uuid.New(),
		Name:     name,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO identities (public_id, name)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		identity.PublicID, identity.Name,
	).Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return identity, nil
}

func (s *IdentityStore) GetIdentityByName(ctx context.Context, name string) (*models.Identity, error) {
	identity := &models.Identity{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, name, created_at, updated_at
		 FROM identities WHERE name = $1`,
		name,
	).Scan(&identity.ID, &identity.PublicID, &identity.Name, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *IdentityStore) GetIdentityByID(ctx context.Context, id int64) (*models.Identity, error) {
	identity := &models.Identity{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, name, created_at, updated_at
		 FROM identities WHERE id = $1`,
		id,
	).Scan(&identity.ID, &identity.PublicID, &identity.Name, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *IdentityStore) GetIdentityByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Identity, error) {
	identity := &models.Identity{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, name, created_at, updated_at
		 FROM identities WHERE public_id = $1`,
		publicID,
	).Scan(&identity.ID, &identity.PublicID, &identity.Name, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (s *IdentityStore) RenameIdentity(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE identities SET name = $2, updated_at = NOW() WHERE id = $1`,
		id, name,
	)
	return err
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/kamala96/email-service/internal/models"
)

type ClientStore struct {
	db *sql.DB
}

func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

const clientColumns = `id, public_id, system_name, static_ip, identity_id, api_key, token, token_expiry, created_at, updated_at`

func scanClient(row *sql.Row) (*models.Client, error) {
	client := &models.Client{}
	err := row.Scan(
		&client.ID, &client.PublicID, &client.SystemName, &client.StaticIP,
		&client.IdentityID, &client.APIKey, &client.Token, &client.TokenExpiry,
		&client.CreatedAt, &client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientStore) CreateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	client.PublicID = uuid.New()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO clients (public_id, system_name, static_ip, identity_id, api_key, token, token_expiry)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		client.PublicID, client.SystemName, client.StaticIP, client.IdentityID,
		client.APIKey, client.Token, client.TokenExpiry,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientStore) UpdateClient(ctx context.Context, client *models.Client) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE clients
		 SET system_name = $2, static_ip = $3, identity_id = $4,
		     api_key = $5, token = $6, token_expiry = $7, updated_at = NOW()
		 WHERE id = $1`,
		client.ID, client.SystemName, client.StaticIP, client.IdentityID,
		client.APIKey, client.Token, client.TokenExpiry,
	)
	return err
}

func (s *ClientStore) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	return scanClient(s.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

func (s *ClientStore) GetClientByStaticIP(ctx context.Context, ip string) (*models.Client, error) {
	return scanClient(s.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE static_ip = $1`, ip))
}

func (s *ClientStore) GetClientByIdentityID(ctx context.Context, identityID int64) (*models.Client, error) {
	return scanClient(s.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE identity_id = $1`, identityID))
}

func (s *ClientStore) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var client models.Client
		err := rows.Scan(
			&client.ID, &client.PublicID, &client.SystemName, &client.StaticIP,
			&client.IdentityID, &client.APIKey, &client.Token, &client.TokenExpiry,
			&client.CreatedAt, &client.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/kamala96/email-service/internal/models"
)

type MailConfigStore struct {
	db *sql.DB
}

func NewMailConfigStore(db *sql.DB) *MailConfigStore {
	return &MailConfigStore{db: db}
}

// SaveMailConfig upserts the singleton row. The table carries a constant
// primary key so there can never be more than one configuration.
func (s *MailConfigStore) SaveMailConfig(ctx context.Context, cfg *models.MailConfig) (*models.MailConfig, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO mail_configurations (id, host, port, username, password, use_tls, use_ssl, from_address)
		 VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET host = EXCLUDED.host,
		     port = EXCLUDED.port,
		     username = EXCLUDED.username,
		     password = EXCLUDED.password,
		     use_tls = EXCLUDED.use_tls,
		     use_ssl = EXCLUDED.use_ssl,
		     from_address = EXCLUDED.from_address,
		     updated_at = NOW()
		 RETURNING id, updated_at`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.UseTLS, cfg.UseSSL, cfg.FromAddress,
	).Scan(&cfg.ID, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *MailConfigStore) GetMailConfig(ctx context.Context) (*models.MailConfig, error) {
	cfg := &models.MailConfig{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, host, port, username, password, use_tls, use_ssl, from_address, updated_at
		 FROM mail_configurations WHERE id = 1`,
	).Scan(
		&cfg.ID, &cfg.Host, &cfg.Port, &cfg.Username, &cfg.Password,
		&cfg.UseTLS, &cfg.UseSSL, &cfg.FromAddress, &cfg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/kamala96/email-service/internal/models"
)

type SendRecordStore struct {
	db *sql.DB
}

func NewSendRecordStore(db *sql.DB) *SendRecordStore {
	return &SendRecordStore{db: db}
}

func (s *SendRecordStore) CreateSendRecord(ctx context.Context, record *models.SendRecord) (*models.SendRecord, error) {
	record.PublicID = uuid.New()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO send_records (public_id, client_id, subject, recipient, status, error_message, task_kind)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		record.PublicID, record.ClientID, record.Subject, record.Recipient,
		record.Status, record.ErrorMessage, record.TaskKind,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *SendRecordStore) ListSendRecords(ctx context.Context, query models.SendRecordQuery) ([]models.SendRecord, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, public_id, client_id, subject, recipient, status, error_message, task_kind, created_at
		 FROM send_records
		 WHERE client_id = $1
		   AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		query.ClientID, query.Status, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SendRecord
	for rows.Next() {
		var record models.SendRecord
		err := rows.Scan(
			&record.ID, &record.PublicID, &record.ClientID, &record.Subject,
			&record.Recipient, &record.Status, &record.ErrorMessage,
			&record.TaskKind, &record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kamala96/email-service/internal/models"
)

type IdentityStore interface {
	CreateIdentity(ctx context.Context, name string) (*models.Identity, error)
	GetIdentityByName(ctx context.Context, name string) (*models.Identity, error)
	GetIdentityByID(ctx context.Context, id int64) (*models.Identity, error)
	GetIdentityByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Identity, error)
	RenameIdentity(ctx context.Context, id int64, name string) error
}

type ClientStore interface {
	CreateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	UpdateClient(ctx context.Context, client *models.Client) error
	GetClientByID(ctx context.Context, id int64) (*models.Client, error)
	GetClientByStaticIP(ctx context.Context, ip string) (*models.Client, error)
	GetClientByIdentityID(ctx context.Context, identityID int64) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
}

// SendRecordStore is append-only: records are never updated or deleted.
type SendRecordStore interface {
	CreateSendRecord(ctx context.Context, record *models.SendRecord) (*models.SendRecord, error)
	ListSendRecords(ctx context.Context, query models.SendRecordQuery) ([]models.SendRecord, error)
}

type MailConfigStore interface {
	SaveMailConfig(ctx context.Context, cfg *models.MailConfig) (*models.MailConfig, error)
	GetMailConfig(ctx context.Context) (*models.MailConfig, error)
}

type SendJobStore interface {
	EnqueueSendJob(ctx context.Context, jobType string, payload []byte, maxAttempts int) (*models.SendJob, error)
	ClaimNextSendJob(ctx context.Context) (*models.SendJob, error)
	MarkSendJobDone(ctx context.Context, jobID int64) error
	MarkSendJobRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error
	MarkSendJobFailed(ctx context.Context, jobID int64, lastError string) error
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RecordStatus is the delivery outcome captured on a SendRecord.
type RecordStatus string

const (
	StatusSent   RecordStatus = "Sent"
	StatusFailed RecordStatus = "Failed"
)

// TaskKind distinguishes records written by the single-send path from those
// written by the bulk path.
type TaskKind string

const (
	TaskSingle TaskKind = "single"
	TaskBulk   TaskKind = "bulk"
)

// Identity is the authentication principal bound one-to-one to a Client.
// Its name is derived deterministically from the client's static IP.
type Identity struct {
	ID        int64
	PublicID  uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Client is a registered caller identified by its static IP address.
// APIKey, Token and TokenExpiry are legacy columns kept for compatibility
// with older deployments; the dispatch path never reads them.
type Client struct {
	ID          int64
	PublicID    uuid.UUID
	SystemName  string
	StaticIP    string
	IdentityID  int64
	APIKey      string
	Token       string
	TokenExpiry *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SendRecord is an immutable audit row for one send outcome. Individual bulk
// sends produce one row per recipient; a collective send produces a single
// row whose Recipient is the comma-joined address list.
type SendRecord struct {
	ID           int64
	PublicID     uuid.UUID
	ClientID     int64
	Subject      string
	Recipient    string
	Status       RecordStatus
	ErrorMessage string
	TaskKind     TaskKind
	CreatedAt    time.Time
}

// SendRecordQuery filters the audit listing.
type SendRecordQuery struct {
	ClientID int64
	Status   string
	Limit    int
	Offset   int
}

// MailConfig is the durable singleton SMTP configuration. UseTLS and UseSSL
// are mutually exclusive; Port is derived at save time (465 for SSL, 587 for
// TLS, 25 otherwise), never set by callers.
type MailConfig struct {
	ID          int64
	Host        string
	Port        int
	Username    string
	Password    string
	UseTLS      bool
	UseSSL      bool
	FromAddress string
	UpdatedAt   time.Time
}

// Attachment crosses the submission boundary as (filename, bytes, content-type).
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// SendJob is one queued unit of work for the dispatch worker.
type SendJob struct {
	ID          int64
	JobType     string
	Payload     json.RawMessage
	Status      string
	Attempts    int
	MaxAttempts int
	AvailableAt time.Time
	LockedAt    *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DoneAt      *time.Time
}

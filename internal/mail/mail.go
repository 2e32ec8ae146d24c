package mail

import (
	"context"
	"errors"

	"github.com/kamala96/email-service/internal/models"
)

// ErrNotConfigured is returned when no mail configuration has been saved yet.
// Send paths treat it like any other transient dispatch failure.
var ErrNotConfigured = errors.New("mail configuration not set")

// Config is the active outbound-mail configuration. It is the only contract
// between the dispatcher and the SMTP collaborator.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	UseTLS      bool
	UseSSL      bool
	FromAddress string
}

// Message is one outbound email. TextBody and HTMLBody may both be set; at
// least one must be.
type Message struct {
	To          []string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []models.Attachment
}

// Sender delivers a message or fails. Implementations carry no retry logic;
// retries belong to the dispatch layer.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ConfigSource yields the currently active Config. The mailconfig service
// implements this with an atomically swapped pointer.
type ConfigSource interface {
	Active() (*Config, error)
}

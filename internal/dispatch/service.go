package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kamala96/email-service/internal/models"
	"github.com/kamala96/email-service/internal/store"
)

var (
	// ErrBodyRequired means neither a text nor an HTML body was provided.
	ErrBodyRequired = errors.New("either a text or an html body is required")
	// ErrRecipientsRequired means the recipient list was empty.
	ErrRecipientsRequired = errors.New("at least one recipient is required")
)

// SingleRequest is a validated single-email submission.
type SingleRequest struct {
	Subject     string
	TextBody    string
	HTMLBody    string
	Recipient   string
	Attachments []models.Attachment
}

// BulkRequest is a validated bulk-email submission.
type BulkRequest struct {
	Subject     string
	TextBody    string
	HTMLBody    string
	Recipients  []string
	Attachments []models.Attachment
	Collective  bool
}

// Service accepts validated send requests and enqueues them on the job
// queue. The accept is synchronous; execution happens on the worker.
type Service struct {
	jobs       store.SendJobStore
	maxRetries int
}

func NewService(jobs store.SendJobStore, maxRetries int) *Service {
	return &Service{jobs: jobs, maxRetries: maxRetries}
}

// EnqueueSingle validates and queues a single-email send for the client.
func (s *Service) EnqueueSingle(ctx context.Context, client *models.Client, req SingleRequest) error {
	if req.TextBody == "" && req.HTMLBody == "" {
		return ErrBodyRequired
	}
	if req.Recipient == "" {
		return ErrRecipientsRequired
	}

	payload, err := json.Marshal(SingleJobPayload{
		ClientID:    client.ID,
		Subject:     req.Subject,
		TextBody:    req.TextBody,
		HTMLBody:    req.HTMLBody,
		Recipient:   req.Recipient,
		Attachments: req.Attachments,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job, err := s.jobs.EnqueueSendJob(ctx, JobTypeSingle, payload, 1+s.maxRetries)
	if err != nil {
		return fmt.Errorf("failed to enqueue send job: %w", err)
	}

	slog.InfoContext(ctx, "single send accepted",
		"job_id", job.ID,
		"client_id", client.ID,
		"subject", req.Subject,
	)
	return nil
}

// EnqueueBulk validates and queues a bulk send for the client.
func (s *Service) EnqueueBulk(ctx context.Context, client *models.Client, req BulkRequest) error {
	if req.TextBody == "" && req.HTMLBody == "" {
		return ErrBodyRequired
	}
	if len(req.Recipients) == 0 {
		return ErrRecipientsRequired
	}

	payload, err := json.Marshal(BulkJobPayload{
		ClientID:    client.ID,
		Subject:     req.Subject,
		TextBody:    req.TextBody,
		HTMLBody:    req.HTMLBody,
		Recipients:  req.Recipients,
		Attachments: req.Attachments,
		Collective:  req.Collective,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job, err := s.jobs.EnqueueSendJob(ctx, JobTypeBulk, payload, 1+s.maxRetries)
	if err != nil {
		return fmt.Errorf("failed to enqueue send job: %w", err)
	}

	slog.InfoContext(ctx, "bulk send accepted",
		"job_id", job.ID,
		"client_id", client.ID,
		"subject", req.Subject,
		"recipients", len(req.Recipients),
		"collective", req.Collective,
	)
	return nil
}

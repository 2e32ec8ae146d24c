package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kamala96/email-service/internal/mail"
	"github.com/kamala96/email-service/internal/models"
	"github.com/kamala96/email-service/internal/store"
)

// errInvalidPayload marks a job that can never succeed; the worker fails it
// without burning retries.
var errInvalidPayload = errors.New("invalid job payload")

// IsPermanent reports whether a job error should skip the retry schedule.
func IsPermanent(err error) bool {
	return errors.Is(err, errInvalidPayload)
}

// ClientResolver is the slice of the client registry the executor needs.
type ClientResolver interface {
	GetByID(ctx context.Context, id int64) (*models.Client, error)
}

// ChunkResult is the terminal outcome of one chunk: its index in the
// partition and the error it exhausted on, nil on success.
type ChunkResult struct {
	Index int
	Err   error
}

// Executor runs queued send jobs: the single-send path, and the bulk
// orchestration engine with its chunk fan-out and fan-in.
type Executor struct {
	records   store.SendRecordStore
	clients   ClientResolver
	sender    mail.Sender
	chunkSize int
	policy    RetryPolicy

	// OnBulkComplete is the fan-in finalizer. It runs exactly once per
	// individual bulk job, after every chunk has reached a terminal state.
	OnBulkComplete func(client *models.Client, subject string, results []ChunkResult)
}

func NewExecutor(records store.SendRecordStore, clients ClientResolver, sender mail.Sender, chunkSize int, policy RetryPolicy) *Executor {
	e := &Executor{
		records:   records,
		clients:   clients,
		sender:    sender,
		chunkSize: chunkSize,
		policy:    policy,
	}
	e.OnBulkComplete = func(client *models.Client, subject string, results []ChunkResult) {
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		slog.Info("bulk send finished",
			"client_id", client.ID,
			"subject", subject,
			"chunks", len(results),
			"failed_chunks", failed,
		)
	}
	return e
}

// ExecuteJob runs one claimed job. A non-nil return means the job failed and
// is subject to the worker's retry schedule.
func (e *Executor) ExecuteJob(ctx context.Context, jobType string, payload json.RawMessage) error {
	switch jobType {
	case JobTypeSingle:
		return e.executeSingle(ctx, payload)
	case JobTypeBulk:
		return e.executeBulk(ctx, payload)
	default:
		return fmt.Errorf("%w: unknown job type %q", errInvalidPayload, jobType)
	}
}

func (e *Executor) executeSingle(ctx context.Context, payload json.RawMessage) error {
	var job SingleJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}

	client, err := e.clients.GetByID(ctx, job.ClientID)
	if err != nil {
		return fmt.Errorf("failed to resolve client %d: %w", job.ClientID, err)
	}

	err = e.sender.Send(ctx, mail.Message{
		To:          []string{job.Recipient},
		Subject:     job.Subject,
		TextBody:    job.TextBody,
		HTMLBody:    job.HTMLBody,
		Attachments: job.Attachments,
	})
	if err != nil {
		return fmt.Errorf("failed to send to %s: %w", job.Recipient, err)
	}

	e.writeRecord(ctx, client.ID, job.Subject, job.Recipient, models.StatusSent, "", models.TaskSingle)
	return nil
}

func (e *Executor) executeBulk(ctx context.Context, payload json.RawMessage) error {
	var job BulkJobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}

	client, err := e.clients.GetByID(ctx, job.ClientID)
	if err != nil {
		return fmt.Errorf("failed to resolve client %d: %w", job.ClientID, err)
	}

	if job.Collective {
		return e.sendCollective(ctx, client, job)
	}

	e.fanOut(ctx, client, job)
	return nil
}

// sendCollective addresses all recipients in one transmission and writes a
// single record. A failure here fails the whole job, so the worker's retry
// schedule applies to the entire operation.
func (e *Executor) sendCollective(ctx context.Context, client *models.Client, job BulkJobPayload) error {
	err := e.sender.Send(ctx, mail.Message{
		To:          job.Recipients,
		Subject:     job.Subject,
		TextBody:    job.TextBody,
		HTMLBody:    job.HTMLBody,
		Attachments: job.Attachments,
	})
	if err != nil {
		return fmt.Errorf("collective send failed: %w", err)
	}

	e.writeRecord(ctx, client.ID, job.Subject, strings.Join(job.Recipients, ", "), models.StatusSent, "", models.TaskBulk)
	return nil
}

// fanOut runs one goroutine per chunk and joins on all of them before
// invoking the finalizer. Chunks share nothing but the record store, which
// only ever sees independent appends.
func (e *Executor) fanOut(ctx context.Context, client *models.Client, job BulkJobPayload) {
	chunks := Chunk(job.Recipients, e.chunkSize)
	results := make([]ChunkResult, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(index int, chunk []string) {
			defer wg.Done()
			// Retry attempts resume after the last delivered recipient, so
			// nobody is re-sent and nobody gets a second Sent record.
			delivered := 0
			err := e.policy.run(ctx, func() error {
				n, err := e.sendChunk(ctx, client, job, chunk[delivered:])
				delivered += n
				return err
			})
			if err != nil {
				e.writeChunkFailure(ctx, client, job, chunk[delivered:], err)
			}
			results[index] = ChunkResult{Index: index, Err: err}
		}(i, chunk)
	}
	wg.Wait()

	e.OnBulkComplete(client, job.Subject, results)
}

// sendChunk delivers to each recipient in the chunk in order, recording a
// Sent row per success, and returns how many it delivered. The first failure
// aborts the attempt: failure is tracked at chunk granularity, not per
// recipient.
func (e *Executor) sendChunk(ctx context.Context, client *models.Client, job BulkJobPayload, chunk []string) (int, error) {
	for i, recipient := range chunk {
		err := e.sender.Send(ctx, mail.Message{
			To:          []string{recipient},
			Subject:     job.Subject,
			TextBody:    job.TextBody,
			HTMLBody:    job.HTMLBody,
			Attachments: job.Attachments,
		})
		if err != nil {
			return i, fmt.Errorf("failed to send to %s: %w", recipient, err)
		}
		e.writeRecord(ctx, client.ID, job.Subject, recipient, models.StatusSent, "", models.TaskBulk)
	}
	return len(chunk), nil
}

// writeChunkFailure records the exhausted tail of a chunk: one Failed row per
// undelivered recipient, all sharing the same error message. Recipients
// delivered by earlier attempts keep their single Sent row.
func (e *Executor) writeChunkFailure(ctx context.Context, client *models.Client, job BulkJobPayload, chunk []string, chunkErr error) {
	slog.ErrorContext(ctx, "chunk exhausted retries",
		"client_id", client.ID,
		"subject", job.Subject,
		"chunk_size", len(chunk),
		"error", chunkErr,
	)
	for _, recipient := range chunk {
		e.writeRecord(ctx, client.ID, job.Subject, recipient, models.StatusFailed, chunkErr.Error(), models.TaskBulk)
	}
}

// HandleJobFailure runs when a job exhausts the worker's retry schedule.
// It writes the terminal Failed records the job itself never got to write.
func (e *Executor) HandleJobFailure(ctx context.Context, jobType string, payload json.RawMessage, jobErr error) {
	switch jobType {
	case JobTypeSingle:
		var job SingleJobPayload
		if err := json.Unmarshal(payload, &job); err != nil {
			slog.ErrorContext(ctx, "cannot record failure for malformed single job", "error", err)
			return
		}
		e.writeRecord(ctx, job.ClientID, job.Subject, job.Recipient, models.StatusFailed, jobErr.Error(), models.TaskSingle)

	case JobTypeBulk:
		var job BulkJobPayload
		if err := json.Unmarshal(payload, &job); err != nil {
			slog.ErrorContext(ctx, "cannot record failure for malformed bulk job", "error", err)
			return
		}
		if job.Collective {
			e.writeRecord(ctx, job.ClientID, job.Subject, strings.Join(job.Recipients, ", "), models.StatusFailed, jobErr.Error(), models.TaskBulk)
			return
		}
		for _, recipient := range job.Recipients {
			e.writeRecord(ctx, job.ClientID, job.Subject, recipient, models.StatusFailed, jobErr.Error(), models.TaskBulk)
		}
	}
}

func (e *Executor) writeRecord(ctx context.Context, clientID int64, subject, recipient string, status models.RecordStatus, errMsg string, kind models.TaskKind) {
	_, err := e.records.CreateSendRecord(ctx, &models.SendRecord{
		ClientID:     clientID,
		Subject:      subject,
		Recipient:    recipient,
		Status:       status,
		ErrorMessage: errMsg,
		TaskKind:     kind,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to write send record",
			"client_id", clientID,
			"recipient", recipient,
			"status", status,
			"error", err,
		)
	}
}

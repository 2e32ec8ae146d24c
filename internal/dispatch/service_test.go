package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestEnqueueSingle(t *testing.T) {
	jobs := &mockJobStore{}
	svc := NewService(jobs, 3)

	err := svc.EnqueueSingle(context.Background(), testClient(), SingleRequest{
		Subject:   "Welcome",
		TextBody:  "hello",
		Recipient: "a@example.com",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if len(jobs.enqueued) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs.enqueued))
	}
	job := jobs.enqueued[0]
	if job.JobType != JobTypeSingle {
		t.Fatalf("expected %q, got %q", JobTypeSingle, job.JobType)
	}
	if job.MaxAttempts != 4 {
		t.Fatalf("expected 4 attempts for 3 retries, got %d", job.MaxAttempts)
	}

	var payload SingleJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ClientID != 7 || payload.Recipient != "a@example.com" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestEnqueueSingleValidation(t *testing.T) {
	jobs := &mockJobStore{}
	svc := NewService(jobs, 3)
	client := testClient()

	err := svc.EnqueueSingle(context.Background(), client, SingleRequest{Recipient: "a@example.com"})
	if !errors.Is(err, ErrBodyRequired) {
		t.Fatalf("expected ErrBodyRequired, got %v", err)
	}

	err = svc.EnqueueSingle(context.Background(), client, SingleRequest{TextBody: "hello"})
	if !errors.Is(err, ErrRecipientsRequired) {
		t.Fatalf("expected ErrRecipientsRequired, got %v", err)
	}

	if len(jobs.enqueued) != 0 {
		t.Fatalf("rejected submissions must enqueue nothing, got %d jobs", len(jobs.enqueued))
	}
}

func TestEnqueueBulk(t *testing.T) {
	jobs := &mockJobStore{}
	svc := NewService(jobs, 3)

	err := svc.EnqueueBulk(context.Background(), testClient(), BulkRequest{
		Subject:    "Digest",
		HTMLBody:   "<p>hello</p>",
		Recipients: []string{"a@x.com", "b@x.com"},
		Collective: true,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if len(jobs.enqueued) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs.enqueued))
	}
	var payload BulkJobPayload
	if err := json.Unmarshal(jobs.enqueued[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Recipients) != 2 || !payload.Collective {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestEnqueueBulkValidation(t *testing.T) {
	jobs := &mockJobStore{}
	svc := NewService(jobs, 3)
	client := testClient()

	err := svc.EnqueueBulk(context.Background(), client, BulkRequest{Recipients: []string{"a@x.com"}})
	if !errors.Is(err, ErrBodyRequired) {
		t.Fatalf("expected ErrBodyRequired, got %v", err)
	}

	err = svc.EnqueueBulk(context.Background(), client, BulkRequest{TextBody: "hello"})
	if !errors.Is(err, ErrRecipientsRequired) {
		t.Fatalf("expected ErrRecipientsRequired, got %v", err)
	}

	if len(jobs.enqueued) != 0 {
		t.Fatalf("rejected submissions must enqueue nothing, got %d jobs", len(jobs.enqueued))
	}
}

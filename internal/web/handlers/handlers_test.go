package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamala96/email-service/internal/models"
	"github.com/kamala96/email-service/internal/web/middleware"
)

// In-memory store doubles shared by the handler tests.

type mockIdentityStore struct {
	identities []*models.Identity
}

func (m *mockIdentityStore) CreateIdentity(ctx context.Context, name string) (*models.Identity, error) {
	identity := &models.Identity{ID: int64(len(m.identities) + 1), PublicID: uuid.New(), Name: name}
	m.identities = append(m.identities, identity)
	return identity, nil
}

func (m *mockIdentityStore) GetIdentityByName(ctx context.Context, name string) (*models.Identity, error) {
	for _, identity := range m.identities {
		if identity.Name == name {
			return identity, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdentityStore) GetIdentityByID(ctx context.Context, id int64) (*models.Identity, error) {
	for _, identity := range m.identities {
		if identity.ID == id {
			return identity, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdentityStore) GetIdentityByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Identity, error) {
	for _, identity := range m.identities {
		if identity.PublicID == publicID {
			return identity, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockIdentityStore) RenameIdentity(ctx context.Context, id int64, name string) error {
	for _, identity := range m.identities {
		if identity.ID == id {
			identity.Name = name
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockClientStore struct {
	clients []*models.Client
}

func (m *mockClientStore) CreateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	saved := *client
	saved.ID = int64(len(m.clients) + 1)
	saved.PublicID = uuid.New()
	m.clients = append(m.clients, &saved)
	return &saved, nil
}

func (m *mockClientStore) UpdateClient(ctx context.Context, client *models.Client) error {
	for i, existing := range m.clients {
		if existing.ID == client.ID {
			copied := *client
			m.clients[i] = &copied
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockClientStore) GetClientByID(ctx context.Context, id int64) (*models.Client, error) {
	for _, client := range m.clients {
		if client.ID == id {
			return client, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClientStore) GetClientByStaticIP(ctx context.Context, ip string) (*models.Client, error) {
	for _, client := range m.clients {
		if client.StaticIP == ip {
			return client, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClientStore) GetClientByIdentityID(ctx context.Context, identityID int64) (*models.Client, error) {
	for _, client := range m.clients {
		if client.IdentityID == identityID {
			return client, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClientStore) ListClients(ctx context.Context) ([]models.Client, error) {
	out := make([]models.Client, 0, len(m.clients))
	for _, client := range m.clients {
		out = append(out, *client)
	}
	return out, nil
}

type mockJobStore struct {
	jobs []*models.SendJob
}

func (m *mockJobStore) EnqueueSendJob(ctx context.Context, jobType string, payload []byte, maxAttempts int) (*models.SendJob, error) {
	job := &models.SendJob{ID: int64(len(m.jobs) + 1), JobType: jobType, Payload: payload, MaxAttempts: maxAttempts}
	m.jobs = append(m.jobs, job)
	return job, nil
}

func (m *mockJobStore) ClaimNextSendJob(ctx context.Context) (*models.SendJob, error) {
	return nil, nil
}

func (m *mockJobStore) MarkSendJobDone(ctx context.Context, jobID int64) error { return nil }

func (m *mockJobStore) MarkSendJobRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error {
	return nil
}

func (m *mockJobStore) MarkSendJobFailed(ctx context.Context, jobID int64, lastError string) error {
	return nil
}

type mockRecordStore struct {
	records []models.SendRecord
	lastQ   models.SendRecordQuery
}

func (m *mockRecordStore) CreateSendRecord(ctx context.Context, record *models.SendRecord) (*models.SendRecord, error) {
	saved := *record
	saved.ID = int64(len(m.records) + 1)
	m.records = append(m.records, saved)
	return &saved, nil
}

func (m *mockRecordStore) ListSendRecords(ctx context.Context, query models.SendRecordQuery) ([]models.SendRecord, error) {
	m.lastQ = query
	out := make([]models.SendRecord, 0, len(m.records))
	for _, record := range m.records {
		if record.ClientID != query.ClientID {
			continue
		}
		if query.Status != "" && string(record.Status) != query.Status {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// withClient plants an authenticated client in the request context, the way
// the auth middleware does after validating a token.
func withClient(r *http.Request, client *models.Client) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ClientContextKey, client)
	return r.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

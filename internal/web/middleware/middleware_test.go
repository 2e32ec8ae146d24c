package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kamala96/email-service/internal/auth"
	"github.com/kamala96/email-service/internal/clients"
	"github.com/kamala96/email-service/internal/models"
	"github.com/kamala96/email-service/internal/ratelimit"
)

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
	return nil
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
	return nil, nil
}

func TestRequireClient(t *testing.T) {
	registry := clients.NewService(&mockClientStore{}, &mockIdentityStore{})
	tokens := auth.NewService("test-signing-key", time.Hour, 24*time.Hour)

	client, err := registry.Register(context.Background(), "billing", "203.0.113.9")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	identity, err := registry.Identity(context.Background(), client)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	pair, err := tokens.IssueTokenPair(identity)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotClient *models.Client
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClient = ClientFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireClient(tokens, registry)(next)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Access)
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotClient == nil || gotClient.ID != client.ID {
			t.Fatalf("expected client %d in context, got %+v", client.ID, gotClient)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Refresh)
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for refresh token on access route, got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRequireAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/clients", nil)
		req.Header.Set("X-Admin-Key", "sesame")
		rec := httptest.NewRecorder()

		RequireAdminKey(string(hash))(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/clients", nil)
		req.Header.Set("X-Admin-Key", "open sesame")
		rec := httptest.NewRecorder()

		RequireAdminKey(string(hash))(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("unconfigured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/clients", nil)
		req.Header.Set("X-Admin-Key", "sesame")
		rec := httptest.NewRecorder()

		RequireAdminKey("")(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, 1)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := RateLimit(limiter)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/token", nil)
	req.RemoteAddr = "203.0.113.9:51000"

	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request must pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request must be limited, got %d", rec.Code)
	}
}

func TestCallerIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"direct", "203.0.113.9:51000", "", "203.0.113.9"},
		{"forwarded", "10.0.0.1:443", "198.51.100.7", "198.51.100.7"},
		{"forwarded chain", "10.0.0.1:443", "198.51.100.7, 10.0.0.1", "198.51.100.7"},
		{"forwarded with spaces", "10.0.0.1:443", "  198.51.100.7 , 10.0.0.1", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := CallerIP(req); got != tt.want {
				t.Errorf("CallerIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

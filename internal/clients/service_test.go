package clients

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamala96/email-service/internal/models"
)

type mockIdentityStore struct {
	identities []*models.Identity
	renames    int
	creates    int
}

func (m *mockIdentityStore) CreateIdentity(ctx context.Context, name string) (*models.Identity, error) {
	m.creates++
	identity := &models.Identity{
		ID:        int64(len(m.identities) + 1),
		PublicID:  uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
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
	m.renames++
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
	saved.CreatedAt = time.Now().UTC()
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

func newTestService() (*Service, *mockClientStore, *mockIdentityStore) {
	clientStore := &mockClientStore{}
	identityStore := &mockIdentityStore{}
	return NewService(clientStore, identityStore), clientStore, identityStore
}

func TestIdentityNameForIP(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"192.168.10.20", "client_192_168_10_20"},
		{"10.0.0.1", "client_10_0_0_1"},
		{"  10.0.0.1  ", "client_10_0_0_1"},
		{"2001:db8::1", "client_2001_db8__1"},
	}
	for _, tt := range tests {
		if got := IdentityNameForIP(tt.ip); got != tt.want {
			t.Errorf("IdentityNameForIP(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}
}

func TestRegister(t *testing.T) {
	svc, clientStore, identityStore := newTestService()

	client, err := svc.Register(context.Background(), "billing", "192.168.10.20")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if client.ID == 0 || client.IdentityID == 0 {
		t.Fatalf("expected persisted client with identity, got %+v", client)
	}

	identity, err := identityStore.GetIdentityByID(context.Background(), client.IdentityID)
	if err != nil {
		t.Fatalf("identity lookup: %v", err)
	}
	if identity.Name != "client_192_168_10_20" {
		t.Fatalf("expected derived identity name, got %q", identity.Name)
	}
	if len(clientStore.clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(clientStore.clients))
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, clientStore, _ := newTestService()

	if _, err := svc.Register(context.Background(), "", "192.168.10.20"); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "billing", "not-an-ip"); !errors.Is(err, ErrInvalidIP) {
		t.Fatalf("expected ErrInvalidIP, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "billing", "999.1.1.1"); !errors.Is(err, ErrInvalidIP) {
		t.Fatalf("expected ErrInvalidIP, got %v", err)
	}
	if len(clientStore.clients) != 0 {
		t.Fatal("rejected registrations must not persist clients")
	}
}

func TestRegisterReusesExistingIdentity(t *testing.T) {
	svc, _, identityStore := newTestService()

	first, err := svc.Register(context.Background(), "billing", "192.168.10.20")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := svc.Register(context.Background(), "billing-v2", "192.168.10.20")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if first.IdentityID != second.IdentityID {
		t.Fatal("same IP must bind to the same identity")
	}
	if identityStore.creates != 1 {
		t.Fatalf("expected 1 identity, created %d", identityStore.creates)
	}
}

func TestResolve(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Resolve(context.Background(), "10.1.1.1"); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}

	registered, err := svc.Register(context.Background(), "billing", "10.1.1.1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), "10.1.1.1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != registered.ID {
		t.Fatalf("expected client %d, got %d", registered.ID, resolved.ID)
	}
}

func TestUpdateKeepsIdentityWhenIPUnchanged(t *testing.T) {
	svc, _, identityStore := newTestService()

	client, err := svc.Register(context.Background(), "billing", "192.168.10.20")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	client.SystemName = "billing-renamed"
	if err := svc.Update(context.Background(), client); err != nil {
		t.Fatalf("update: %v", err)
	}

	if identityStore.creates != 1 {
		t.Fatalf("update with unchanged IP must not create an identity, created %d", identityStore.creates)
	}
	if identityStore.renames != 0 {
		t.Fatalf("update with unchanged IP must not rename, renamed %d", identityStore.renames)
	}
}

func TestUpdateRenamesIdentityOnIPChange(t *testing.T) {
	svc, _, identityStore := newTestService()

	client, err := svc.Register(context.Background(), "billing", "192.168.10.20")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	identityID := client.IdentityID

	client.StaticIP = "10.0.0.5"
	if err := svc.Update(context.Background(), client); err != nil {
		t.Fatalf("update: %v", err)
	}

	if client.IdentityID != identityID {
		t.Fatal("IP change must rename the bound identity, not rebind")
	}
	identity, err := identityStore.GetIdentityByID(context.Background(), identityID)
	if err != nil {
		t.Fatalf("identity lookup: %v", err)
	}
	if identity.Name != "client_10_0_0_5" {
		t.Fatalf("expected renamed identity, got %q", identity.Name)
	}
	if identityStore.creates != 1 {
		t.Fatalf("expected no new identity, created %d", identityStore.creates)
	}
}

func TestResolveByIdentityPublicID(t *testing.T) {
	svc, _, identityStore := newTestService()

	client, err := svc.Register(context.Background(), "billing", "192.168.10.20")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	identity, err := identityStore.GetIdentityByID(context.Background(), client.IdentityID)
	if err != nil {
		t.Fatalf("identity lookup: %v", err)
	}

	resolved, err := svc.ResolveByIdentityPublicID(context.Background(), identity.PublicID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != client.ID {
		t.Fatalf("expected client %d, got %d", client.ID, resolved.ID)
	}

	if _, err := svc.ResolveByIdentityPublicID(context.Background(), uuid.New()); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound for unknown identity, got %v", err)
	}
}

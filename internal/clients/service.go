package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/kamala96/email-service/internal/models"
	"github.com/kamala96/email-service/internal/store"
)

var (
	// ErrClientNotFound means no registered client matches the given lookup.
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidIP      = errors.New("invalid static IP address")
	ErrNameRequired   = errors.New("system name is required")
)

// identityPrefix tags identity names derived from client IPs.
const identityPrefix = "client_"

// Service is the client identity registry: it maps static IPs to registered
// clients and keeps each client's identity principal bound and in sync.
type Service struct {
	clients    store.ClientStore
	identities store.IdentityStore
}

func NewService(clients store.ClientStore, identities store.IdentityStore) *Service {
	return &Service{clients: clients, identities: identities}
}

// IdentityNameForIP derives the deterministic identity name for a static IP:
// dots and colons become underscores under a fixed prefix, so repeated
// resolution of the same IP always lands on the same identity.
func IdentityNameForIP(ip string) string {
	normalized := strings.NewReplacer(".", "_", ":", "_").Replace(strings.TrimSpace(ip))
	return identityPrefix + normalized
}

// Resolve looks up the client registered for the given static IP.
func (s *Service) Resolve(ctx context.Context, ip string) (*models.Client, error) {
	client, err := s.clients.GetClientByStaticIP(ctx, strings.TrimSpace(ip))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to resolve client by IP: %w", err)
	}
	return client, nil
}

// GetByID fetches a client by primary key.
func (s *Service) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	client, err := s.clients.GetClientByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// GetByIdentityID fetches the client bound to an identity principal.
func (s *Service) GetByIdentityID(ctx context.Context, identityID int64) (*models.Client, error) {
	client, err := s.clients.GetClientByIdentityID(ctx, identityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client by identity: %w", err)
	}
	return client, nil
}

// ResolveByIdentityPublicID maps a validated token subject back to the
// registered client, going through the identity row.
func (s *Service) ResolveByIdentityPublicID(ctx context.Context, publicID uuid.UUID) (*models.Client, error) {
	identity, err := s.identities.GetIdentityByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	return s.GetByIdentityID(ctx, identity.ID)
}

// Identity fetches a client's bound identity.
func (s *Service) Identity(ctx context.Context, client *models.Client) (*models.Identity, error) {
	identity, err := s.identities.GetIdentityByID(ctx, client.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return identity, nil
}

// IdentityByPublicID fetches an identity by its stable public ID.
func (s *Service) IdentityByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Identity, error) {
	identity, err := s.identities.GetIdentityByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	return identity, nil
}

// List returns all registered clients.
func (s *Service) List(ctx context.Context) ([]models.Client, error) {
	return s.clients.ListClients(ctx)
}

// Register creates a new client for the given system name and static IP,
// binding it to the identity derived from the IP. An identity with the
// derived name is reused when it already exists, so registering the same IP
// twice never creates a duplicate principal.
func (s *Service) Register(ctx context.Context, systemName, staticIP string) (*models.Client, error) {
	systemName = strings.TrimSpace(systemName)
	staticIP = strings.TrimSpace(staticIP)
	if systemName == "" {
		return nil, ErrNameRequired
	}
	if net.ParseIP(staticIP) == nil {
		return nil, ErrInvalidIP
	}

	identity, err := s.ensureIdentity(ctx, staticIP)
	if err != nil {
		return nil, err
	}

	client, err := s.clients.CreateClient(ctx, &models.Client{
		SystemName: systemName,
		StaticIP:   staticIP,
		IdentityID: identity.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	slog.InfoContext(ctx, "client registered",
		"system_name", client.SystemName,
		"static_ip", client.StaticIP,
		"identity", identity.Name,
	)
	return client, nil
}

// Update persists changes to an existing client. When the static IP changed,
// the bound identity is renamed to the new derived name — but only if the
// derived name actually differs from the identity's current name.
func (s *Service) Update(ctx context.Context, client *models.Client) error {
	if strings.TrimSpace(client.SystemName) == "" {
		return ErrNameRequired
	}
	if net.ParseIP(strings.TrimSpace(client.StaticIP)) == nil {
		return ErrInvalidIP
	}
	client.StaticIP = strings.TrimSpace(client.StaticIP)

	if client.IdentityID == 0 {
		identity, err := s.ensureIdentity(ctx, client.StaticIP)
		if err != nil {
			return err
		}
		client.IdentityID = identity.ID
	}

	if err := s.clients.UpdateClient(ctx, client); err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}

	identity, err := s.identities.GetIdentityByID(ctx, client.IdentityID)
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}

	wantName := IdentityNameForIP(client.StaticIP)
	if identity.Name != wantName {
		if err := s.identities.RenameIdentity(ctx, identity.ID, wantName); err != nil {
			return fmt.Errorf("failed to rename identity: %w", err)
		}
		slog.InfoContext(ctx, "identity renamed after IP change",
			"old_name", identity.Name,
			"new_name", wantName,
		)
	}
	return nil
}

// ensureIdentity returns the identity with the derived name for the IP,
// creating it when absent.
func (s *Service) ensureIdentity(ctx context.Context, staticIP string) (*models.Identity, error) {
	name := IdentityNameForIP(staticIP)

	identity, err := s.identities.GetIdentityByName(ctx, name)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	identity, err = s.identities.CreateIdentity(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	return identity, nil
}

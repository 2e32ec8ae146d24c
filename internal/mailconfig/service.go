package mailconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/kamala96/email-service/internal/mail"
	"github.com/kamala96/email-service/internal/models"
	"github.com/kamala96/email-service/internal/store"
)

var (
	// ErrTLSAndSSLExclusive rejects configurations that enable both modes.
	ErrTLSAndSSLExclusive = errors.New("use_tls and use_ssl are mutually exclusive")
	ErrHostRequired       = errors.New("host is required")
	ErrFromRequired       = errors.New("from_address is required")
)

// Service owns the singleton mail configuration. Every successful save
// replaces the active sending configuration wholesale; readers always observe
// either the old or the new configuration, never a mix.
type Service struct {
	configs store.MailConfigStore
	active  atomic.Pointer[mail.Config]
}

func NewService(configs store.MailConfigStore) *Service {
	return &Service{configs: configs}
}

// LoadActive primes the active configuration from the database. A missing
// row is not an error; sends simply fail until a configuration is saved.
func (s *Service) LoadActive(ctx context.Context) error {
	cfg, err := s.configs.GetMailConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mail configuration: %w", err)
	}
	if cfg == nil {
		return nil
	}
	s.active.Store(toMailConfig(cfg))
	return nil
}

// Save validates, derives the port, persists the singleton and swaps the
// active configuration. On validation failure nothing changes.
func (s *Service) Save(ctx context.Context, cfg *models.MailConfig) (*models.MailConfig, error) {
	if cfg.UseTLS && cfg.UseSSL {
		return nil, ErrTLSAndSSLExclusive
	}
	if cfg.Host == "" {
		return nil, ErrHostRequired
	}
	if cfg.FromAddress == "" {
		return nil, ErrFromRequired
	}

	cfg.Port = DerivePort(cfg.UseTLS, cfg.UseSSL)

	saved, err := s.configs.SaveMailConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to save mail configuration: %w", err)
	}

	s.active.Store(toMailConfig(saved))
	slog.InfoContext(ctx, "mail configuration updated",
		"host", saved.Host,
		"port", saved.Port,
		"use_tls", saved.UseTLS,
		"use_ssl", saved.UseSSL,
	)
	return saved, nil
}

// Get returns the persisted configuration, or nil when none exists.
func (s *Service) Get(ctx context.Context) (*models.MailConfig, error) {
	return s.configs.GetMailConfig(ctx)
}

// Active implements mail.ConfigSource.
func (s *Service) Active() (*mail.Config, error) {
	cfg := s.active.Load()
	if cfg == nil {
		return nil, mail.ErrNotConfigured
	}
	return cfg, nil
}

// DerivePort maps the transport mode to the standard submission port:
// 465 for implicit TLS, 587 for STARTTLS, 25 otherwise.
func DerivePort(useTLS, useSSL bool) int {
	switch {
	case useSSL:
		return 465
	case useTLS:
		return 587
	default:
		return 25
	}
}

func toMailConfig(cfg *models.MailConfig) *mail.Config {
	return &mail.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		UseTLS:      cfg.UseTLS,
		UseSSL:      cfg.UseSSL,
		FromAddress: cfg.FromAddress,
	}
}

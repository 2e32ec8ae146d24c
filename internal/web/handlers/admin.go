package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kamala96/email-service/internal/clients"
	"github.com/kamala96/email-service/internal/mailconfig"
	"github.com/kamala96/email-service/internal/models"
)

// AdminHandler exposes the administrative JSON API: client registration and
// the singleton mail configuration.
type AdminHandler struct {
	registry *clients.Service
	mailcfg  *mailconfig.Service
}

func NewAdminHandler(registry *clients.Service, mailcfg *mailconfig.Service) *AdminHandler {
	return &AdminHandler{registry: registry, mailcfg: mailcfg}
}

type clientResponse struct {
	ID         uuid.UUID `json:"id"`
	SystemName string    `json:"system_name"`
	StaticIP   string    `json:"static_ip"`
	CreatedAt  time.Time `json:"created_at"`
}

func toClientResponse(client *models.Client) clientResponse {
	return clientResponse{
		ID:         client.PublicID,
		SystemName: client.SystemName,
		StaticIP:   client.StaticIP,
		CreatedAt:  client.CreatedAt,
	}
}

// HandleRegisterClient creates a client bound to the identity derived from
// its static IP.
func (h *AdminHandler) HandleRegisterClient(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SystemName string `json:"system_name"`
		StaticIP   string `json:"static_ip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, []string{"invalid JSON payload"})
		return
	}

	client, err := h.registry.Register(r.Context(), payload.SystemName, payload.StaticIP)
	if err != nil {
		switch {
		case errors.Is(err, clients.ErrNameRequired):
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"system_name": {"this field is required"}})
		case errors.Is(err, clients.ErrInvalidIP):
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"static_ip": {"enter a valid IP address"}})
		default:
			slog.Error("failed to register client", "error", err)
			writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"client":  toClientResponse(client),
	})
}

// HandleListClients returns all registered clients.
func (h *AdminHandler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	all, err := h.registry.List(r.Context())
	if err != nil {
		slog.Error("failed to list clients", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}

	out := make([]clientResponse, 0, len(all))
	for i := range all {
		out = append(out, toClientResponse(&all[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"clients": out,
	})
}

// HandleUpdateClient updates a client's system name and static IP. A changed
// IP renames the bound identity to the new derived name.
func (h *AdminHandler) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"id": {"must be an integer"}})
		return
	}

	client, err := h.registry.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			writeError(w, http.StatusNotFound, CodeInvalidRequest, []string{"client not found"})
			return
		}
		slog.Error("failed to load client", "client_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}

	var payload struct {
		SystemName string `json:"system_name"`
		StaticIP   string `json:"static_ip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, []string{"invalid JSON payload"})
		return
	}

	client.SystemName = payload.SystemName
	client.StaticIP = payload.StaticIP

	if err := h.registry.Update(r.Context(), client); err != nil {
		switch {
		case errors.Is(err, clients.ErrNameRequired):
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"system_name": {"this field is required"}})
		case errors.Is(err, clients.ErrInvalidIP):
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"static_ip": {"enter a valid IP address"}})
		default:
			slog.Error("failed to update client", "client_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"client":  toClientResponse(client),
	})
}

type mailConfigResponse struct {
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Username    string    `json:"username"`
	UseTLS      bool      `json:"use_tls"`
	UseSSL      bool      `json:"use_ssl"`
	FromAddress string    `json:"from_address"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HandleSaveMailConfig replaces the singleton mail configuration. The port
// is derived from the transport mode, never taken from the payload.
func (h *AdminHandler) HandleSaveMailConfig(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Host        string `json:"host"`
		Username    string `json:"username"`
		Password    string `json:"password"`
		UseTLS      bool   `json:"use_tls"`
		UseSSL      bool   `json:"use_ssl"`
		FromAddress string `json:"from_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, []string{"invalid JSON payload"})
		return
	}

	saved, err := h.mailcfg.Save(r.Context(), &models.MailConfig{
		Host:        payload.Host,
		Username:    payload.Username,
		Password:    payload.Password,
		UseTLS:      payload.UseTLS,
		UseSSL:      payload.UseSSL,
		FromAddress: payload.FromAddress,
	})
	if err != nil {
		switch {
		case errors.Is(err, mailconfig.ErrTLSAndSSLExclusive):
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"use_tls": {"use_tls and use_ssl are mutually exclusive"}})
		case errors.Is(err, mailconfig.ErrHostRequired):
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"host": {"this field is required"}})
		case errors.Is(err, mailconfig.ErrFromRequired):
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"from_address": {"this field is required"}})
		default:
			slog.Error("failed to save mail configuration", "error", err)
			writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config": mailConfigResponse{
			Host:        saved.Host,
			Port:        saved.Port,
			Username:    saved.Username,
			UseTLS:      saved.UseTLS,
			UseSSL:      saved.UseSSL,
			FromAddress: saved.FromAddress,
			UpdatedAt:   saved.UpdatedAt,
		},
	})
}

// HandleGetMailConfig returns the persisted configuration, password omitted.
func (h *AdminHandler) HandleGetMailConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.mailcfg.Get(r.Context())
	if err != nil {
		slog.Error("failed to load mail configuration", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, CodeInvalidRequest, []string{"mail configuration not set"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config": mailConfigResponse{
			Host:        cfg.Host,
			Port:        cfg.Port,
			Username:    cfg.Username,
			UseTLS:      cfg.UseTLS,
			UseSSL:      cfg.UseSSL,
			FromAddress: cfg.FromAddress,
			UpdatedAt:   cfg.UpdatedAt,
		},
	})
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kamala96/email-service/internal/auth"
	"github.com/kamala96/email-service/internal/clients"
	"github.com/kamala96/email-service/internal/web/middleware"
)

// TokenHandler issues and refreshes bearer tokens for registered clients.
type TokenHandler struct {
	registry *clients.Service
	tokens   *auth.Service
}

func NewTokenHandler(registry *clients.Service, tokens *auth.Service) *TokenHandler {
	return &TokenHandler{registry: registry, tokens: tokens}
}

// HandleObtainToken resolves the caller's apparent IP to a registered client
// and issues an access/refresh token pair scoped to its identity.
func (h *TokenHandler) HandleObtainToken(w http.ResponseWriter, r *http.Request) {
	ip := middleware.CallerIP(r)

	client, err := h.registry.Resolve(r.Context(), ip)
	if err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			writeError(w, http.StatusForbidden, CodeInvalidIP, nil)
			return
		}
		slog.Error("failed to resolve client for token", "ip", ip, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}

	identity, err := h.registry.Identity(r.Context(), client)
	if err != nil {
		slog.Error("failed to load identity for token", "client_id", client.ID, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}

	pair, err := h.tokens.IssueTokenPair(identity)
	if err != nil {
		slog.Error("failed to issue token pair", "identity", identity.Name, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"access":     pair.Access,
		"refresh":    pair.Refresh,
		"token_info": pair.AccessInfo,
	})
}

// HandleRefreshToken mints a new access token from a valid refresh token.
// The refresh token is non-rotating and stays valid until expiry.
func (h *TokenHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Refresh == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"refresh": {"this field is required"}})
		return
	}

	claims, err := h.tokens.ValidateRefresh(payload.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeInvalidRequest, []string{"invalid or expired refresh token"})
		return
	}

	identity, err := h.registry.IdentityByPublicID(r.Context(), claims.IdentityPublicID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeInvalidRequest, []string{"token does not resolve to an identity"})
		return
	}

	access, info, err := h.tokens.RefreshAccess(payload.Refresh, identity)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeInvalidRequest, []string{"invalid or expired refresh token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"access":     access,
		"token_info": info,
	})
}

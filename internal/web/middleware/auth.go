package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kamala96/email-service/internal/auth"
	"github.com/kamala96/email-service/internal/clients"
	"github.com/kamala96/email-service/internal/models"
)

// contextKey is an unexported type used for context keys in this package.
type contextKey string

// ClientContextKey is the context key used to store the authenticated client.
const ClientContextKey contextKey = "client"

// RequireClient returns middleware that enforces bearer-token authentication.
// It validates the access token and resolves the token's identity to exactly
// one registered client, storing it in the request context.
func RequireClient(authService *auth.Service, registry *clients.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := authService.ValidateAccess(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			client, err := registry.ResolveByIdentityPublicID(r.Context(), claims.IdentityPublicID)
			if err != nil {
				writeUnauthorized(w, "token does not resolve to a registered client")
				return
			}

			ctx := context.WithValue(r.Context(), ClientContextKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientFromContext extracts the authenticated client from the context.
// Returns nil if no client is present.
func ClientFromContext(ctx context.Context) *models.Client {
	client, _ := ctx.Value(ClientContextKey).(*models.Client)
	return client
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    1002,
		"message": message,
	})
}

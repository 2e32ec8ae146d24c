package middleware

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// RequireAdminKey returns middleware guarding the administrative routes.
// The caller presents the key in X-Admin-Key; it is checked against the
// bcrypt hash from configuration, so no plaintext secret lives in config.
func RequireAdminKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				writeAdminError(w, http.StatusServiceUnavailable, "admin api is not configured")
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
				writeAdminError(w, http.StatusForbidden, "invalid admin key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAdminError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    1002,
		"message": message,
	})
}

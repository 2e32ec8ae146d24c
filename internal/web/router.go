package web

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kamala96/email-service/internal/auth"
	"github.com/kamala96/email-service/internal/clients"
	"github.com/kamala96/email-service/internal/ratelimit"
	"github.com/kamala96/email-service/internal/web/handlers"
	"github.com/kamala96/email-service/internal/web/middleware"
)

// RouterDeps holds all dependencies needed to build the router.
type RouterDeps struct {
	TokenHandler   *handlers.TokenHandler
	SendHandler    *handlers.SendHandler
	RecordsHandler *handlers.RecordsHandler
	AdminHandler   *handlers.AdminHandler
	AuthService    *auth.Service
	Registry       *clients.Service
	Limiter        *ratelimit.Limiter
	AdminKeyHash   string
	DB             *sql.DB
}

// NewRouter wires all routes into a Chi router.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RealIP)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Email Dispatch Service"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.DB.PingContext(req.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// Token issuance (IP-gated, rate limited, no bearer auth yet)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Limiter))

		r.Post("/api/v1/token", deps.TokenHandler.HandleObtainToken)
		r.Post("/api/v1/token/refresh", deps.TokenHandler.HandleRefreshToken)
	})

	// Client-facing API (bearer auth + rate limit)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.Limiter))
		r.Use(middleware.RequireClient(deps.AuthService, deps.Registry))

		r.Post("/api/v1/emails/send", deps.SendHandler.HandleSendSingle)
		r.Post("/api/v1/emails/send-bulk", deps.SendHandler.HandleSendBulk)
		r.Get("/api/v1/records", deps.RecordsHandler.HandleListRecords)
	})

	// Administrative API (admin key)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminKey(deps.AdminKeyHash))

		r.Post("/api/v1/admin/clients", deps.AdminHandler.HandleRegisterClient)
		r.Get("/api/v1/admin/clients", deps.AdminHandler.HandleListClients)
		r.Put("/api/v1/admin/clients/{id}", deps.AdminHandler.HandleUpdateClient)
		r.Put("/api/v1/admin/mail-config", deps.AdminHandler.HandleSaveMailConfig)
		r.Get("/api/v1/admin/mail-config", deps.AdminHandler.HandleGetMailConfig)
	})

	return r
}

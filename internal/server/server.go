package server

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"altarmaker/internal/auth"
	"altarmaker/internal/config"
	"altarmaker/internal/email"
	"altarmaker/internal/store"
)

// DesignStore is the persistence surface for wall designs and saved design
// sessions, implemented by store.DesignStore.
type DesignStore interface {
	LatestWallDesign(ctx context.Context, userID string) (*store.WallDesign, error)
	SaveWallDesign(ctx context.Context, d *store.WallDesign) (string, error)
	ListSessions(ctx context.Context, userID string) ([]store.DesignSession, error)
	CreateSession(ctx context.Context, ds *store.DesignSession) (string, error)
	GetSession(ctx context.Context, userID, id string) (*store.DesignSession, error)
	UpdateSession(ctx context.Context, userID, id string, ds *store.DesignSession) error
	DeleteSession(ctx context.Context, userID, id string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error
}

type FeedbackStore interface {
	Insert(ctx context.Context, f *store.Feedback) (string, error)
	List(ctx context.Context) ([]store.Feedback, error)
}

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Users    auth.UserStore
	Sessions auth.SessionStore
	Hasher   auth.PasswordHasher
	Tokens   *auth.TokenCodec
	Limiter  auth.RateLimiter
	Mailer   email.Mailer
	Designs  DesignStore
	Feedback FeedbackStore
	Audit    *auth.AuditLogger
	Config   config.Config
	DB       Pinger

	trustedProxies []net.IPNet
}

func NewServer(cfg config.Config, users auth.UserStore, sessions auth.SessionStore, hasher auth.PasswordHasher, tokens *auth.TokenCodec, limiter auth.RateLimiter, mailer email.Mailer, designs DesignStore, feedback FeedbackStore, audit *auth.AuditLogger, db Pinger) *Server {
	return &Server{
		Users:          users,
		Sessions:       sessions,
		Hasher:         hasher,
		Tokens:         tokens,
		Limiter:        limiter,
		Mailer:         mailer,
		Designs:        designs,
		Feedback:       feedback,
		Audit:          audit,
		Config:         cfg,
		DB:             db,
		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "X-CSRFToken"},
		ExposedHeaders:   []string{"Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	r.Get("/api/health", s.handleHealth)

	r.Post("/api/auth/register", s.handleRegister)
	r.Get("/api/auth/verify-email", s.handleVerifyEmail)
	r.Post("/api/auth/resend-verification", s.handleResendVerification)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)
	r.Get("/api/auth/status", s.handleAuthStatus)

	r.Get("/api/feedback", s.handleListFeedback)
	r.Post("/api/feedback", s.handleSubmitFeedback)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)

		pr.Get("/api/designs/wall-designs", s.handleGetWallDesigns)
		pr.Post("/api/designs/wall-designs", s.handleSaveWallDesigns)

		pr.Get("/api/sessions", s.handleListSessions)
		pr.Post("/api/sessions", s.handleSaveSession)
		pr.Get("/api/sessions/{id}", s.handleGetSession)
		pr.Put("/api/sessions/{id}", s.handleUpdateSession)
		pr.Delete("/api/sessions/{id}", s.handleDeleteSession)

		pr.Group(func(ar chi.Router) {
			ar.Use(s.requireAdmin)

			ar.Get("/api/admin/users", s.handleListUsers)
			ar.Post("/api/admin/users", s.handleCreateAdminUser)
			ar.Delete("/api/admin/users/{id}", s.handleDeleteUser)
			ar.Put("/api/admin/users/{id}/promote", s.handlePromoteUser)
			ar.Put("/api/admin/users/{id}/demote", s.handleDemoteUser)
			ar.Put("/api/admin/users/{id}/status", s.handleSetUserStatus)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"status":   "unhealthy",
				"message":  "Database connection failed",
				"database": "disconnected",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"message":  "AltarMaker API is running",
		"database": "connected",
	})
}

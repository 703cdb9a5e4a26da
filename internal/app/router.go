package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pitchside/pitchside/internal/apperrors"
	"github.com/pitchside/pitchside/internal/audit"
	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/availability"
	"github.com/pitchside/pitchside/internal/config"
	"github.com/pitchside/pitchside/internal/fields"
	"github.com/pitchside/pitchside/internal/matchposts"
	"github.com/pitchside/pitchside/internal/notify"
	"github.com/pitchside/pitchside/internal/reservations"
)

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)              // Set RemoteAddr to real IP
	r.Use(apperrors.RequestIDMiddleware)  // Add request ID to context
	r.Use(LoggingMiddleware)              // Structured request logging
	r.Use(RecoveryMiddleware)             // Recover from panics
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.Middleware(cfg.JWTSecret)) // Resolve bearer tokens into caller identity

	// Shared collaborators
	auditor := audit.NewWriter(pool)
	notifier := notify.NewClient(cfg.WebhookURL, cfg.WebhookTimeoutMS)

	// Domain services. Reservations and match posts reference each other
	// (cancel closes the backing post's roster), so the orphaner is wired
	// after both exist.
	fieldsSvc := fields.NewService(pool)
	resStore := reservations.NewPostgresStore(pool)
	resSvc := reservations.NewService(resStore, fieldsSvc, nil)
	postSvc := matchposts.NewService(matchposts.NewPostgresStore(pool), resStore, cfg.RosterMin, cfg.RosterMax)
	resSvc.SetOrphaner(postSvc)
	projector := availability.NewProjector(resStore, fieldsSvc, cfg.SlotMinutes, cfg.DayOpenHour, cfg.DayCloseHour)

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))

	// API routes - Authentication
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/signup", auth.HandleSignup(pool, auditor))

		// Login with rate limiting (10 requests per minute)
		r.With(LoginRateLimitMiddleware()).Post("/login", auth.HandleLogin(pool, auditor, cfg.JWTSecret, cfg.SessionDays))
	})

	// API routes - Fields
	r.Route("/api/v1/fields", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", fields.HandleList(pool))
		r.Get("/{field_id}", fields.HandleGet(pool))
		r.Get("/{field_id}/availability", availability.HandleGetAvailability(projector))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Post("/", fields.HandleCreate(pool, auditor))
			r.Get("/{field_id}/reservations", reservations.HandleListForField(resSvc))
			r.Get("/{field_id}/audit", fields.HandleListAudit(pool))
		})
	})

	// API routes - Reservations (require authentication)
	r.Route("/api/v1/reservations", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth.RequireAuth)

		r.With(WriteRateLimitMiddleware(cfg.RateLimitRPM)).Post("/", reservations.HandleCreate(resSvc, auditor, notifier))
		r.Get("/", reservations.HandleListMine(resSvc))
		r.Get("/{reservation_id}", reservations.HandleGet(resSvc))
		r.Post("/{reservation_id}/confirm", reservations.HandleConfirm(resSvc, auditor, notifier))
		r.Post("/{reservation_id}/cancel", reservations.HandleCancel(resSvc, auditor, notifier))
	})

	// API routes - Match posts and invitations
	r.Route("/api/v1/posts", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/{post_id}", matchposts.HandleGetPost(postSvc))
		r.Get("/{post_id}/players", matchposts.HandleListPlayers(postSvc))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Post("/", matchposts.HandleCreatePost(postSvc, auditor, notifier))
			r.Post("/{post_id}/invitations", matchposts.HandleNominate(postSvc, auditor, notifier))
			r.Post("/{post_id}/join", matchposts.HandleSelfRequest(postSvc, auditor, notifier))
			r.Post("/{post_id}/invitations/accept", matchposts.HandleAccept(postSvc, auditor, notifier))
			r.Post("/{post_id}/invitations/reject", matchposts.HandleReject(postSvc, auditor, notifier))
		})
	})

	return r
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
// Returns 200 OK if service is ready to accept traffic, 503 if not
func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}

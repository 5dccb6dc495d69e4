package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/REVIVAL-MIMI/psychology/internal/config"
	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/pkg/health"
	"github.com/REVIVAL-MIMI/psychology/pkg/middleware"
)

// uploadsCacheMaxAge is the Cache-Control max-age, in seconds, for served
// upload files.
const uploadsCacheMaxAge = 86400

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Config *config.Config
	Logger *slog.Logger
	Redis  *redis.Client
	Gate   *Gate
	Health *health.Handler
	Hub    http.Handler

	Auth           *AuthHandler
	Admin          *AdminHandler
	Profile        *ProfileHandler
	Invite         *InviteHandler
	Session        *SessionHandler
	Recommendation *RecommendationHandler
	Journal        *JournalHandler
	Chat           *ChatHandler
	Notification   *NotificationHandler
	Clients        *ClientsHandler
	Debug          *DebugHandler
}

// NewRouter assembles the HTTP routing table.
func NewRouter(deps RouterDeps) chi.Router {
	cfg := deps.Config
	logger := deps.Logger

	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowCredentials: true,
		Environment:      cfg.Environment,
	}))
	if cfg.TracingEnabled {
		r.Use(middleware.Tracing("psychology-api"))
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("psychology-api"))
	r.Use(deps.Gate.Authenticate)

	// Operational endpoints.
	r.Get("/healthz", deps.Health.LivenessHandler())
	r.Get("/readyz", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Verification documents and other uploads. Documents never change once
	// uploaded, so browsers may cache them for a day.
	uploadsFS := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir)))
	r.With(middleware.CacheControl(uploadsCacheMaxAge)).Handle("/uploads/*", uploadsFS)

	// Profiling endpoints, development only and fenced by an IP allowlist.
	if cfg.IsDevelopment() {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	// Live chat and notification delivery.
	r.Handle("/ws-chat", deps.Hub)

	authLimit := middleware.RateLimit(deps.Redis, middleware.RateLimitConfig{
		KeyPrefix: "rate_limit:auth",
		Limit:     cfg.AuthRateLimit,
		Window:    time.Minute,
	}, logger)
	otpLimit := middleware.RateLimit(deps.Redis, middleware.RateLimitConfig{
		KeyPrefix: "rate_limit:send_otp",
		Limit:     cfg.SendOTPRateLimit,
		Window:    time.Minute,
	}, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Use(ContentTypeJSON)

			r.With(otpLimit).Post("/send-otp", deps.Auth.SendOTP)
			r.Post("/login", deps.Auth.Login)
			r.Post("/register/psychologist", deps.Auth.RegisterPsychologist)
			r.Post("/register/client", deps.Auth.RegisterClient)
			r.Post("/refresh", deps.Auth.Refresh)
			r.Post("/logout", deps.Auth.Logout)
			r.Post("/change-phone", deps.Auth.RequestPhoneChange)
			r.Post("/change-phone/confirm", deps.Auth.ConfirmPhoneChange)
		})

		// Public invite validation for the registration page.
		r.Get("/invites/validate/{token}", deps.Invite.Validate)

		r.Route("/admin", func(r chi.Router) {
			r.With(authLimit, ContentTypeJSON).Post("/login", deps.Admin.Login)
			r.With(authLimit).Post("/refresh", deps.Admin.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(logger, domain.RoleAdmin))
				r.Use(ContentTypeJSON)

				r.Post("/logout", deps.Admin.Logout)
				r.Get("/verifications", deps.Admin.ListPendingVerifications)
				r.Post("/verifications/{userID}/approve", deps.Admin.ApproveVerification)
				r.Post("/verifications/{userID}/reject", deps.Admin.RejectVerification)
				r.Get("/users", deps.Admin.ListUsers)
				r.Delete("/users/{userID}", deps.Admin.DeleteUser)
				r.Get("/stats", deps.Admin.Stats)
				r.Get("/otp/last", deps.Admin.LastOTP)
				r.Get("/otp/recent", deps.Admin.RecentOTPs)
				r.Get("/otp/active", deps.Admin.ActiveOTPs)
			})
		})

		// Profile endpoints are shared by both roles. The document upload is
		// multipart, so the JSON content type check skips it.
		r.Route("/profile", func(r chi.Router) {
			r.With(ContentTypeJSON).Get("/", deps.Profile.Get)
			r.With(ContentTypeJSON).Put("/", deps.Profile.Update)
			r.Get("/verification-status", deps.Profile.VerificationStatus)
			r.With(RequireRole(logger, domain.RolePsychologist)).
				Post("/verification-document", deps.Profile.UploadVerificationDocument)
		})

		r.Route("/invites", func(r chi.Router) {
			r.Use(RequireRole(logger, domain.RolePsychologist))
			r.Use(ContentTypeJSON)

			r.Post("/", deps.Invite.Create)
			r.Get("/", deps.Invite.List)
			r.Delete("/{inviteID}", deps.Invite.Revoke)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.With(RequireRole(logger, domain.RolePsychologist)).Post("/", deps.Session.Create)
			r.Get("/", deps.Session.List)
			r.Get("/{sessionID}", deps.Session.Get)
			r.With(RequireRole(logger, domain.RolePsychologist)).Put("/{sessionID}", deps.Session.Update)
			r.Post("/{sessionID}/cancel", deps.Session.Cancel)
			r.With(RequireRole(logger, domain.RoleClient)).Post("/{sessionID}/confirm", deps.Session.Confirm)
			r.With(RequireRole(logger, domain.RolePsychologist)).Post("/{sessionID}/complete", deps.Session.Complete)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.With(RequireRole(logger, domain.RolePsychologist)).Post("/", deps.Recommendation.Create)
			r.Get("/", deps.Recommendation.List)
			r.With(RequireRole(logger, domain.RolePsychologist)).Put("/{recommendationID}", deps.Recommendation.Update)
			r.With(RequireRole(logger, domain.RolePsychologist)).Delete("/{recommendationID}", deps.Recommendation.Delete)
			r.With(RequireRole(logger, domain.RoleClient)).Post("/{recommendationID}/complete", deps.Recommendation.Complete)
		})

		r.Route("/journal", func(r chi.Router) {
			r.Use(RequireRole(logger, domain.RoleClient))
			r.Use(ContentTypeJSON)

			r.Post("/", deps.Journal.Create)
			r.Get("/", deps.Journal.List)
			r.Get("/{entryID}", deps.Journal.Get)
			r.Put("/{entryID}", deps.Journal.Update)
			r.Delete("/{entryID}", deps.Journal.Delete)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/messages", deps.Chat.Send)
			r.Get("/unread", deps.Chat.UnreadCount)
			r.Get("/conversations/{peerID}", deps.Chat.History)
			r.Get("/conversations/{peerID}/unread", deps.Chat.UnreadCountFrom)
			r.Post("/conversations/{peerID}/read", deps.Chat.MarkRead)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Get("/", deps.Notification.List)
			r.Get("/unread", deps.Notification.UnreadCount)
			r.Post("/read-all", deps.Notification.MarkAllRead)
			r.Post("/{notificationID}/read", deps.Notification.MarkRead)
			r.Delete("/{notificationID}", deps.Notification.Delete)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Use(RequireRole(logger, domain.RolePsychologist))

			r.Get("/", deps.Clients.List)
			r.Get("/{clientID}", deps.Clients.Get)
		})

		r.Get("/dashboard", deps.Clients.Dashboard)

		// OTP inspection endpoints exist only in development.
		if cfg.IsDevelopment() && deps.Debug != nil {
			r.Get("/test/ping", deps.Debug.Ping)
			r.Route("/debug", func(r chi.Router) {
				r.Get("/otp/last", deps.Debug.LastOTP)
				r.Get("/otp/recent", deps.Debug.RecentOTPs)
				r.Get("/otp/active", deps.Debug.ActiveOTPs)
			})
		}
	})

	return r
}

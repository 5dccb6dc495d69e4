package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/REVIVAL-MIMI/psychology/internal/auth"
	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
	"github.com/REVIVAL-MIMI/psychology/pkg/httputil"
	"github.com/REVIVAL-MIMI/psychology/pkg/logger"
	"github.com/REVIVAL-MIMI/psychology/pkg/middleware"
)

type principalKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return p, ok
}

// publicPrefixes lists paths that bypass authentication entirely.
var publicPrefixes = []string{
	"/api/v1/auth/",
	"/api/v1/admin/login",
	"/api/v1/admin/refresh",
	"/api/v1/invites/validate/",
	"/api/v1/test/",
	"/api/v1/debug/",
	"/debug/pprof/",
	"/ws-chat",
	"/healthz",
	"/readyz",
	"/metrics",
	"/uploads/",
}

// unverifiedAllowed lists the paths an unverified psychologist may still
// reach. Auth paths are public already.
var unverifiedAllowed = map[string]bool{
	"/api/v1/profile/verification-status": true,
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Gate authenticates every non-public request and attaches a Principal to the
// request context. Unverified psychologists are fenced off from everything but
// their verification status.
type Gate struct {
	jwtManager    *auth.JWTManager
	registry      repository.TokenRegistry
	users         repository.UserRepository
	psychologists repository.PsychologistProfileRepository
	clients       repository.ClientProfileRepository
	logger        *slog.Logger
}

// NewGate creates the authentication gate middleware.
func NewGate(
	jwtManager *auth.JWTManager,
	registry repository.TokenRegistry,
	users repository.UserRepository,
	psychologists repository.PsychologistProfileRepository,
	clients repository.ClientProfileRepository,
	logger *slog.Logger,
) *Gate {
	return &Gate{
		jwtManager:    jwtManager,
		registry:      registry,
		users:         users,
		psychologists: psychologists,
		clients:       clients,
		logger:        logger,
	}
}

// Authenticate is the gate middleware.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := middleware.BearerToken(r)
		if token == "" {
			httputil.WriteError(w, r, apperrors.Unauthorized("missing bearer token"), g.logger)
			return
		}

		revoked, err := g.registry.IsBlacklisted(r.Context(), token)
		if err != nil {
			httputil.WriteError(w, r, apperrors.Internal(err), g.logger)
			return
		}
		if revoked {
			httputil.WriteError(w, r, apperrors.Blacklisted("token has been revoked"), g.logger)
			return
		}

		claims, err := g.jwtManager.ValidateAccessToken(token)
		if err != nil {
			httputil.WriteError(w, r, err, g.logger)
			return
		}

		principal, err := g.loadPrincipal(r.Context(), claims)
		if err != nil {
			httputil.WriteError(w, r, err, g.logger)
			return
		}

		if !principal.IsVerified() && !unverifiedAllowed[r.URL.Path] {
			httputil.WriteError(w, r,
				apperrors.Forbidden("account verification is pending"), g.logger)
			return
		}

		ctx := ContextWithPrincipal(r.Context(), principal)
		ctx = logger.WithUserID(ctx, principal.User.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loadPrincipal resolves the token claims to a full principal. The configured
// admin has no users row and is synthesized from the claims.
func (g *Gate) loadPrincipal(ctx context.Context, claims *auth.Claims) (*domain.Principal, error) {
	user, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if claims.Role == domain.RoleAdmin {
				return &domain.Principal{User: domain.User{
					ID:    claims.UserID,
					Phone: claims.Subject,
					Role:  domain.RoleAdmin,
				}}, nil
			}
			return nil, apperrors.InvalidToken("account no longer exists")
		}
		return nil, apperrors.Internal(err)
	}

	principal := &domain.Principal{User: *user}
	switch user.Role {
	case domain.RolePsychologist:
		profile, err := g.psychologists.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		principal.Psychologist = profile
	case domain.RoleClient:
		profile, err := g.clients.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		principal.Client = profile
	}

	return principal, nil
}

// RequireRole guards a route group so only the listed roles pass.
func RequireRole(logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), logger)
				return
			}
			if !allowed[principal.User.Role] {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient role"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON enforces that requests with a body carry application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

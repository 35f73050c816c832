// Package apiv1 exposes the JSON API: auth, code redemption, the line
// composer and the admin registry endpoints.
package apiv1

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"flash-code/internal/infra/logging"
	"flash-code/internal/usecase"
)

// AttemptLimiter throttles auth attempts. Satisfied by redis.RateLimiter.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	authUC     usecase.AuthUseCase
	registryUC usecase.RegistryUseCase
	sessions   *SessionManager
	limiter    AttemptLimiter
	rateLimit  int
	rateWindow time.Duration
	log        *zerolog.Logger
}

func NewServer(
	authUC usecase.AuthUseCase,
	registryUC usecase.RegistryUseCase,
	sessions *SessionManager,
	limiter AttemptLimiter,
	rateLimit int,
	rateWindow time.Duration,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		authUC:     authUC,
		registryUC: registryUC,
		sessions:   sessions,
		limiter:    limiter,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
		log:        logger,
	}
}

// RegisterAPIV1 mounts all routes with absolute paths, so attach the router
// at root.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/compose", s.handleCompose)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/session", s.handleSession)
			r.Post("/codes/redeem", s.handleRedeem)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/dashboard", s.handleDashboard)
				r.Post("/codes", s.handleCreateCodes)
				r.Delete("/codes/{id}", s.handleDeleteCode)
				r.Post("/codes/bulk-delete", s.handleBulkDelete)
				r.Post("/codes/purge-used", s.handlePurgeUsed)
				r.Patch("/users/{id}", s.handleSetUserActive)
			})
		})
	})
}

type ctxKey string

const ctxClaims ctxKey = "session_claims"

// requireSession rejects requests without a valid session token and threads
// the user id into the request context. Admin authorization is NOT decided
// here; the usecase re-reads the profile on every admin call.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.sessions.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), ctxClaims, claims)
		ctx = logging.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom pulls the claims requireSession stored. Handlers behind the
// middleware can rely on it being present.
func sessionFrom(ctx context.Context) *SessionClaims {
	if c, ok := ctx.Value(ctxClaims).(*SessionClaims); ok {
		return c
	}
	return &SessionClaims{}
}

// allowAttempt consults the rate limiter and fails open on limiter errors so
// a redis outage never locks everyone out.
func (s *Server) allowAttempt(ctx context.Context, key string) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.Allow(ctx, key, s.rateLimit, s.rateWindow)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
		return true
	}
	return ok
}

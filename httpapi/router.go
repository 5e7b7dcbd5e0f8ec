// Package httpapi is the HTTP surface of the authentication service:
// routing, guards, the response envelope, and session cookie handling. All
// business rules live in the engine; handlers translate between HTTP and
// engine calls.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/devteamer/authd"
)

// Authentication endpoints get a tighter per-IP budget than the rest of the
// API; the per-identity cooldown inside the engine is the real abuse gate,
// this throttle just blunts brute force at the edge.
const authRequestsPerSecond = 5

// Server binds the engine to HTTP.
type Server struct {
	engine   *authd.Engine
	cfg      authd.Config
	validate *validator.Validate
	log      *slog.Logger
}

// NewServer builds the HTTP surface over an engine.
func NewServer(engine *authd.Engine, cfg authd.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		engine:   engine,
		cfg:      cfg,
		validate: validator.New(),
		log:      logger.With("component", "httpapi"),
	}
}

// Router assembles the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.StrictSlash(true)
	r.Use(s.requestLog)
	// Session credentials ride a cookie, so credentialed CORS with an
	// explicit origin allowlist; a wildcard would be rejected by browsers.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api := r.PathPrefix("/api").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	if !s.cfg.Debug {
		// Local frontends hammer these routes during development; the
		// per-identity cooldowns still apply either way.
		auth.Use(ipThrottle())
	}
	auth.Handle("/register",
		s.finish(s.requireUnauthenticated(s.handleRegister))).Methods(http.MethodPost)
	auth.Handle("/resend-verification",
		s.finish(s.requireUnauthenticated(s.handleResendVerification))).Methods(http.MethodGet)
	auth.Handle("/verify-email",
		s.finish(s.requireUnauthenticated(s.handleVerifyEmail))).Methods(http.MethodGet)
	auth.Handle("/login",
		s.finish(s.requireUnauthenticated(s.handleLogin))).Methods(http.MethodPost)
	auth.Handle("/confirm-login",
		s.finish(s.requireUnauthenticated(s.handleConfirmLogin))).Methods(http.MethodGet)
	auth.Handle("/logout",
		s.finish(s.requireAuthenticated(s.handleLogout))).Methods(http.MethodPost)

	users := api.PathPrefix("/users").Subrouter()
	users.Handle("/get-current",
		s.finish(s.requireAuthenticated(s.handleGetCurrent))).Methods(http.MethodGet)
	users.Handle("/check-exists",
		s.finish(s.handleCheckExists)).Methods(http.MethodGet)
	users.Handle("/{username}",
		s.finish(s.requireAuthenticated(s.handleGetUser))).Methods(http.MethodGet)

	return r
}

func ipThrottle() mux.MiddlewareFunc {
	lmt := tollbooth.NewLimiter(authRequestsPerSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Hour,
	})
	lmt.SetIPLookups([]string{"X-Forwarded-For", "RemoteAddr"})
	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(lmt, next)
	}
}

package httpapi

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devteamer/authd"
)

const sessionCookieName = "access_token"

// apiHandler is a route handler returning an envelope outcome or a
// business-rule error. Guards compose over this shape.
type apiHandler func(w http.ResponseWriter, r *http.Request) (*outcome, error)

// authedHandler additionally receives the authenticated caller.
type authedHandler func(w http.ResponseWriter, r *http.Request, user *authd.UserRecord) (*outcome, error)

// requireUnauthenticated rejects callers holding a live session. A cookie
// that no longer authenticates is treated as absent.
func (s *Server) requireUnauthenticated(h apiHandler) apiHandler {
	return func(w http.ResponseWriter, r *http.Request) (*outcome, error) {
		if token := sessionToken(r); token != "" {
			if _, err := s.engine.Authenticate(r.Context(), token); err == nil {
				return nil, authd.ErrAlreadyAuthenticated
			}
		}
		return h(w, r)
	}
}

// requireAuthenticated resolves the session cookie to a user. An invalid
// token additionally signals the client to drop the dead cookie.
func (s *Server) requireAuthenticated(h authedHandler) apiHandler {
	return func(w http.ResponseWriter, r *http.Request) (*outcome, error) {
		token := sessionToken(r)
		if token == "" {
			return nil, authd.ErrUnauthorized
		}
		user, err := s.engine.Authenticate(r.Context(), token)
		if err != nil {
			if apiErr := authd.AsError(err); apiErr == authd.ErrUnauthorized {
				return nil, apiErr.WithClearCookie()
			}
			return nil, err
		}
		return h(w, r, user)
	}
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setSessionCookie installs the access token as the session credential.
// Cross-site frontends need SameSite=None, which browsers only accept with
// Secure; development keeps the lenient Lax+insecure pairing.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(s.cfg.AccessTTL.Seconds()),
	}
	if s.cfg.Debug {
		cookie.SameSite = http.SameSiteLaxMode
	} else {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}
	if s.cfg.Debug {
		cookie.SameSite = http.SameSiteLaxMode
	} else {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip, _, _ := strings.Cut(forwarded, ",")
		if ip = strings.TrimSpace(ip); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestLog tags each request with an ID and logs method, path, and timing.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
		s.log.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"ip", clientIP(r),
			"duration", time.Since(start),
		)
	})
}


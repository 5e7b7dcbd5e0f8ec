package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devteamer/authd"
)

// envelope is the uniform response body: a human-readable detail, the HTTP
// status echoed for redirect consumers, and optional payload data.
type envelope struct {
	Detail string         `json:"detail"`
	Status int            `json:"status"`
	Data   any            `json:"data"`
	Meta   map[string]any `json:"meta"`
}

// outcome is a successful handler result before envelope encoding.
type outcome struct {
	detail string
	status int
	data   any
}

func ok(detail string, data any) *outcome {
	return &outcome{detail: detail, status: http.StatusOK, data: data}
}

// userRead is the client-facing projection of a user record. The password
// hash never crosses this boundary.
type userRead struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Verified  bool   `json:"verified"`
}

func readUser(u *authd.UserRecord) userRead {
	return userRead{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Verified:  u.Verified,
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	if body.Meta == nil {
		body.Meta = map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// finish adapts an apiHandler to net/http, encoding the outcome or error as
// the JSON envelope, or as a 302 to redirectUri?message=...&status=... when
// the caller requested a redirect flow. Cookies already set by the handler
// ride along either way.
func (s *Server) finish(h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectURI := r.URL.Query().Get("redirectUri")

		out, err := h(w, r)
		if err != nil {
			apiErr := s.mapError(r, err)
			if apiErr.ClearCookie {
				s.clearSessionCookie(w)
			}
			if redirectURI != "" {
				redirectWith(w, r, redirectURI, apiErr.Detail, apiErr.Status)
				return
			}
			writeJSON(w, apiErr.Status, envelope{Detail: apiErr.Detail, Status: apiErr.Status})
			return
		}

		if redirectURI != "" {
			redirectWith(w, r, redirectURI, out.detail, out.status)
			return
		}
		writeJSON(w, out.status, envelope{Detail: out.detail, Status: out.status, Data: out.data})
	}
}

// mapError collapses anything that is not a client-facing *authd.Error to an
// opaque 500, logging the original cause.
func (s *Server) mapError(r *http.Request, err error) *authd.Error {
	apiErr := authd.AsError(err)
	if apiErr == authd.ErrInternal && err != authd.ErrInternal {
		s.log.Error("unhandled error", "path", r.URL.Path, "error", err)
	}
	return apiErr
}

func redirectWith(w http.ResponseWriter, r *http.Request, redirectURI, message string, status int) {
	params := url.Values{}
	params.Set("message", message)
	params.Set("status", strconv.Itoa(status))
	http.Redirect(w, r, redirectURI+"?"+params.Encode(), http.StatusFound)
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/devteamer/authd"
)

type registerBody struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

type loginBody struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// decodeBody parses and tag-validates a JSON request body. Charset-level
// rules run later, inside the engine.
func (s *Server) decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return authd.ValidationError("Malformed request body.")
	}
	if err := s.validate.Struct(dst); err != nil {
		return authd.ValidationError("Invalid request: " + err.Error())
	}
	return nil
}

func (s *Server) handleRegister(_ http.ResponseWriter, r *http.Request) (*outcome, error) {
	var body registerBody
	if err := s.decodeBody(r, &body); err != nil {
		return nil, err
	}

	user, message, err := s.engine.Register(r.Context(), authd.RegisterRequest{
		Email:     body.Email,
		Username:  body.Username,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	}, r.URL.Query().Get("clientUrl"))
	if err != nil {
		return nil, err
	}
	return ok(message, readUser(user)), nil
}

func (s *Server) handleResendVerification(_ http.ResponseWriter, r *http.Request) (*outcome, error) {
	username := r.URL.Query().Get("username")
	if username == "" {
		return nil, authd.ValidationError("Query parameter username is required.")
	}
	message, err := s.engine.ResendVerification(r.Context(), username, r.URL.Query().Get("clientUrl"))
	if err != nil {
		return nil, err
	}
	return ok(message, nil), nil
}

func (s *Server) handleVerifyEmail(_ http.ResponseWriter, r *http.Request) (*outcome, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil, authd.ValidationError("Query parameter token is required.")
	}
	message, err := s.engine.VerifyEmail(r.Context(), token, clientIP(r))
	if err != nil {
		return nil, err
	}
	return ok(message, nil), nil
}

func (s *Server) handleLogin(_ http.ResponseWriter, r *http.Request) (*outcome, error) {
	var body loginBody
	if err := s.decodeBody(r, &body); err != nil {
		return nil, err
	}
	message, err := s.engine.Login(r.Context(), body.Username, body.Password, r.URL.Query().Get("clientUrl"))
	if err != nil {
		return nil, err
	}
	return ok(message, nil), nil
}

func (s *Server) handleConfirmLogin(w http.ResponseWriter, r *http.Request) (*outcome, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil, authd.ValidationError("Query parameter token is required.")
	}
	access, _, err := s.engine.ConfirmLogin(r.Context(), token, clientIP(r))
	if err != nil {
		return nil, err
	}
	s.setSessionCookie(w, access)
	return ok("Authenticated.", nil), nil
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request, _ *authd.UserRecord) (*outcome, error) {
	s.clearSessionCookie(w)
	return ok("Logged out.", nil), nil
}

func (s *Server) handleGetCurrent(_ http.ResponseWriter, _ *http.Request, user *authd.UserRecord) (*outcome, error) {
	return ok("Ok", readUser(user)), nil
}

func (s *Server) handleCheckExists(_ http.ResponseWriter, r *http.Request) (*outcome, error) {
	username := r.URL.Query().Get("username")
	if username == "" {
		return nil, authd.ValidationError("Query parameter username is required.")
	}
	exists, err := s.engine.UserExists(r.Context(), username)
	if err != nil {
		return nil, err
	}
	return ok("Ok", strconv.FormatBool(exists)), nil
}

func (s *Server) handleGetUser(_ http.ResponseWriter, r *http.Request, _ *authd.UserRecord) (*outcome, error) {
	username := mux.Vars(r)["username"]
	user, err := s.engine.GetUser(r.Context(), username)
	if err != nil {
		return nil, err
	}
	return ok("Ok", readUser(user)), nil
}

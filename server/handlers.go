package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/mrarman0786/chat-app/auth"
	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/errors"
	"github.com/mrarman0786/chat-app/services"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

type wireUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, wireError{Type: "error", Message: "invalid request body"})
		return
	}

	session, err := s.accounts.Register(req.Username, req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.setSessionCookie(w, session.Token)
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, wireError{Type: "error", Message: "invalid request body"})
		return
	}

	session, err := s.accounts.Login(req.Username, req.Password)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.setSessionCookie(w, session.Token)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// handleHistory backfills a new session with the most recent messages,
// ordered by time ascending. Limit is clamped to the configured maximum;
// the server never dedupes history against subsequent live events.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.opts.HistoryDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, wireError{Type: "error", Message: "invalid limit"})
			return
		}
		limit = min(parsed, s.opts.HistoryMaxLimit)
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, wireError{Type: "error", Message: "invalid offset"})
			return
		}
		offset = parsed
	}

	messages, err := s.chat.History(limit, offset)
	if err != nil {
		s.log.Error("history query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, wireError{Type: "error", Message: "history unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(messages, func(msg domain.Message, _ int) wireMessage {
		return toWireMessage(msg)
	}))
}

func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, errors.ErrUserAlreadyExists), stderrors.Is(err, errors.ErrEmailAlreadyTaken):
		writeJSON(w, http.StatusConflict, wireError{Type: "error", Message: err.Error()})
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, wireError{Type: "error", Message: "invalid credentials"})
	default:
		s.log.Error("auth request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, wireError{Type: "error", Message: "internal error"})
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.opts.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func toSessionResponse(session services.Session) sessionResponse {
	return sessionResponse{
		Token: session.Token,
		User: wireUser{
			ID:       session.Identity.ID,
			Username: session.Identity.Username,
			Email:    session.Identity.Email,
		},
	}
}

package auth

import (
	"net/http"
	"strings"

	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/errors"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "chat_session"

// Resolver turns a raw connection handshake into an authenticated Identity.
// It runs synchronously before the connection is admitted anywhere; no
// inbound event is processed for an unresolved connection.
type Resolver struct {
	issuer Issuer
}

func NewResolver(issuer Issuer) Resolver {
	return Resolver{issuer: issuer}
}

// Resolve reads the session token from the request's cookie, or from a
// bearer Authorization header for non-browser clients, and validates it.
// A missing, expired, or tampered token yields ErrUnauthenticated with no
// side effects.
func (r Resolver) Resolve(req *http.Request) (domain.Identity, error) {
	token := tokenFromRequest(req)
	if token == "" {
		return domain.Identity{}, errors.ErrUnauthenticated
	}
	return r.issuer.Validate(token)
}

func tokenFromRequest(req *http.Request) string {
	if cookie, err := req.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := req.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

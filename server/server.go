// Package server is the session gateway: it owns the connection lifecycle
// state machine (Connecting -> Authenticated -> Closed), binds resolved
// identities to live WebSocket connections, and routes inbound frames to
// the message pipeline and presence notifier.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrarman0786/chat-app/auth"
	"github.com/mrarman0786/chat-app/observability"
	"github.com/mrarman0786/chat-app/services"
)

// Options carry the transport tuning knobs from configuration.
type Options struct {
	ConnectionBufferSize int
	HistoryDefaultLimit  int
	HistoryMaxLimit      int
	AllowedOrigins       []string
	ReadLimitBytes       int64
	PongTimeout          time.Duration
	WriteTimeout         time.Duration
	TokenTTL             time.Duration
}

type Server struct {
	log      *slog.Logger
	resolver auth.Resolver
	chat     services.IChatService
	accounts services.IAuthService
	health   *observability.Health
	opts     Options
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, resolver auth.Resolver, chat services.IChatService,
	accounts services.IAuthService, health *observability.Health, opts Options) *Server {
	s := &Server{
		log:      log,
		resolver: resolver,
		chat:     chat,
		accounts: accounts,
		health:   health,
		opts:     opts,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
	return s
}

// Routes wires the HTTP surface: credential endpoints, the history
// backfill, the health snapshot, and the WebSocket upgrade.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// originAllowed accepts requests with no Origin header (non-browser
// clients) and, when a whitelist is configured, browser origins on it.
// An empty whitelist accepts any origin.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if parsed.Host == allowed || origin == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

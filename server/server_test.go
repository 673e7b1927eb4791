package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mrarman0786/chat-app/auth"
	"github.com/mrarman0786/chat-app/moderation"
	"github.com/mrarman0786/chat-app/observability"
	"github.com/mrarman0786/chat-app/repositories"
	"github.com/mrarman0786/chat-app/runtime"
	"github.com/mrarman0786/chat-app/server"
	"github.com/mrarman0786/chat-app/services"
)

const readTimeout = 3 * time.Second

// gateway is a fully wired server over an in-memory store, exposed through
// an httptest listener so real WebSocket clients can dial it.
type gateway struct {
	ts *httptest.Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	messages, err := repositories.NewMessageRepository(db, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })
	users, err := repositories.NewUserRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = users.Close() })

	moderator, err := moderation.NewModerator([]string{"heck"}, '*')
	require.NoError(t, err)

	registry := runtime.NewRegistry(logger)
	pipeline := runtime.NewPipeline(logger, registry, messages, moderator, 1000)
	presence := runtime.NewNotifier(registry)
	chat := services.NewChatService(registry, pipeline, presence, messages)

	issuer := auth.NewIssuer("test-secret", time.Hour)
	accounts := services.NewAuthService(users, issuer)
	health := observability.NewHealth(logger, registry)

	srv := server.NewServer(logger, auth.NewResolver(issuer), chat, accounts, health, server.Options{
		ConnectionBufferSize: 16,
		HistoryDefaultLimit:  50,
		HistoryMaxLimit:      100,
		ReadLimitBytes:       8192,
		PongTimeout:          60 * time.Second,
		WriteTimeout:         5 * time.Second,
		TokenTTL:             time.Hour,
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &gateway{ts: ts}
}

func (g *gateway) postJSON(t *testing.T, path string, body map[string]string) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(g.ts.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// register creates an account and returns its session token.
func (g *gateway) register(t *testing.T, username string) string {
	t.Helper()
	resp := g.postJSON(t, "/api/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "long enough password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

// dial opens an authenticated WebSocket connection.
func (g *gateway) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(g.ts.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// liveEvent is the decoded superset of outbound frames.
type liveEvent struct {
	Type     string `json:"type"`
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Greeting string `json:"greeting"`
	Message  string `json:"message"`
}

func readEvent(t *testing.T, conn *websocket.Conn) liveEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt liveEvent
	require.NoError(t, json.Unmarshal(payload, &evt))
	return evt
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame map[string]string) {
	t.Helper()
	payload, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func TestGateway_Session_Lifecycle_And_Broadcast(t *testing.T) {
	req := require.New(t)
	g := newGateway(t)
	aliceToken := g.register(t, "alice")
	bobToken := g.register(t, "bob")

	// Alice connects and is greeted without seeing her own join
	aliceConn := g.dial(t, aliceToken)
	welcome := readEvent(t, aliceConn)
	req.Equal("welcome", welcome.Type)
	req.Equal("Welcome to the room, alice", welcome.Greeting)

	// Bob connects: alice sees the join, bob only his greeting
	bobConn := g.dial(t, bobToken)
	joined := readEvent(t, aliceConn)
	req.Equal("joined", joined.Type)
	req.Equal("bob", joined.Username)
	req.Equal("welcome", readEvent(t, bobConn).Type)

	// Bob posts a message: both connections receive the confirmed copy
	sendFrame(t, bobConn, map[string]string{"type": "message", "text": "hello all"})

	toAlice := readEvent(t, aliceConn)
	req.Equal("message", toAlice.Type)
	req.Equal(uint64(1), toAlice.ID)
	req.Equal("bob", toAlice.Username)
	req.Equal("hello all", toAlice.Text)

	toBob := readEvent(t, bobConn)
	req.Equal("message", toBob.Type)
	req.Equal(toAlice.ID, toBob.ID)

	// The successful post implies a typing stop for everyone but bob
	stop := readEvent(t, aliceConn)
	req.Equal("typing_stop", stop.Type)
	req.Equal("bob", stop.Username)

	// Typing signals are forwarded to everyone but the typist
	sendFrame(t, aliceConn, map[string]string{"type": "typing_start"})
	typing := readEvent(t, bobConn)
	req.Equal("typing_start", typing.Type)
	req.Equal("alice", typing.Username)

	// Bob disconnects: alice hears the departure
	req.NoError(bobConn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second)))
	left := readEvent(t, aliceConn)
	req.Equal("left", left.Type)
	req.Equal("bob", left.Username)
}

func TestGateway_Blank_Message_Errors_To_Sender_Only(t *testing.T) {
	req := require.New(t)
	g := newGateway(t)
	aliceConn := g.dial(t, g.register(t, "alice"))
	readEvent(t, aliceConn) // welcome
	bobConn := g.dial(t, g.register(t, "bob"))
	readEvent(t, aliceConn) // joined
	readEvent(t, bobConn)   // welcome

	// When bob submits whitespace
	sendFrame(t, bobConn, map[string]string{"type": "message", "text": "   "})

	// Then only bob is told
	rejected := readEvent(t, bobConn)
	req.Equal("error", rejected.Type)
	req.Equal("message is empty", rejected.Message)

	// Alice's next event is a real message, not the rejection
	sendFrame(t, bobConn, map[string]string{"type": "message", "text": "for real"})
	next := readEvent(t, aliceConn)
	req.Equal("message", next.Type)
	req.Equal("for real", next.Text)
}

func TestGateway_Unknown_Frame_Type_Is_Rejected(t *testing.T) {
	req := require.New(t)
	g := newGateway(t)
	conn := g.dial(t, g.register(t, "alice"))
	readEvent(t, conn) // welcome

	sendFrame(t, conn, map[string]string{"type": "shrug"})

	rejected := readEvent(t, conn)
	req.Equal("error", rejected.Type)
	req.Equal("unknown event type", rejected.Message)
}

func TestGateway_Censors_Before_Broadcast_And_History(t *testing.T) {
	req := require.New(t)
	g := newGateway(t)
	conn := g.dial(t, g.register(t, "alice"))
	readEvent(t, conn) // welcome

	sendFrame(t, conn, map[string]string{"type": "message", "text": "oh heck"})

	live := readEvent(t, conn)
	req.Equal("message", live.Type)
	req.Equal("oh ****", live.Text)

	messages := g.history(t, "")
	req.Len(messages, 1)
	req.Equal("oh ****", messages[0].Text)
}

func TestGateway_Unauthenticated_Connection_Is_Refused(t *testing.T) {
	req := require.New(t)
	g := newGateway(t)
	wsURL := "ws" + strings.TrimPrefix(g.ts.URL, "http") + "/ws"

	// No token at all
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	// A forged token
	header := http.Header{}
	header.Set("Authorization", "Bearer not.a.token")
	_, resp, err = websocket.DefaultDialer.Dial(wsURL, header)
	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestGateway_Register_Conflicts_And_Login(t *testing.T) {
	req := require.New(t)
	g := newGateway(t)
	g.register(t, "alice")

	// Duplicate username
	resp := g.postJSON(t, "/api/register", map[string]string{
		"username": "alice", "email": "fresh@example.com", "password": "long enough password",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)

	// Wrong password
	resp = g.postJSON(t, "/api/login", map[string]string{
		"username": "alice", "password": "wrong password!",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// Correct password: session cookie is set
	resp = g.postJSON(t, "/api/login", map[string]string{
		"username": "alice", "password": "long enough password",
	})
	req.Equal(http.StatusOK, resp.StatusCode)
	cookieSet := false
	for _, cookie := range resp.Cookies() {
		if cookie.Name == auth.SessionCookie && cookie.Value != "" {
			cookieSet = true
			req.True(cookie.HttpOnly)
		}
	}
	req.True(cookieSet)
}

func (g *gateway) history(t *testing.T, query string) []liveEvent {
	t.Helper()
	resp, err := http.Get(g.ts.URL + "/api/history" + query)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var messages []liveEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	return messages
}

func TestGateway_History_Window_And_Validation(t *testing.T) {
	req := require.New(t)
	g := newGateway(t)
	conn := g.dial(t, g.register(t, "alice"))
	readEvent(t, conn) // welcome

	for i := 1; i <= 5; i++ {
		sendFrame(t, conn, map[string]string{"type": "message", "text": fmt.Sprintf("message %d", i)})
		readEvent(t, conn) // own broadcast echo keeps ordering deterministic
	}

	// Default window: everything, ascending
	all := g.history(t, "")
	req.Len(all, 5)
	req.Equal("message 1", all[0].Text)
	req.Equal("message 5", all[4].Text)

	// Limit keeps the newest, offset shifts the window back
	window := g.history(t, "?limit=2&offset=1")
	req.Len(window, 2)
	req.Equal("message 3", window[0].Text)
	req.Equal("message 4", window[1].Text)

	// Malformed parameters are rejected
	resp, err := http.Get(g.ts.URL + "/api/history?limit=abc")
	req.NoError(err)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
	resp, err = http.Get(g.ts.URL + "/api/history?offset=-1")
	req.NoError(err)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestGateway_Healthz_Reports_Connections(t *testing.T) {
	req := require.New(t)
	g := newGateway(t)
	conn := g.dial(t, g.register(t, "alice"))
	readEvent(t, conn) // welcome: registration is complete

	resp, err := http.Get(g.ts.URL + "/healthz")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var snapshot struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&snapshot))
	req.Equal("ok", snapshot.Status)
	req.Equal(1, snapshot.Connections)
}

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/domain/event"
)

func decode(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(payload, &out))
	return out
}

func TestMarshalEvent_Tags_Every_Variant(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		event event.Event
		typ   string
	}{
		{event.Welcome{Username: "alice", Greeting: "Welcome to the room, alice"}, "welcome"},
		{event.Joined{Username: "alice", At: at}, "joined"},
		{event.Left{Username: "alice", At: at}, "left"},
		{event.ChatMessage{ID: 7, AuthorID: 1, Username: "alice", Body: "hi", At: at}, "message"},
		{event.TypingStarted{Username: "alice"}, "typing_start"},
		{event.TypingStopped{Username: "alice"}, "typing_stop"},
		{event.ErrorNotice{Message: "message is empty"}, "error"},
	}

	for _, c := range cases {
		payload, err := marshalEvent(c.event)
		req.NoError(err)
		req.Equal(c.typ, decode(t, payload)["type"])
	}
}

func TestMarshalEvent_ChatMessage_Fields(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	payload, err := marshalEvent(event.ChatMessage{
		ID: 7, AuthorID: 3, Username: "alice", Body: "hello", At: at,
	})
	req.NoError(err)

	fields := decode(t, payload)
	req.Equal(float64(7), fields["id"])
	req.Equal(float64(3), fields["author_id"])
	req.Equal("alice", fields["username"])
	req.Equal("hello", fields["text"])
	req.Equal("2026-08-29T12:00:00Z", fields["timestamp"])
}

func TestToWireMessage_History_Entries_Carry_No_Type_Tag(t *testing.T) {
	req := require.New(t)

	payload, err := json.Marshal(toWireMessage(domain.Message{
		ID: 1, AuthorID: 2, Author: "bob", Body: "stored", CreatedAt: time.Now().UTC(),
	}))
	req.NoError(err)

	fields := decode(t, payload)
	_, hasType := fields["type"]
	req.False(hasType)
	req.Equal("bob", fields["username"])
	req.Equal("stored", fields["text"])
}

func newRequestWithOrigin(origin string) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		request.Header.Set("Origin", origin)
	}
	return request
}

func TestOriginAllowed_Policy(t *testing.T) {
	req := require.New(t)
	open := &Server{opts: Options{}}
	restricted := &Server{opts: Options{AllowedOrigins: []string{"chat.example.com"}}}

	// No Origin header: always allowed (non-browser clients)
	req.True(open.originAllowed(newRequestWithOrigin("")))
	req.True(restricted.originAllowed(newRequestWithOrigin("")))

	// Empty whitelist: any origin allowed
	req.True(open.originAllowed(newRequestWithOrigin("https://anywhere.example.org")))

	// Whitelist: host must match
	req.True(restricted.originAllowed(newRequestWithOrigin("https://chat.example.com")))
	req.False(restricted.originAllowed(newRequestWithOrigin("https://evil.example.org")))
}

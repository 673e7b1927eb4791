package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/domain/event"
)

// Inbound frame types accepted on an authenticated connection. Anything
// else is rejected at this boundary and never reaches the core.
const (
	frameMessage     = "message"
	frameTypingStart = "typing_start"
	frameTypingStop  = "typing_stop"
)

type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Outbound wire schemas, one per event variant.

type wireWelcome struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Greeting string `json:"greeting"`
}

type wirePresence struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type wireTyping struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type wireMessage struct {
	Type      string    `json:"type,omitempty"`
	ID        uint64    `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type wireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// marshalEvent encodes one outbound event with its schema. The event set is
// closed; an unknown variant is a programming error.
func marshalEvent(e event.Event) ([]byte, error) {
	switch ev := e.(type) {
	case event.Welcome:
		return json.Marshal(wireWelcome{Type: "welcome", Username: ev.Username, Greeting: ev.Greeting})
	case event.Joined:
		return json.Marshal(wirePresence{Type: "joined", Username: ev.Username, Timestamp: ev.At})
	case event.Left:
		return json.Marshal(wirePresence{Type: "left", Username: ev.Username, Timestamp: ev.At})
	case event.ChatMessage:
		return json.Marshal(wireMessage{
			Type:      "message",
			ID:        ev.ID,
			AuthorID:  ev.AuthorID,
			Username:  ev.Username,
			Text:      ev.Body,
			Timestamp: ev.At,
		})
	case event.TypingStarted:
		return json.Marshal(wireTyping{Type: "typing_start", Username: ev.Username})
	case event.TypingStopped:
		return json.Marshal(wireTyping{Type: "typing_stop", Username: ev.Username})
	case event.ErrorNotice:
		return json.Marshal(wireError{Type: "error", Message: ev.Message})
	default:
		return nil, fmt.Errorf("unknown event variant %T", e)
	}
}

// toWireMessage converts a stored message for the history response; the
// type tag is omitted since history is a plain array, not an event stream.
func toWireMessage(msg domain.Message) wireMessage {
	return wireMessage{
		ID:        msg.ID,
		AuthorID:  msg.AuthorID,
		Username:  msg.Author,
		Text:      msg.Body,
		Timestamp: msg.CreatedAt,
	}
}

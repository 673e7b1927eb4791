// Package event defines the closed set of payloads delivered to live
// connections. Presence events are ephemeral and never persisted.
package event

import "time"

// Event is implemented by every outbound payload. The set is closed: the
// transport boundary encodes each variant with its own schema and rejects
// anything else.
type Event interface {
	isEvent()
}

// Welcome is unicast to a connection right after it joins the room.
type Welcome struct {
	Username string
	Greeting string
}

// Joined is broadcast to everyone except the joiner.
type Joined struct {
	Username string
	At       time.Time
}

// Left is broadcast to all remaining connections after the departing one
// has been deregistered.
type Left struct {
	Username string
	At       time.Time
}

// ChatMessage carries the server-confirmed copy of a persisted message,
// including the sender's own echo with the authoritative id and timestamp.
type ChatMessage struct {
	ID       uint64
	AuthorID int64
	Username string
	Body     string
	At       time.Time
}

// TypingStarted is forwarded to everyone except the typist.
type TypingStarted struct {
	Username string
}

// TypingStopped is forwarded to everyone except the typist. It is emitted
// on an explicit stop signal and implicitly after a successful submit.
type TypingStopped struct {
	Username string
}

// ErrorNotice is unicast to the connection whose submission failed; it is
// never broadcast.
type ErrorNotice struct {
	Message string
}

func (Welcome) isEvent()       {}
func (Joined) isEvent()        {}
func (Left) isEvent()          {}
func (ChatMessage) isEvent()   {}
func (TypingStarted) isEvent() {}
func (TypingStopped) isEvent() {}
func (ErrorNotice) isEvent()   {}

// Package errors defines the sentinel error taxonomy of the chat service.
package errors

import "fmt"

var (
	// ErrUnauthenticated is returned when a handshake carries no valid
	// session token. The connection is closed before any event surface
	// is exposed.
	ErrUnauthenticated = fmt.Errorf("unauthenticated")

	// ErrEmptyMessage is returned when inbound chat text is blank after
	// trimming. Reported to the sender only.
	ErrEmptyMessage = fmt.Errorf("empty message")

	// ErrSendFailed wraps a persistence failure during message submit.
	// The message is dropped, never retried automatically.
	ErrSendFailed = fmt.Errorf("send failed")

	// ErrDuplicateConnection is the defensive rejection of a connection
	// handle that is already registered.
	ErrDuplicateConnection = fmt.Errorf("duplicate connection")

	// ErrSlowConsumer marks a recipient whose outbound buffer is full or
	// closed during delivery. The recipient is treated as disconnected.
	ErrSlowConsumer = fmt.Errorf("slow consumer")

	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrEmailAlreadyTaken  = fmt.Errorf("email already taken")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)

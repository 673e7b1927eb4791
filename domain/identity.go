// Package domain contains core concepts of the chat system.
// This file defines the Identity record and its invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is the durable authenticated user record (id, username, email).
// It is immutable once resolved for a connection's lifetime; exactly one
// Identity is bound to each live connection.
type Identity struct {
	ID       int64
	Username string
	Email    string
}

// Package runtime hosts the session-gated broadcast engine: the connection
// registry, the message pipeline, and the presence notifier. It orchestrates
// delivery without containing transport or storage details.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mrarman0786/chat-app/contract"
	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/domain/event"
	"github.com/mrarman0786/chat-app/errors"
)

type connection struct {
	identity domain.Identity
	sink     contract.EventSink
}

// Registry is the single shared mutable structure of the broadcast domain.
// Mutation (register/deregister) is exclusive; delivery iterations take the
// read lock so concurrent broadcasts proceed in parallel.
type Registry struct {
	mu    sync.RWMutex
	log   *slog.Logger
	conns map[uuid.UUID]*connection
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:   log,
		conns: make(map[uuid.UUID]*connection),
	}
}

// Register adds an open connection bound to an authenticated identity.
// Handles are opaque per-connection UUIDs, so a collision should not occur;
// if it does, the new connection is rejected rather than corrupting the map.
func (r *Registry) Register(connID uuid.UUID, identity domain.Identity, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; ok {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateConnection, connID)
	}
	r.conns[connID] = &connection{identity: identity, sink: sink}
	r.log.Debug("connection registered", "conn_id", connID, "username", identity.Username, "total", len(r.conns))
	return nil
}

// Deregister removes a connection and closes its sink. Deregistering an
// absent id is a no-op, which lets disconnect paths race safely with
// delivery-failure drops.
func (r *Registry) Deregister(connID uuid.UUID) bool {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
	}
	total := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.sink.Close()
	r.log.Debug("connection deregistered", "conn_id", connID, "username", c.identity.Username, "total", total)
	return true
}

// BroadcastAll delivers an event to every open connection, best effort.
func (r *Registry) BroadcastAll(ctx context.Context, e event.Event) {
	r.deliver(ctx, e, uuid.Nil)
}

// BroadcastExcept delivers to everyone but one connection, used where an
// echo to the originator would be redundant (typing, own join).
func (r *Registry) BroadcastExcept(ctx context.Context, except uuid.UUID, e event.Event) {
	r.deliver(ctx, e, except)
}

// Unicast delivers to exactly one connection; a no-op if it is gone.
func (r *Registry) Unicast(ctx context.Context, connID uuid.UUID, e event.Event) {
	r.mu.RLock()
	c, ok := r.conns[connID]
	var err error
	if ok {
		err = c.sink.Consume(ctx, e)
	}
	r.mu.RUnlock()

	if err != nil {
		r.drop(connID)
	}
}

// Size reports the number of open connections.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// deliver fans an event out under the read lock. Each attempt is
// independent: a recipient that cannot accept the event is collected and
// dropped afterwards, without affecting delivery to the others.
func (r *Registry) deliver(ctx context.Context, e event.Event, except uuid.UUID) {
	var failed []uuid.UUID

	r.mu.RLock()
	for id, c := range r.conns {
		if id == except {
			continue
		}
		if err := c.sink.Consume(ctx, e); err != nil {
			r.log.Warn("delivery failed, dropping connection",
				"conn_id", id, "username", c.identity.Username, "error", err)
			failed = append(failed, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range failed {
		r.drop(id)
	}
}

// drop treats a connection as disconnected: its entry is removed and its
// sink closed, which unwinds the transport loops and triggers the normal
// leave path.
func (r *Registry) drop(connID uuid.UUID) {
	r.Deregister(connID)
}

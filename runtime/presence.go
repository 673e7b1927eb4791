package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mrarman0786/chat-app/contract"
	"github.com/mrarman0786/chat-app/domain/event"
)

// Notifier emits join/leave/typing events derived from connection lifecycle
// and inbound ephemeral signals. It keeps no state: a typing signal is seen
// and forwarded, debounce is entirely the client's concern.
type Notifier struct {
	registry contract.IRegistry
}

func NewNotifier(registry contract.IRegistry) *Notifier {
	return &Notifier{registry: registry}
}

// Joined announces a freshly registered connection to the rest of the room,
// then greets the joiner. The order matters: the joiner must never receive
// its own Joined event.
func (n *Notifier) Joined(ctx context.Context, connID uuid.UUID, username string) {
	n.registry.BroadcastExcept(ctx, connID, event.Joined{Username: username, At: time.Now().UTC()})
	n.registry.Unicast(ctx, connID, event.Welcome{
		Username: username,
		Greeting: fmt.Sprintf("Welcome to the room, %s", username),
	})
}

// Left announces a departure. The departing connection is already
// deregistered by the time this fires, so broadcast-all reaches exactly the
// remaining connections.
func (n *Notifier) Left(ctx context.Context, username string) {
	n.registry.BroadcastAll(ctx, event.Left{Username: username, At: time.Now().UTC()})
}

// StartedTyping forwards a typing signal to everyone but the typist.
func (n *Notifier) StartedTyping(ctx context.Context, connID uuid.UUID, username string) {
	n.registry.BroadcastExcept(ctx, connID, event.TypingStarted{Username: username})
}

// StoppedTyping forwards a stop signal, explicit or implied by a successful
// message submission.
func (n *Notifier) StoppedTyping(ctx context.Context, connID uuid.UUID, username string) {
	n.registry.BroadcastExcept(ctx, connID, event.TypingStopped{Username: username})
}

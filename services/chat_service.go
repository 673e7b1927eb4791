package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/mrarman0786/chat-app/contract"
	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/repositories"
	"github.com/mrarman0786/chat-app/runtime"
)

type IChatService interface {
	Join(ctx context.Context, connID uuid.UUID, identity domain.Identity, sink contract.EventSink) error
	Leave(ctx context.Context, connID uuid.UUID, identity domain.Identity)
	PostMessage(ctx context.Context, connID uuid.UUID, sender domain.Identity, text string) error
	Typing(ctx context.Context, connID uuid.UUID, sender domain.Identity, started bool)
	History(limit, offset int) ([]domain.Message, error)
}

// ChatService composes the registry, pipeline, and presence notifier into
// the surface the session gateway talks to.
type ChatService struct {
	registry contract.IRegistry
	pipeline *runtime.Pipeline
	presence *runtime.Notifier
	messages repositories.IMessageRepository
}

func NewChatService(registry contract.IRegistry, pipeline *runtime.Pipeline,
	presence *runtime.Notifier, messages repositories.IMessageRepository) *ChatService {
	return &ChatService{
		registry: registry,
		pipeline: pipeline,
		presence: presence,
		messages: messages,
	}
}

// Join admits an authenticated connection to the broadcast domain and
// announces it. Registration happens first, so the Welcome unicast finds
// the sink; the Joined broadcast excludes the joiner.
func (s *ChatService) Join(ctx context.Context, connID uuid.UUID, identity domain.Identity, sink contract.EventSink) error {
	if err := s.registry.Register(connID, identity, sink); err != nil {
		return err
	}
	s.presence.Joined(ctx, connID, identity.Username)
	return nil
}

// Leave removes the connection and announces the departure to everyone
// still connected. Deregistration is idempotent: the registry may already
// have dropped the connection after a delivery failure.
func (s *ChatService) Leave(ctx context.Context, connID uuid.UUID, identity domain.Identity) {
	s.registry.Deregister(connID)
	s.presence.Left(ctx, identity.Username)
}

// PostMessage runs the pipeline and, on success, implies a stop-typing
// signal for the sender. Pipeline failures have already been reported to
// the sender by unicast; the error return is for the caller's log.
func (s *ChatService) PostMessage(ctx context.Context, connID uuid.UUID, sender domain.Identity, text string) error {
	if _, err := s.pipeline.Submit(ctx, connID, sender, text); err != nil {
		return err
	}
	s.presence.StoppedTyping(ctx, connID, sender.Username)
	return nil
}

// Typing forwards an ephemeral typing signal at face value.
func (s *ChatService) Typing(ctx context.Context, connID uuid.UUID, sender domain.Identity, started bool) {
	if started {
		s.presence.StartedTyping(ctx, connID, sender.Username)
		return
	}
	s.presence.StoppedTyping(ctx, connID, sender.Username)
}

// History backfills a new session with the most recent messages, ascending
// by time. The client discards any entry whose id reappears live.
func (s *ChatService) History(limit, offset int) ([]domain.Message, error) {
	return s.messages.ListRecent(limit, offset)
}

package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"github.com/mrarman0786/chat-app/contract"
	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/domain/event"
	"github.com/mrarman0786/chat-app/errors"
	"github.com/mrarman0786/chat-app/moderation"
	"github.com/mrarman0786/chat-app/repositories"
)

// Pipeline validates, sanitizes, persists, and fans out chat messages.
// The append-then-broadcast section is serialized so two concurrent
// submissions can never interleave an id assignment with a broadcast of
// partially applied state. A message becomes visible to any connection only
// after its append has succeeded.
type Pipeline struct {
	mu        sync.Mutex
	log       *slog.Logger
	registry  contract.IRegistry
	messages  repositories.IMessageRepository
	moderator *moderation.Moderator
	maxLen    int
}

func NewPipeline(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository, moderator *moderation.Moderator, maxLen int) *Pipeline {
	return &Pipeline{
		log:       log,
		registry:  registry,
		messages:  messages,
		moderator: moderator,
		maxLen:    maxLen,
	}
}

// Submit processes one inbound chat text from an authenticated connection.
// Blank input is rejected to the sender only. Oversized input is truncated
// silently, the existing policy. On success every open connection, the
// sender included, receives the server-confirmed copy carrying the persisted
// id and timestamp. On append failure the sender alone is notified and the
// message is dropped; the connection stays open.
func (p *Pipeline) Submit(ctx context.Context, connID uuid.UUID, sender domain.Identity, raw string) (domain.Message, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		p.registry.Unicast(ctx, connID, event.ErrorNotice{Message: "message is empty"})
		return domain.Message{}, errors.ErrEmptyMessage
	}

	if runes := []rune(body); len(runes) > p.maxLen {
		body = string(runes[:p.maxLen])
	}
	if p.moderator != nil {
		body = p.moderator.Censor(body)
	}

	draft := domain.Draft{
		AuthorID:  sender.ID,
		Author:    sender.Username,
		Body:      body,
		Lang:      detectLang(body),
		CreatedAt: time.Now().UTC(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := p.messages.Append(draft)
	if err != nil {
		p.log.Error("message append failed", "username", sender.Username, "error", err)
		p.registry.Unicast(ctx, connID, event.ErrorNotice{Message: "send failed, please resend"})
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrSendFailed, err)
	}

	msg := domain.Message{
		ID:        id,
		AuthorID:  draft.AuthorID,
		Author:    draft.Author,
		Body:      draft.Body,
		CreatedAt: draft.CreatedAt,
	}
	p.registry.BroadcastAll(ctx, event.ChatMessage{
		ID:       msg.ID,
		AuthorID: msg.AuthorID,
		Username: msg.Author,
		Body:     msg.Body,
		At:       msg.CreatedAt,
	})
	return msg, nil
}

// detectLang annotates the stored record with an ISO 639-1 code when the
// detection is confident enough, empty otherwise.
func detectLang(body string) string {
	info := whatlanggo.Detect(body)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

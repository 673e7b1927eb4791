package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/domain/event"
	"github.com/mrarman0786/chat-app/services"
	"github.com/mrarman0786/chat-app/sink"
)

// handleWS is the connection lifecycle state machine. A connection starts
// Connecting; it becomes Authenticated only if the resolver accepts the
// handshake, otherwise it is closed with no events emitted and no registry
// entry ever created. From Authenticated it accepts inbound frames until
// the transport closes for any reason, then transitions to Closed:
// deregister, then broadcast Left. Closed is terminal.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolver.Resolve(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	connID := uuid.New()
	outbound := sink.NewChannel(s.opts.ConnectionBufferSize)
	c := &client{
		id:       connID,
		identity: identity,
		conn:     conn,
		sink:     outbound,
		chat:     s.chat,
		log:      s.log.With("conn_id", connID, "username", identity.Username),
		opts:     s.opts,
	}

	if err := s.chat.Join(r.Context(), connID, identity, outbound); err != nil {
		// Defensive: an opaque handle collided. Reject the new connection
		// rather than corrupt the registry.
		s.log.Error("registration rejected", "conn_id", connID, "error", err)
		outbound.Close()
		_ = conn.Close()
		return
	}

	defer func() {
		// The registry may already have dropped this connection after a
		// delivery failure; Leave deregisters idempotently and announces
		// the departure exactly once, from here.
		s.chat.Leave(context.Background(), connID, identity)
		outbound.Close()
		_ = conn.Close()
	}()

	go c.writePump()
	c.readPump(r.Context())
}

// client is one live authenticated connection: a read loop dispatching
// inbound frames and a write loop draining the sink.
type client struct {
	id       uuid.UUID
	identity domain.Identity
	conn     *websocket.Conn
	sink     *sink.Channel
	chat     services.IChatService
	log      *slog.Logger
	opts     Options
}

// readPump processes inbound frames in arrival order, so one client's own
// messages are never reordered. It returns when the transport errors or
// closes, which unwinds the whole connection.
func (c *client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(c.opts.ReadLimitBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected websocket error", "error", err)
			} else {
				c.log.Debug("connection closed", "error", err)
			}
			return
		}
		c.dispatch(ctx, payload)
	}
}

// dispatch decodes and validates one inbound frame at the transport
// boundary; only the closed set of frame types reaches the core.
func (c *client) dispatch(ctx context.Context, payload []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		c.notify(ctx, "invalid frame")
		return
	}

	switch frame.Type {
	case frameMessage:
		// Pipeline errors were already reported to this connection by
		// unicast; log only.
		if err := c.chat.PostMessage(ctx, c.id, c.identity, frame.Text); err != nil {
			c.log.Debug("message rejected", "error", err)
		}
	case frameTypingStart:
		c.chat.Typing(ctx, c.id, c.identity, true)
	case frameTypingStop:
		c.chat.Typing(ctx, c.id, c.identity, false)
	default:
		c.notify(ctx, "unknown event type")
	}
}

func (c *client) notify(ctx context.Context, message string) {
	_ = c.sink.Consume(ctx, event.ErrorNotice{Message: message})
}

// writePump drains the sink to the transport and keeps the connection
// alive with pings. A closed sink means the connection was deregistered;
// a write error unwinds via readPump's deadline once the peer is gone.
func (c *client) writePump() {
	pingInterval := c.opts.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.sink.Events():
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			payload, err := marshalEvent(evt)
			if err != nil {
				c.log.Error("event encoding failed", "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/oggyb/copal/internal/config"
	"github.com/oggyb/copal/internal/logger"
	"github.com/oggyb/copal/internal/metrics"
	"github.com/oggyb/copal/internal/service/chat"
)

const (
	defaultWriteWait       = 10 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultMaxMessageBytes = 64 * 1024
)

// ErrHubStopped is returned by Serve once the hub has shut down.
var ErrHubStopped = errors.New("realtime hub stopped")

// Store is the persistence the hub needs. chat.Service satisfies it.
type Store interface {
	ConversationIDsForUser(ctx context.Context, userID string) ([]string, error)
	SaveMessage(ctx context.Context, conversationID, senderID, content string) (*chat.MessageView, error)
}

// Options tunes connection handling. Zero values fall back to defaults.
type Options struct {
	SendBuffer      int
	MaxMessageBytes int64
	WriteWait       time.Duration
	PongWait        time.Duration
}

// OptionsFromConfig reads the realtime section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SendBuffer:      cfg.Realtime.SendBuffer,
		MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
	}
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = defaultMaxMessageBytes
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	return o
}

func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// Hub runs realtime connections against a shared Registry.
type Hub struct {
	registry *Registry
	store    Store
	logger   *slog.Logger
	opts     Options
	stopped  atomic.Bool
}

func NewHub(store Store, l *slog.Logger, opts Options) *Hub {
	if l == nil {
		l = logger.L()
	}
	return &Hub{
		registry: NewRegistry(),
		store:    store,
		logger:   l.With("component", "realtime-hub"),
		opts:     opts.withDefaults(),
	}
}

func (h *Hub) Registry() *Registry { return h.registry }

// Serve runs one upgraded connection for userID until it closes. It owns ws
// and closes it before returning.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, userID string) error {
	c := newConn(userID, h.opts.SendBuffer)
	log := logger.FromContext(ctx, h.logger).With("user", userID, "conn", c.id)

	if h.stopped.Load() {
		c.close()
		h.closeWith(ws, websocket.CloseGoingAway, "server shutting down")
		return ErrHubStopped
	}

	ids, err := h.store.ConversationIDsForUser(ctx, userID)
	if err != nil {
		c.close()
		log.Error("subscription lookup failed", "err", err)
		h.closeWith(ws, websocket.CloseInternalServerErr, "subscription failed")
		return fmt.Errorf("subscribe %s: %w", userID, err)
	}

	h.registry.Attach(c)
	// shutdown may have swept the registry during the lookup
	if h.stopped.Load() {
		c.close()
		h.registry.Detach(c)
		h.closeWith(ws, websocket.CloseGoingAway, "server shutting down")
		return ErrHubStopped
	}
	for _, id := range ids {
		h.registry.Subscribe(c, id)
	}
	c.setState(StateOpen)
	h.send(c, Envelope{Type: TypeStatus, Message: statusConnected})
	log.Info("realtime connection open", "topics", len(ids))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(ws, c, log)
	}()

	h.readPump(ctx, ws, c, log)

	c.close()
	n := h.registry.Detach(c)
	<-writerDone
	_ = ws.Close()
	log.Info("realtime connection closed", "topics", n)
	return nil
}

func (h *Hub) readPump(ctx context.Context, ws *websocket.Conn, c *Conn, log *slog.Logger) {
	ws.SetReadLimit(h.opts.MaxMessageBytes)
	if err := ws.SetReadDeadline(time.Now().Add(h.opts.PongWait)); err != nil {
		log.Error("failed to set read deadline", "err", err)
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("unexpected websocket close", "err", err)
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			log.Debug("ignoring malformed frame", "err", err)
			continue
		}
		conversationID := in.conversation()
		if conversationID == "" || strings.TrimSpace(in.Content) == "" {
			continue
		}
		h.handleInbound(ctx, c, conversationID, in.Content, log)
	}
}

func (h *Hub) handleInbound(ctx context.Context, c *Conn, conversationID, content string, log *slog.Logger) {
	msg, err := h.store.SaveMessage(ctx, conversationID, c.userID, content)
	if err != nil {
		log.Warn("message not persisted", "conversation_id", conversationID, "err", err)
		h.send(c, Envelope{Type: TypeError, Message: errorFailedMessage})
		return
	}
	h.publish(conversationID, Envelope{Type: TypeNewMessage, Data: msg}, c)
}

func (h *Hub) writePump(ws *websocket.Conn, c *Conn, log *slog.Logger) {
	ticker := time.NewTicker(h.opts.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			if err := ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait)); err != nil {
				log.Error("failed to set write deadline", "err", err)
				c.close()
				_ = ws.Close()
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug("write failed", "err", err)
				c.close()
				_ = ws.Close()
				return
			}

		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.opts.WriteWait)); err != nil {
				c.close()
				_ = ws.Close()
				return
			}

		case <-c.done:
			// unblocks the read pump when the server side initiated the close
			h.closeWith(ws, websocket.CloseGoingAway, "")
			return
		}
	}
}

func (h *Hub) closeWith(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.opts.WriteWait))
	_ = ws.Close()
}

func (h *Hub) send(c *Conn, env Envelope) bool {
	frame, err := encode(env)
	if err != nil {
		h.logger.Error("failed to encode envelope", "type", env.Type, "err", err)
		return false
	}
	if !c.enqueue(frame) {
		metrics.WSDeliveriesDropped.Inc()
		return false
	}
	return true
}

func (h *Hub) publish(topic string, env Envelope, except *Conn) int {
	frame, err := encode(env)
	if err != nil {
		h.logger.Error("failed to encode envelope", "type", env.Type, "err", err)
		return 0
	}
	metrics.WSMessagesPublished.Inc()
	return h.registry.Publish(topic, frame, except)
}

// PublishMessage fans a persisted message out to every subscriber of its
// conversation.
func (h *Hub) PublishMessage(_ context.Context, msg *chat.MessageView) {
	if msg == nil {
		return
	}
	n := h.publish(msg.ConversationID, Envelope{Type: TypeNewMessage, Data: msg}, nil)
	h.logger.Debug("message published", "conversation_id", msg.ConversationID, "delivered", n)
}

// SubscribeUsers subscribes the live connections of userIDs to a newly
// created conversation.
func (h *Hub) SubscribeUsers(conversationID string, userIDs ...string) {
	for _, id := range userIDs {
		h.registry.SubscribeUser(id, conversationID)
	}
}

// NotifyUser sends env to every live connection of userID and returns how
// many connections it was queued on.
func (h *Hub) NotifyUser(userID string, env Envelope) int {
	frame, err := encode(env)
	if err != nil {
		h.logger.Error("failed to encode envelope", "type", env.Type, "err", err)
		return 0
	}
	return h.registry.SendToUser(userID, frame)
}

// RunWithContext blocks until ctx is done, then closes every connection.
// Connections arriving after shutdown are refused with ErrHubStopped.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.stopped.Store(false)
	<-ctx.Done()
	h.stopped.Store(true)

	n := h.registry.closeAll()
	reason := "context_canceled"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = "context_deadline"
	}
	h.logger.Info("realtime hub stopped", "reason", reason, "connections_closed", n)
	return ctx.Err()
}

func (h *Hub) String() string { return "realtime-hub" }

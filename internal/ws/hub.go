package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/REVIVAL-MIMI/psychology/internal/auth"
	"github.com/REVIVAL-MIMI/psychology/internal/domain"
	"github.com/REVIVAL-MIMI/psychology/internal/repository"
	"github.com/REVIVAL-MIMI/psychology/internal/service"
	"github.com/REVIVAL-MIMI/psychology/pkg/middleware"
)

const (
	writeTimeout   = 10 * time.Second
	sendBufferSize = 32
)

// Frame is the JSON envelope exchanged over the WebSocket connection.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CallSignal carries WebRTC signalling between two paired users. Exactly the
// fields relevant to the signal type are set.
type CallSignal struct {
	Type      string `json:"type"` // offer, answer, candidate, hangup
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
}

type messagePayload struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

type typingPayload struct {
	RecipientID string `json:"recipient_id"`
	SenderID    string `json:"sender_id,omitempty"`
}

type readPayload struct {
	PeerID   string `json:"peer_id,omitempty"`
	ReaderID string `json:"reader_id,omitempty"`
}

type callSignalPayload struct {
	RecipientID string     `json:"recipient_id,omitempty"`
	SenderID    string     `json:"sender_id,omitempty"`
	Signal      CallSignal `json:"signal"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// conn is one live WebSocket connection. A user may hold several.
type conn struct {
	userID string
	sock   *websocket.Conn
	send   chan []byte
}

// Hub authenticates WebSocket connections, tracks them per user and relays
// chat, typing, read, call signalling and notification frames. Delivery is
// fire and forget; the REST API remains the source of truth.
type Hub struct {
	jwtManager *auth.JWTManager
	registry   repository.TokenRegistry
	chat       *service.ChatService
	logger     *slog.Logger

	mu    sync.RWMutex
	conns map[string]map[*conn]struct{}
}

// NewHub creates a hub. BindChat must be called before serving connections.
func NewHub(jwtManager *auth.JWTManager, registry repository.TokenRegistry, logger *slog.Logger) *Hub {
	return &Hub{
		jwtManager: jwtManager,
		registry:   registry,
		logger:     logger,
		conns:      make(map[string]map[*conn]struct{}),
	}
}

// BindChat wires the chat service in after construction. The hub and the chat
// service reference each other, so one side has to be attached late.
func (h *Hub) BindChat(chat *service.ChatService) {
	h.chat = chat
}

// ServeHTTP upgrades /ws-chat?token=... connections.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		middleware.WriteAuthError(w, "token query parameter is required")
		return
	}

	revoked, err := h.registry.IsBlacklisted(r.Context(), token)
	if err != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if revoked {
		middleware.WriteAuthError(w, "token has been revoked")
		return
	}

	claims, err := h.jwtManager.ValidateAccessToken(token)
	if err != nil {
		middleware.WriteAuthError(w, "invalid or expired token")
		return
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket accept failed",
			slog.String("error", err.Error()),
		)
		return
	}

	c := &conn{
		userID: claims.UserID,
		sock:   sock,
		send:   make(chan []byte, sendBufferSize),
	}
	h.register(c)
	defer h.unregister(c)

	h.logger.InfoContext(r.Context(), "websocket connected",
		slog.String("user_id", c.userID),
	)

	go c.writeLoop()
	h.readLoop(r.Context(), c)
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.userID] == nil {
		h.conns[c.userID] = make(map[*conn]struct{})
	}
	h.conns[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	if set, ok := h.conns[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.userID)
		}
	}
	h.mu.Unlock()

	close(c.send)
	_ = c.sock.Close(websocket.StatusNormalClosure, "")
}

// Online reports whether the user has at least one live connection.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

func (c *conn) writeLoop() {
	for data := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.sock.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, c *conn) {
	for {
		_, data, err := c.sock.Read(ctx)
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.sendError(c, "malformed frame")
			continue
		}

		h.dispatch(ctx, c, &frame)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *conn, frame *Frame) {
	switch frame.Type {
	case "message":
		h.handleMessage(ctx, c, frame.Payload)
	case "typing":
		h.handleTyping(ctx, c, frame.Payload)
	case "read":
		h.handleRead(ctx, c, frame.Payload)
	case "call-signal":
		h.handleCallSignal(ctx, c, frame.Payload)
	default:
		h.sendError(c, "unknown frame type "+frame.Type)
	}
}

func (h *Hub) handleMessage(ctx context.Context, c *conn, payload json.RawMessage) {
	var p messagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(c, "malformed message payload")
		return
	}

	msg, err := h.chat.Send(ctx, c.userID, p.RecipientID, p.Text)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	// Echo the stored message so the sender sees the server-assigned ID and
	// timestamp. The recipient gets it through the chat service push.
	h.sendToConn(c, "message", msg)
}

func (h *Hub) handleTyping(ctx context.Context, c *conn, payload json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(c, "malformed typing payload")
		return
	}

	if err := h.chat.VerifyPaired(ctx, c.userID, p.RecipientID); err != nil {
		h.sendError(c, "typing indicator not allowed for this recipient")
		return
	}

	h.push(p.RecipientID, "typing", typingPayload{SenderID: c.userID})
}

func (h *Hub) handleRead(ctx context.Context, c *conn, payload json.RawMessage) {
	var p readPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(c, "malformed read payload")
		return
	}

	// MarkRead pushes the receipt to the peer.
	if _, err := h.chat.MarkRead(ctx, c.userID, p.PeerID); err != nil {
		h.sendError(c, err.Error())
	}
}

func (h *Hub) handleCallSignal(ctx context.Context, c *conn, payload json.RawMessage) {
	var p callSignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(c, "malformed call-signal payload")
		return
	}

	if err := h.chat.VerifyPaired(ctx, c.userID, p.RecipientID); err != nil {
		h.sendError(c, "call signalling not allowed for this recipient")
		return
	}

	h.push(p.RecipientID, "call-signal", callSignalPayload{
		SenderID: c.userID,
		Signal:   p.Signal,
	})
}

// PushMessage delivers a chat message to the recipient's live connections.
func (h *Hub) PushMessage(ctx context.Context, userID string, msg *domain.Message) {
	h.push(userID, "message", msg)
}

// PushRead delivers a read receipt to the peer whose messages were read.
func (h *Hub) PushRead(ctx context.Context, userID, readerID string) {
	h.push(userID, "read", readPayload{ReaderID: readerID})
}

// PushNotification delivers an inbox notification to the user if online.
func (h *Hub) PushNotification(ctx context.Context, userID string, n *domain.Notification) {
	h.push(userID, "notification", n)
}

func (h *Hub) push(userID, frameType string, payload any) {
	data, err := encodeFrame(frameType, payload)
	if err != nil {
		h.logger.Error("failed to encode websocket frame",
			slog.String("type", frameType),
			slog.String("error", err.Error()),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		select {
		case c.send <- data:
		default:
			// Slow consumer, drop the frame rather than block the hub.
			h.logger.Warn("websocket send buffer full, frame dropped",
				slog.String("user_id", userID),
				slog.String("type", frameType),
			)
		}
	}
}

func (h *Hub) sendToConn(c *conn, frameType string, payload any) {
	data, err := encodeFrame(frameType, payload)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) sendError(c *conn, message string) {
	h.sendToConn(c, "error", errorPayload{Message: message})
}

func encodeFrame(frameType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, Payload: raw})
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/ammar1510/spark/internal/chat"
	"github.com/ammar1510/spark/internal/logger"
	"github.com/ammar1510/spark/internal/models"
)

var log = logger.New("websocket")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 64 * 1024
	sendBufferSize = 256
)

// ChatService is what the socket needs from the messaging gate
type ChatService interface {
	Send(ctx context.Context, matchID, senderID, text string) (*models.Match, *models.Message, error)
	Load(ctx context.Context, matchID string) (*models.Match, error)
}

// Client represents a connected websocket client
type Client struct {
	ID     string
	Socket *websocket.Conn
	Send   chan []byte
}

// Manager maintains the set of active clients, one connection per user
type Manager struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.Mutex

	chat           ChatService
	allowedOrigins map[string]bool
}

// InboundMessage is a frame sent by a client
type InboundMessage struct {
	Type     string `json:"type"`
	MatchID  string `json:"match_id"`
	Text     string `json:"text,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// TypingPayload is relayed to the other participant
type TypingPayload struct {
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// ErrorPayload reports a rejected frame back to its sender
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewManager creates a manager. An empty origin list, or one containing
// "*", accepts any origin.
func NewManager(allowedOrigins ...string) *Manager {
	m := &Manager{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			m.allowedOrigins = nil
			break
		}
		if m.allowedOrigins == nil {
			m.allowedOrigins = make(map[string]bool)
		}
		m.allowedOrigins[o] = true
	}
	return m
}

// SetChat wires the messaging gate. Separate from NewManager because the
// gate publishes through the manager.
func (m *Manager) SetChat(c ChatService) {
	m.chat = c
}

// Run starts the websocket manager. It returns once ctx is cancelled,
// closing every connection.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.mutex.Lock()
			for id, client := range m.clients {
				close(client.Send)
				delete(m.clients, id)
			}
			m.mutex.Unlock()
			return
		case client := <-m.register:
			m.mutex.Lock()
			if old, ok := m.clients[client.ID]; ok {
				close(old.Send)
				log.Info("Replacing connection for user %s", client.ID)
			}
			m.clients[client.ID] = client
			m.mutex.Unlock()
			log.Info("Client connected: %s", client.ID)
		case client := <-m.unregister:
			m.mutex.Lock()
			if cur, ok := m.clients[client.ID]; ok && cur == client {
				delete(m.clients, client.ID)
				close(client.Send)
				log.Info("Client disconnected: %s", client.ID)
			}
			m.mutex.Unlock()
		}
	}
}

// IsConnected reports whether userID has a live connection
func (m *Manager) IsConnected(userID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.clients[userID]
	return ok
}

// SendToUser sends a raw frame to a specific user
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	client, ok := m.clients[userID]
	if !ok {
		log.Debug("User %s not connected", userID)
		return
	}
	m.deliverLocked(client, message)
}

// deliverLocked queues a frame, dropping the client when its buffer is full.
// Caller holds the mutex.
func (m *Manager) deliverLocked(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		close(client.Send)
		delete(m.clients, client.ID)
		log.Warn("Send buffer full for user %s, removing client", client.ID)
	}
}

// reply sends a frame to client only while it is still the registered
// connection for its user
func (m *Manager) reply(client *Client, evt models.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error("Failed to marshal %s event: %v", evt.Type, err)
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if cur, ok := m.clients[client.ID]; ok && cur == client {
		m.deliverLocked(client, data)
	}
}

// Publish pushes an event to a user if they are connected
func (m *Manager) Publish(userID string, evt models.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error("Failed to marshal %s event: %v", evt.Type, err)
		return
	}
	m.SendToUser(userID, data)
}

func (m *Manager) checkOrigin(r *http.Request) bool {
	if m.allowedOrigins == nil {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || m.allowedOrigins[origin]
}

// HandleWebSocket upgrades an authenticated request. The auth middleware
// must have set userID.
func (m *Manager) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		log.Warn("No userID in context, rejecting connection from %s", c.Request.RemoteAddr)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		ID:     userID,
		Socket: conn,
		Send:   make(chan []byte, sendBufferSize),
	}

	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return
	}

	go client.readPump(m)
	go client.writePump()
}

// readPump pumps frames from the websocket connection to the manager
func (c *Client) readPump(m *Manager) {
	defer func() {
		select {
		case m.unregister <- c:
		case <-m.done:
		}
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(maxFrameSize)
	c.Socket.SetReadDeadline(time.Now().Add(pongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// one frame per second on average, bursts of 20
	limiter := rate.NewLimiter(rate.Every(time.Second), 20)

	for {
		_, frame, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("Error reading from client %s: %v", c.ID, err)
			} else {
				log.Debug("Client %s closed connection: %v", c.ID, err)
			}
			return
		}

		if !limiter.Allow() {
			log.Warn("Rate limit exceeded for client %s", c.ID)
			m.reply(c, errorEvent("", "Too many frames, slow down"))
			continue
		}

		var in InboundMessage
		if err := json.Unmarshal(frame, &in); err != nil {
			m.reply(c, errorEvent("", "Invalid message format"))
			continue
		}

		m.handleFrame(c, in)
	}
}

func (m *Manager) handleFrame(c *Client, in InboundMessage) {
	if m.chat == nil {
		m.reply(c, errorEvent(in.MatchID, "Chat unavailable"))
		return
	}
	if in.MatchID == "" {
		m.reply(c, errorEvent("", "match_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	switch in.Type {
	case models.EventMessage:
		_, msg, err := m.chat.Send(ctx, in.MatchID, c.ID, in.Text)
		if err != nil {
			m.reply(c, errorEvent(in.MatchID, describe(err)))
			return
		}
		// the gate notifies the other participant, this is the sender's ack
		m.reply(c, models.Event{Type: models.EventMessage, MatchID: in.MatchID, Payload: msg})

	case models.EventTyping:
		match, err := m.chat.Load(ctx, in.MatchID)
		if err != nil || !match.HasParticipant(c.ID) {
			m.reply(c, errorEvent(in.MatchID, "Match not found"))
			return
		}
		m.Publish(match.Other(c.ID), models.Event{
			Type:    models.EventTyping,
			MatchID: in.MatchID,
			Payload: TypingPayload{UserID: c.ID, IsTyping: in.IsTyping},
		})

	default:
		log.Warn("Unknown message type '%s' from client %s", in.Type, c.ID)
		m.reply(c, errorEvent(in.MatchID, "Unknown message type"))
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, chat.ErrChatLocked):
		return "Chat locked until the other person responds"
	case errors.Is(err, chat.ErrNotMember), errors.Is(err, chat.ErrNotFound):
		return "Match not found"
	case errors.Is(err, chat.ErrValidation):
		return err.Error()
	case errors.Is(err, chat.ErrRateLimited):
		return "Too many messages, try again shortly"
	default:
		log.Error("Send failed: %v", err)
		return "Failed to send message"
	}
}

func errorEvent(matchID, msg string) models.Event {
	return models.Event{Type: models.EventError, MatchID: matchID, Payload: ErrorPayload{Error: msg}}
}

// writePump pumps messages from the manager to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The manager closed the channel
				c.Socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one event per frame
			if err := c.Socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

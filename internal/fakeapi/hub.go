package fakeapi

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub tracks live connections by account key and, on the chat namespace,
// by joined conversation.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	rooms   map[uuid.UUID]map[*Client]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		rooms:   make(map[uuid.UUID]map[*Client]struct{}),
	}
}

// Register adds c under its account key.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.key]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.key] = set
	}
	set[c] = struct{}{}
}

// Unregister removes c from the hub and its room, then closes it.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set := h.clients[c.key]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.key)
		}
	}
	h.leaveLocked(c)
	h.mu.Unlock()
	c.Close()
}

// Join moves c into room, leaving any previous one. It returns the room the
// client left, or uuid.Nil.
func (h *Hub) Join(c *Client, room uuid.UUID) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.leaveLocked(c)
	set := h.rooms[room]
	if set == nil {
		set = make(map[*Client]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
	c.room = room
	return prev
}

// Leave removes c from its room and returns it, or uuid.Nil.
func (h *Hub) Leave(c *Client) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(c)
}

func (h *Hub) leaveLocked(c *Client) uuid.UUID {
	room := c.room
	if room == uuid.Nil {
		return uuid.Nil
	}
	if set := h.rooms[room]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	c.room = uuid.Nil
	return room
}

// Room returns the conversation c has joined.
func (h *Hub) Room(c *Client) uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.room
}

// Members returns the connections in room.
func (h *Hub) Members(room uuid.UUID) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		out = append(out, c)
	}
	return out
}

// Send queues payload for every connection of key.
func (h *Hub) Send(key string, payload []byte) bool {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[key]))
	for c := range h.clients[key] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	return h.deliver(targets, payload)
}

// SendEvent encodes one event frame for every connection of key.
func (h *Hub) SendEvent(key, event string, data any) error {
	b, err := frame(event, data)
	if err != nil {
		return err
	}
	h.Send(key, b)
	return nil
}

// Broadcast sends an event to everyone in room except skip.
func (h *Hub) Broadcast(room uuid.UUID, event string, data any, skip *Client) error {
	b, err := frame(event, data)
	if err != nil {
		return err
	}
	var targets []*Client
	for _, c := range h.Members(room) {
		if c != skip {
			targets = append(targets, c)
		}
	}
	h.deliver(targets, b)
	return nil
}

// CloseAll drops every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var all []*Client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.rooms = make(map[uuid.UUID]map[*Client]struct{})
	h.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
}

func (h *Hub) deliver(targets []*Client, payload []byte) bool {
	ok := false
	for _, c := range targets {
		if c.enqueue(payload) {
			ok = true
			continue
		}
		h.Unregister(c)
	}
	return ok
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func frame(event string, data any) ([]byte, error) {
	return json.Marshal(envelope{Event: event, Data: data})
}

// Client is one authenticated websocket connection.
type Client struct {
	key  string
	acct *account
	conn *websocket.Conn
	room uuid.UUID // guarded by Hub.mu

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient wraps an authenticated connection.
func NewClient(a *account, conn *websocket.Conn) *Client {
	return &Client{
		key:  a.key(),
		acct: a,
		conn: conn,
		send: make(chan []byte, 64),
	}
}

// enqueue reports false when the client is closed or its buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close stops the write pump and closes the socket. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// WritePump drains the send queue until Close and pings the peer so the
// read deadline keeps moving on idle connections.
func (c *Client) WritePump(log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("fakeapi: write failed", zap.String("key", c.key), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

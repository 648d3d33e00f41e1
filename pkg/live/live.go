// Package live is the push channel shared by the inbox and the chat desk:
// JSON {"event","data"} frames over a WebSocket, authenticated in-band,
// with a bounded fixed-delay reconnect.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Events every namespace understands.
const (
	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventAuthError     = "auth_error"
)

const (
	DefaultHandshakeTimeout  = 20 * time.Second
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second

	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

var (
	// ErrNotConnected is returned by Emit while no link is up.
	ErrNotConnected = errors.New("live: not connected")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("live: connection closed")
	// ErrAuth is reported when the server answers auth_error.
	ErrAuth = errors.New("live: authentication rejected")
)

// State is the connection state reported to OnState observers.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// Descriptor identifies the session a connection was opened for. It never
// changes for the lifetime of a Conn; handlers compare Generation against
// their owner's current generation to drop events from an old session.
type Descriptor struct {
	UserID     string
	UserType   string
	Generation uint64
}

// Message is the wire frame.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the payload of one event.
type Handler func(d Descriptor, data json.RawMessage)

// Options configures a Conn.
type Options struct {
	URL        string
	Token      string
	Descriptor Descriptor

	HandshakeTimeout  time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	Logger *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.ReconnectAttempts < 0 {
		o.ReconnectAttempts = 0
	} else if o.ReconnectAttempts == 0 {
		o.ReconnectAttempts = DefaultReconnectAttempts
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Conn owns one logical push connection. The underlying WebSocket is held in
// a link that is replaced wholesale on every reconnect.
type Conn struct {
	opts   Options
	log    *zap.Logger
	dialer *websocket.Dialer

	mu       sync.Mutex
	handlers map[string][]Handler
	stateFns []func(State, error)
	started  bool

	cur       atomic.Pointer[link]
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// New builds a Conn. Register handlers with On and OnState, then call Connect.
func New(opts Options) *Conn {
	opts.applyDefaults()
	return &Conn{
		opts: opts,
		log: opts.Logger.With(
			zap.String("url", opts.URL),
			zap.String("user_id", opts.Descriptor.UserID),
			zap.Uint64("generation", opts.Descriptor.Generation),
		),
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		handlers: make(map[string][]Handler),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Descriptor returns the session descriptor the Conn was built with.
func (c *Conn) Descriptor() Descriptor { return c.opts.Descriptor }

// On registers a handler for event. Handlers run on the connection's single
// read goroutine, in arrival order.
func (c *Conn) On(event string, h Handler) {
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], h)
	c.mu.Unlock()
}

// OnState registers a state observer. It runs on the read goroutine.
func (c *Conn) OnState(fn func(State, error)) {
	c.mu.Lock()
	c.stateFns = append(c.stateFns, fn)
	c.mu.Unlock()
}

// Connected reports whether a link is currently up.
func (c *Conn) Connected() bool {
	return c.cur.Load() != nil
}

// Connect performs the first handshake and starts the read loop. A failed
// first dial is returned to the caller and not retried.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("live.Connect: already started")
	}
	c.started = true
	c.mu.Unlock()

	if c.isClosing() {
		close(c.done)
		return fmt.Errorf("live.Connect: %w", ErrClosed)
	}

	l, err := c.dial(ctx)
	if err != nil {
		close(c.done)
		return fmt.Errorf("live.Connect: %w", err)
	}
	c.cur.Store(l)
	if c.isClosing() {
		l.close()
	}
	go c.run(l)
	return nil
}

// Emit sends one event. It does not wait for the frame to be written.
func (c *Conn) Emit(event string, payload any) error {
	if c.isClosing() {
		return ErrClosed
	}
	l := c.cur.Load()
	if l == nil {
		return ErrNotConnected
	}
	frame, err := encode(event, payload)
	if err != nil {
		return fmt.Errorf("live.Emit: %w", err)
	}
	select {
	case <-l.done:
		return ErrNotConnected
	default:
	}
	select {
	case l.send <- frame:
		return nil
	case <-l.done:
		return ErrNotConnected
	default:
		return fmt.Errorf("live.Emit: send buffer full")
	}
}

// Close tears the connection down without reconnecting and waits for the
// read loop to exit. It must not be called from a handler.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closing)
		if l := c.cur.Swap(nil); l != nil {
			l.closeGraceful()
		}
	})
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}

func (c *Conn) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

func (c *Conn) run(l *link) {
	defer close(c.done)
	c.setState(StateConnected, nil)

	for {
		err := c.readLoop(l)
		l.close()
		c.cur.CompareAndSwap(l, nil)

		if c.isClosing() {
			c.setState(StateDisconnected, nil)
			return
		}
		if errors.Is(err, ErrAuth) {
			c.log.Warn("live authentication rejected")
			c.setState(StateFailed, err)
			return
		}
		c.log.Warn("live connection dropped", zap.Error(err))

		next, rerr := c.reconnect(err)
		if rerr != nil {
			if errors.Is(rerr, ErrClosed) {
				c.setState(StateDisconnected, nil)
			} else {
				c.log.Error("live reconnect gave up", zap.Error(rerr))
				c.setState(StateFailed, rerr)
			}
			return
		}
		l = next
		c.setState(StateConnected, nil)
	}
}

func (c *Conn) reconnect(cause error) (*link, error) {
	lastErr := cause
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		c.setState(StateReconnecting, lastErr)

		t := time.NewTimer(c.opts.ReconnectDelay)
		select {
		case <-c.closing:
			t.Stop()
			return nil, ErrClosed
		case <-t.C:
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-c.closing:
				cancel()
			case <-ctx.Done():
			}
		}()
		l, err := c.dial(ctx)
		cancel()
		if err != nil {
			lastErr = err
			c.log.Debug("live reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		c.cur.Store(l)
		if c.isClosing() {
			c.cur.CompareAndSwap(l, nil)
			l.close()
			return nil, ErrClosed
		}
		c.log.Info("live reconnected", zap.Int("attempt", attempt))
		return l, nil
	}
	return nil, fmt.Errorf("live: %d reconnect attempts failed: %w", c.opts.ReconnectAttempts, lastErr)
}

func (c *Conn) dial(ctx context.Context) (*link, error) {
	ws, _, err := c.dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	auth, err := encode(EventAuthenticate, map[string]string{"token": c.opts.Token})
	if err != nil {
		ws.Close() //nolint:errcheck
		return nil, err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, auth); err != nil {
		ws.Close() //nolint:errcheck
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	l := newLink(ws)
	go l.writePump(c.log)
	return l, nil
}

func (c *Conn) readLoop(l *link) error {
	for {
		_, data, err := l.ws.ReadMessage()
		if err != nil {
			return err
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("live: malformed frame", zap.Error(err))
			continue
		}
		if c.isClosing() || c.cur.Load() != l {
			return ErrClosed
		}
		c.dispatch(msg)
		if msg.Event == EventAuthError {
			return ErrAuth
		}
	}
}

func (c *Conn) dispatch(msg Message) {
	c.mu.Lock()
	hs := append([]Handler(nil), c.handlers[msg.Event]...)
	c.mu.Unlock()
	if len(hs) == 0 {
		c.log.Debug("live: unhandled event", zap.String("event", msg.Event))
		return
	}
	for _, h := range hs {
		h(c.opts.Descriptor, msg.Data)
	}
}

func (c *Conn) setState(s State, err error) {
	c.mu.Lock()
	fns := append([]func(State, error){}, c.stateFns...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(s, err)
	}
}

func encode(event string, payload any) ([]byte, error) {
	msg := Message{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", event, err)
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

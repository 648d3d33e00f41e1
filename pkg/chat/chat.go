// Package chat keeps the support desk in sync: the conversation list, the
// joined conversation's transcript, presence, typing indicators and the
// assistant flag.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
	"github.com/naveenspark/folio/pkg/live"
)

var (
	ErrNotConnected       = errors.New("chat: not connected")
	ErrNoConversation     = errors.New("chat: no conversation joined")
	ErrConversationClosed = errors.New("chat: conversation is closed")
	ErrEmptyMessage       = errors.New("chat: message is empty")
	ErrStaffCannotCreate  = errors.New("chat: staff cannot open conversations")
	ErrStaffOnly          = errors.New("chat: staff only")
	ErrNoIdentity         = errors.New("chat: no identity")
)

const (
	DefaultPageSize          = 20
	DefaultMessagePageSize   = 50
	DefaultErrTTL            = 5 * time.Second
	DefaultTypingIdle        = 3 * time.Second
	DefaultTypingExpiry      = 5 * time.Second
	DefaultAssistantDelay    = 5 * time.Second
	DefaultAssistantInterval = 30 * time.Second
)

// API is the subset of the REST client the desk needs.
type API interface {
	ListConversations(ctx context.Context, page, limit int, search, status string) (*domain.Page[domain.Conversation], error)
	GetConversation(ctx context.Context, id string) (*client.ConversationDetail, error)
	CreateConversation(ctx context.Context, subject string) (*domain.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, page, limit int) (*domain.Page[domain.ChatMessage], error)
	CloseConversation(ctx context.Context, id string) error
	ReopenConversation(ctx context.Context, id string) error
	AssistantStatus(ctx context.Context, conversationID string) (*domain.AssistantStatus, error)
}

// Options configures a Desk. Zero durations take the defaults above.
type Options struct {
	// URL is the chat namespace, e.g. ws://host/ws/chat.
	URL string

	PageSize          int
	MessagePageSize   int
	ErrTTL            time.Duration
	TypingIdle        time.Duration
	TypingExpiry      time.Duration
	AssistantDelay    time.Duration
	AssistantInterval time.Duration

	HandshakeTimeout  time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	Logger *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MessagePageSize <= 0 {
		o.MessagePageSize = DefaultMessagePageSize
	}
	if o.ErrTTL <= 0 {
		o.ErrTTL = DefaultErrTTL
	}
	if o.TypingIdle <= 0 {
		o.TypingIdle = DefaultTypingIdle
	}
	if o.TypingExpiry <= 0 {
		o.TypingExpiry = DefaultTypingExpiry
	}
	if o.AssistantDelay <= 0 {
		o.AssistantDelay = DefaultAssistantDelay
	}
	if o.AssistantInterval <= 0 {
		o.AssistantInterval = DefaultAssistantInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// State is an immutable view of the desk.
type State struct {
	Conversations []domain.Conversation
	Pagination    domain.Pagination
	TotalUnread   int

	Current      *domain.Conversation
	Messages     []domain.ChatMessage
	Participants []domain.Participant
	Typing       []domain.Participant

	AssistantActive bool
	Connected       bool
	Loading         bool
	Err             string
}

type query struct {
	search string
	status string
}

type remoteTyping struct {
	who   domain.Participant
	timer *time.Timer
}

// Desk owns one chat connection per logged-in identity.
type Desk struct {
	api  API
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	st         State
	id         domain.Identity
	conn       *live.Conn
	connecting bool
	gen        uint64
	failedGen  uint64
	last       query

	typing    map[domain.ParticipantKey]*remoteTyping
	typingOut *time.Timer
	typingLim *rate.Limiter

	stopPoll       chan struct{}
	assistantTimer *time.Timer
	errTimer       *time.Timer

	changes chan struct{}
}

// New creates an idle desk. Call Start once an identity is known.
func New(api API, opts Options) *Desk {
	opts.applyDefaults()
	return &Desk{
		api:       api,
		opts:      opts,
		log:       opts.Logger.Named("chat"),
		typing:    make(map[domain.ParticipantKey]*remoteTyping),
		typingLim: newTypingLimiter(),
		changes:   make(chan struct{}, 1),
	}
}

// Start binds the desk to id and opens the chat connection. A second call
// while a connection is being opened or is open does nothing. REST actions
// work even when the connection fails.
func (d *Desk) Start(ctx context.Context, id domain.Identity, token string) error {
	d.mu.Lock()
	if d.conn != nil || d.connecting {
		d.mu.Unlock()
		return nil
	}
	d.connecting = true
	d.gen++
	gen := d.gen
	d.id = id
	d.mu.Unlock()

	conn := live.New(live.Options{
		URL:               d.opts.URL,
		Token:             token,
		Descriptor:        live.Descriptor{UserID: id.UserID(), UserType: id.UserType(), Generation: gen},
		HandshakeTimeout:  d.opts.HandshakeTimeout,
		ReconnectAttempts: d.opts.ReconnectAttempts,
		ReconnectDelay:    d.opts.ReconnectDelay,
		Logger:            d.log,
	})
	for event, h := range d.handlers() {
		conn.On(event, h)
	}
	conn.OnState(d.onState(gen))

	err := conn.Connect(ctx)

	d.mu.Lock()
	d.connecting = false
	if gen != d.gen {
		d.mu.Unlock()
		conn.Close()
		return nil
	}
	if err != nil {
		d.setErrLocked("chat: " + err.Error())
		d.mu.Unlock()
		d.notify()
		return fmt.Errorf("chat.Start: %w", err)
	}
	if d.failedGen == gen {
		// failed before Start returned; leave the slot free for a retry
		d.mu.Unlock()
		return nil
	}
	d.conn = conn
	d.st.Connected = conn.Connected()
	if domain.IsCustomer(id) {
		d.stopPoll = make(chan struct{})
		go d.pollAssistant(gen, d.stopPoll)
	}
	d.mu.Unlock()
	d.notify()
	return nil
}

// Stop closes the connection, then clears every piece of local state.
func (d *Desk) Stop() {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.connecting = false
	d.gen++
	if d.stopPoll != nil {
		close(d.stopPoll)
		d.stopPoll = nil
	}
	d.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	d.mu.Lock()
	d.stopTimersLocked()
	if d.errTimer != nil {
		d.errTimer.Stop()
		d.errTimer = nil
	}
	if d.assistantTimer != nil {
		d.assistantTimer.Stop()
		d.assistantTimer = nil
	}
	d.st = State{}
	d.id = nil
	d.last = query{}
	d.mu.Unlock()
	d.notify()
}

// Identity returns the identity the desk is bound to, or nil.
func (d *Desk) Identity() domain.Identity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// Snapshot returns a copy of the current state.
func (d *Desk) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.st
	st.Conversations = append([]domain.Conversation(nil), d.st.Conversations...)
	st.Messages = append([]domain.ChatMessage(nil), d.st.Messages...)
	st.Participants = append([]domain.Participant(nil), d.st.Participants...)
	st.Typing = append([]domain.Participant(nil), d.st.Typing...)
	if d.st.Current != nil {
		cur := *d.st.Current
		st.Current = &cur
	}
	return st
}

// Changes signals after every state change. Signals coalesce.
func (d *Desk) Changes() <-chan struct{} { return d.changes }

func (d *Desk) connectedLocked() bool {
	return d.conn != nil && d.conn.Connected()
}

func (d *Desk) emitLocked(event string, payload any) error {
	if d.conn == nil {
		return ErrNotConnected
	}
	if err := d.conn.Emit(event, payload); err != nil {
		if errors.Is(err, live.ErrNotConnected) || errors.Is(err, live.ErrClosed) {
			return ErrNotConnected
		}
		return err
	}
	return nil
}

func (d *Desk) onState(gen uint64) func(live.State, error) {
	return func(s live.State, err error) {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.st.Connected = s == live.StateConnected
		switch s {
		case live.StateReconnecting:
			d.setErrLocked("chat: connection lost, reconnecting")
		case live.StateFailed:
			msg := "chat: connection failed"
			if err != nil {
				msg += ": " + err.Error()
			}
			d.setErrLocked(msg)
			// a later Start may dial again
			d.failedGen = gen
			if dead := d.conn; dead != nil {
				d.conn = nil
				go dead.Close()
			}
			if d.stopPoll != nil {
				close(d.stopPoll)
				d.stopPoll = nil
			}
		}
		d.mu.Unlock()
		d.notify()
	}
}

func (d *Desk) apply(gen uint64, fn func(st *State)) bool {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return false
	}
	fn(&d.st)
	d.mu.Unlock()
	d.notify()
	return true
}

func (d *Desk) current() (domain.Identity, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id, d.gen
}

func (d *Desk) fail(op string, err error) error {
	d.mu.Lock()
	d.setErrLocked(err.Error())
	d.mu.Unlock()
	d.notify()
	return fmt.Errorf("%s: %w", op, err)
}

// setErrLocked shows msg and clears it after ErrTTL unless replaced.
func (d *Desk) setErrLocked(msg string) {
	d.st.Err = msg
	if d.errTimer != nil {
		d.errTimer.Stop()
	}
	gen := d.gen
	d.errTimer = time.AfterFunc(d.opts.ErrTTL, func() {
		d.mu.Lock()
		if d.gen != gen || d.st.Err != msg {
			d.mu.Unlock()
			return
		}
		d.st.Err = ""
		d.mu.Unlock()
		d.notify()
	})
}

func (d *Desk) notify() {
	select {
	case d.changes <- struct{}{}:
	default:
	}
}

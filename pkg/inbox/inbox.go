// Package inbox keeps a live mirror of the caller's notification inbox.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
	"github.com/naveenspark/folio/pkg/live"
)

// Push events on the notifications namespace.
const (
	EventUnread   = "notifications:unread"
	EventNew      = "notification:new"
	EventRead     = "notification:read"
	EventAllRead  = "notifications:all_read"
	EventDeleted  = "notification:deleted"
	EventCleared  = "notifications:cleared"
	DefaultErrTTL = 5 * time.Second
)

// API is the subset of the REST client the inbox needs.
type API interface {
	ListNotifications(ctx context.Context, page, limit int, unreadOnly bool) (*client.NotificationPage, error)
	MarkNotificationRead(ctx context.Context, id string) (*client.UnreadCount, error)
	MarkAllNotificationsRead(ctx context.Context) (*client.UnreadCount, error)
	DeleteNotification(ctx context.Context, id string) error
	ClearNotifications(ctx context.Context, onlyRead bool) (*client.UnreadCount, error)
}

// Alerter raises a desktop notification.
type Alerter interface {
	Alert(n domain.Notification) error
}

// Options configures an Inbox.
type Options struct {
	// URL is the notifications namespace, e.g. ws://host/ws/notifications.
	URL string
	// Alerts enables the Alerter for notification:new.
	Alerts  bool
	Alerter Alerter
	// ErrTTL is how long a connection error stays visible.
	ErrTTL time.Duration

	HandshakeTimeout  time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	Logger *zap.Logger
}

// State is an immutable view of the inbox.
type State struct {
	Notifications []domain.Notification
	Unread        int
	Pagination    domain.Pagination
	Connected     bool
	Loading       bool
	Err           string
}

// Inbox owns one notifications connection per logged-in identity.
type Inbox struct {
	api  API
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	st         State
	conn       *live.Conn
	connecting bool
	gen        uint64
	failedGen  uint64
	errTimer   *time.Timer

	changes chan struct{}
}

// New creates an idle inbox. Call Start once an identity is known.
func New(api API, opts Options) *Inbox {
	if opts.ErrTTL <= 0 {
		opts.ErrTTL = DefaultErrTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Inbox{
		api:     api,
		opts:    opts,
		log:     opts.Logger.Named("inbox"),
		changes: make(chan struct{}, 1),
	}
}

// Start opens the notifications connection for id. A second call while a
// connection is being opened or is open does nothing.
func (i *Inbox) Start(ctx context.Context, id domain.Identity, token string) error {
	i.mu.Lock()
	if i.conn != nil || i.connecting {
		i.mu.Unlock()
		return nil
	}
	i.connecting = true
	i.gen++
	gen := i.gen
	i.mu.Unlock()

	conn := live.New(live.Options{
		URL:               i.opts.URL,
		Token:             token,
		Descriptor:        live.Descriptor{UserID: id.UserID(), UserType: id.UserType(), Generation: gen},
		HandshakeTimeout:  i.opts.HandshakeTimeout,
		ReconnectAttempts: i.opts.ReconnectAttempts,
		ReconnectDelay:    i.opts.ReconnectDelay,
		Logger:            i.log,
	})
	for event, h := range i.handlers() {
		conn.On(event, h)
	}
	conn.OnState(i.onState(gen))

	err := conn.Connect(ctx)

	i.mu.Lock()
	i.connecting = false
	if gen != i.gen {
		// stopped while connecting
		i.mu.Unlock()
		conn.Close()
		return nil
	}
	if err != nil {
		i.setErrLocked("notifications: " + err.Error())
		i.mu.Unlock()
		i.notify()
		return fmt.Errorf("inbox.Start: %w", err)
	}
	if i.failedGen == gen {
		// failed before Start returned; leave the slot free for a retry
		i.mu.Unlock()
		return nil
	}
	i.conn = conn
	i.st.Connected = conn.Connected()
	i.mu.Unlock()
	i.notify()
	return nil
}

// Stop closes the connection, then resets local state.
func (i *Inbox) Stop() {
	i.mu.Lock()
	conn := i.conn
	i.conn = nil
	i.connecting = false
	i.gen++
	i.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	i.mu.Lock()
	if i.errTimer != nil {
		i.errTimer.Stop()
		i.errTimer = nil
	}
	i.st = State{}
	i.mu.Unlock()
	i.notify()
}

// Snapshot returns a copy of the current state.
func (i *Inbox) Snapshot() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	st := i.st
	st.Notifications = append([]domain.Notification(nil), i.st.Notifications...)
	return st
}

// Changes signals after every state change. Signals coalesce.
func (i *Inbox) Changes() <-chan struct{} { return i.changes }

// --- actions ---

// MarkAsRead marks one notification read.
func (i *Inbox) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	res, err := i.api.MarkNotificationRead(ctx, id.String())
	if err != nil {
		return i.fail("inbox.MarkAsRead", err)
	}
	i.apply(func(st *State) {
		markRead(st, id)
		applyUnreadCount(st, res)
	})
	return nil
}

// MarkAllAsRead marks every notification read.
func (i *Inbox) MarkAllAsRead(ctx context.Context) error {
	res, err := i.api.MarkAllNotificationsRead(ctx)
	if err != nil {
		return i.fail("inbox.MarkAllAsRead", err)
	}
	i.apply(func(st *State) {
		markAllRead(st)
		applyUnreadCount(st, res)
	})
	return nil
}

// DeleteOne deletes one notification.
func (i *Inbox) DeleteOne(ctx context.Context, id uuid.UUID) error {
	if err := i.api.DeleteNotification(ctx, id.String()); err != nil {
		return i.fail("inbox.DeleteOne", err)
	}
	i.apply(func(st *State) { removeNotification(st, id) })
	return nil
}

// ClearAll deletes every notification, or only the read ones.
func (i *Inbox) ClearAll(ctx context.Context, onlyRead bool) error {
	res, err := i.api.ClearNotifications(ctx, onlyRead)
	if err != nil {
		return i.fail("inbox.ClearAll", err)
	}
	i.apply(func(st *State) {
		clearNotifications(st, onlyRead)
		applyUnreadCount(st, res)
	})
	return nil
}

// LoadPage fetches one page of the inbox over REST.
func (i *Inbox) LoadPage(ctx context.Context, page, pageSize int, unreadOnly bool) error {
	i.apply(func(st *State) { st.Loading = true })
	p, err := i.api.ListNotifications(ctx, page, pageSize, unreadOnly)
	if err != nil {
		i.apply(func(st *State) { st.Loading = false })
		return i.fail("inbox.LoadPage", err)
	}
	i.apply(func(st *State) {
		st.Loading = false
		applyPage(st, p)
	})
	return nil
}

// --- push handlers ---

type idPayload struct {
	ID uuid.UUID `json:"id"`
}

type clearedPayload struct {
	OnlyRead bool `json:"onlyRead"`
}

func (i *Inbox) handlers() map[string]live.Handler {
	return map[string]live.Handler{
		live.EventAuthenticated: i.guard(func(_ *State, _ json.RawMessage) error {
			i.log.Debug("notifications authenticated")
			return nil
		}),
		live.EventAuthError: i.guard(func(st *State, data json.RawMessage) error {
			i.setErrLocked("notifications: authentication rejected")
			return nil
		}),
		EventUnread: i.guard(func(st *State, data json.RawMessage) error {
			var snap domain.UnreadSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return err
			}
			applySnapshot(st, snap)
			return nil
		}),
		EventNew: i.onNew,
		EventRead: i.guard(func(st *State, data json.RawMessage) error {
			var p idPayload
			if err := json.Unmarshal(data, &p); err != nil {
				return err
			}
			markRead(st, p.ID)
			return nil
		}),
		EventAllRead: i.guard(func(st *State, _ json.RawMessage) error {
			markAllRead(st)
			return nil
		}),
		EventDeleted: i.guard(func(st *State, data json.RawMessage) error {
			var p idPayload
			if err := json.Unmarshal(data, &p); err != nil {
				return err
			}
			removeNotification(st, p.ID)
			return nil
		}),
		EventCleared: i.guard(func(st *State, data json.RawMessage) error {
			var p clearedPayload
			if len(data) > 0 {
				if err := json.Unmarshal(data, &p); err != nil {
					return err
				}
			}
			clearNotifications(st, p.OnlyRead)
			return nil
		}),
	}
}

func (i *Inbox) onNew(d live.Descriptor, data json.RawMessage) {
	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		i.log.Warn("bad notification:new payload", zap.Error(err))
		return
	}
	i.mu.Lock()
	if d.Generation != i.gen {
		i.mu.Unlock()
		return
	}
	added := addNotification(&i.st, n)
	i.mu.Unlock()
	i.notify()

	if added && i.opts.Alerts && i.opts.Alerter != nil {
		if err := i.opts.Alerter.Alert(n); err != nil {
			i.log.Debug("desktop alert failed", zap.Error(err))
		}
	}
}

// guard wraps a reducer so it only runs for the current generation.
func (i *Inbox) guard(fn func(st *State, data json.RawMessage) error) live.Handler {
	return func(d live.Descriptor, data json.RawMessage) {
		i.mu.Lock()
		if d.Generation != i.gen {
			i.mu.Unlock()
			i.log.Debug("dropping event from closed session", zap.Uint64("generation", d.Generation))
			return
		}
		err := fn(&i.st, data)
		i.mu.Unlock()
		if err != nil {
			i.log.Warn("bad push payload", zap.Error(err))
			return
		}
		i.notify()
	}
}

func (i *Inbox) onState(gen uint64) func(live.State, error) {
	return func(s live.State, err error) {
		i.mu.Lock()
		if gen != i.gen {
			i.mu.Unlock()
			return
		}
		i.st.Connected = s == live.StateConnected
		switch s {
		case live.StateReconnecting:
			i.setErrLocked("notifications: connection lost, reconnecting")
		case live.StateFailed:
			msg := "notifications: connection failed"
			if err != nil {
				msg += ": " + err.Error()
			}
			i.setErrLocked(msg)
			// a later Start may dial again
			i.failedGen = gen
			if dead := i.conn; dead != nil {
				i.conn = nil
				go dead.Close()
			}
		}
		i.mu.Unlock()
		i.notify()
	}
}

func (i *Inbox) apply(fn func(st *State)) {
	i.mu.Lock()
	fn(&i.st)
	i.mu.Unlock()
	i.notify()
}

func (i *Inbox) fail(op string, err error) error {
	i.mu.Lock()
	i.setErrLocked(err.Error())
	i.mu.Unlock()
	i.notify()
	return fmt.Errorf("%s: %w", op, err)
}

// setErrLocked shows msg and clears it after ErrTTL unless replaced.
func (i *Inbox) setErrLocked(msg string) {
	i.st.Err = msg
	if i.errTimer != nil {
		i.errTimer.Stop()
	}
	gen := i.gen
	i.errTimer = time.AfterFunc(i.opts.ErrTTL, func() {
		i.mu.Lock()
		if i.gen != gen || i.st.Err != msg {
			i.mu.Unlock()
			return
		}
		i.st.Err = ""
		i.mu.Unlock()
		i.notify()
	})
}

func (i *Inbox) notify() {
	select {
	case i.changes <- struct{}{}:
	default:
	}
}

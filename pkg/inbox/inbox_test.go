package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
	"github.com/naveenspark/folio/pkg/live"
)

type fakeAPI struct {
	mu     sync.Mutex
	calls  []string
	err    error
	page   *client.NotificationPage
	unread int
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeAPI) ListNotifications(_ context.Context, page, limit int, unreadOnly bool) (*client.NotificationPage, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	return f.page, nil
}

func (f *fakeAPI) MarkNotificationRead(_ context.Context, id string) (*client.UnreadCount, error) {
	if err := f.record("read " + id); err != nil {
		return nil, err
	}
	return &client.UnreadCount{UnreadCount: f.unread}, nil
}

func (f *fakeAPI) MarkAllNotificationsRead(context.Context) (*client.UnreadCount, error) {
	if err := f.record("read-all"); err != nil {
		return nil, err
	}
	return &client.UnreadCount{}, nil
}

func (f *fakeAPI) DeleteNotification(_ context.Context, id string) error {
	return f.record("delete " + id)
}

func (f *fakeAPI) ClearNotifications(_ context.Context, onlyRead bool) (*client.UnreadCount, error) {
	if err := f.record("clear"); err != nil {
		return nil, err
	}
	return &client.UnreadCount{}, nil
}

type alertRecorder struct {
	mu     sync.Mutex
	titles []string
}

func (a *alertRecorder) Alert(n domain.Notification) error {
	a.mu.Lock()
	a.titles = append(a.titles, n.Title)
	a.mu.Unlock()
	return nil
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// pushed returns the handler table bound to the inbox's current generation.
func pushed(t *testing.T, i *Inbox) (map[string]live.Handler, live.Descriptor) {
	t.Helper()
	i.mu.Lock()
	i.gen++
	d := live.Descriptor{UserID: "u1", UserType: domain.UserTypeStaff, Generation: i.gen}
	i.mu.Unlock()
	return i.handlers(), d
}

func TestPush_NewAlertsOncePerID(t *testing.T) {
	alerts := &alertRecorder{}
	i := New(&fakeAPI{}, Options{Alerts: true, Alerter: alerts})
	h, d := pushed(t, i)

	n := note(uuid.New(), 1, false)
	h[EventNew](d, mustJSON(t, n))
	h[EventNew](d, mustJSON(t, n))

	st := i.Snapshot()
	assert.Len(t, st.Notifications, 1)
	assert.Equal(t, 1, st.Unread)
	assert.Equal(t, []string{n.Title}, alerts.titles)
}

func TestPush_AlertsDisabled(t *testing.T) {
	alerts := &alertRecorder{}
	i := New(&fakeAPI{}, Options{Alerter: alerts})
	h, d := pushed(t, i)

	h[EventNew](d, mustJSON(t, note(uuid.New(), 1, false)))
	assert.Empty(t, alerts.titles)
}

func TestPush_ReadDeleteCleared(t *testing.T) {
	i := New(&fakeAPI{}, Options{})
	h, d := pushed(t, i)

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	h[EventUnread](d, mustJSON(t, domain.UnreadSnapshot{
		Notifications: []domain.Notification{note(a, 1, false), note(b, 2, false), note(c, 3, false)},
		Count:         3,
	}))
	require.Equal(t, 3, i.Snapshot().Unread)

	h[EventRead](d, mustJSON(t, map[string]any{"id": a}))
	h[EventRead](d, mustJSON(t, map[string]any{"id": a}))
	assert.Equal(t, 2, i.Snapshot().Unread)

	h[EventDeleted](d, mustJSON(t, map[string]any{"id": a}))
	assert.Equal(t, 2, i.Snapshot().Unread, "deleting a read item")

	h[EventDeleted](d, mustJSON(t, map[string]any{"id": b}))
	assert.Equal(t, 1, i.Snapshot().Unread, "deleting an unread item")

	h[EventAllRead](d, nil)
	assert.Equal(t, 0, i.Snapshot().Unread)

	h[EventCleared](d, mustJSON(t, map[string]any{"onlyRead": true}))
	assert.Empty(t, i.Snapshot().Notifications)
}

func TestPush_StaleGenerationDropped(t *testing.T) {
	i := New(&fakeAPI{}, Options{})
	h, old := pushed(t, i)
	_, _ = pushed(t, i) // a newer session

	h[EventNew](old, mustJSON(t, note(uuid.New(), 1, false)))
	h[EventUnread](old, mustJSON(t, domain.UnreadSnapshot{Count: 9}))

	st := i.Snapshot()
	assert.Empty(t, st.Notifications)
	assert.Equal(t, 0, st.Unread)
}

func TestMarkAsRead_ReconcilesWithEcho(t *testing.T) {
	api := &fakeAPI{}
	i := New(api, Options{})
	h, d := pushed(t, i)

	a := uuid.New()
	h[EventNew](d, mustJSON(t, note(a, 1, false)))

	require.NoError(t, i.MarkAsRead(context.Background(), a))
	assert.Equal(t, 0, i.Snapshot().Unread, "REST success applied locally")

	h[EventRead](d, mustJSON(t, map[string]any{"id": a}))
	assert.Equal(t, 0, i.Snapshot().Unread, "echo is a no-op")
	assert.Equal(t, []string{"read " + a.String()}, api.calls)
}

func TestMarkAsRead_TakesServerCount(t *testing.T) {
	api := &fakeAPI{unread: 4}
	i := New(api, Options{})
	h, d := pushed(t, i)
	h[EventUnread](d, mustJSON(t, domain.UnreadSnapshot{Count: 5}))
	require.Equal(t, 5, i.Snapshot().Unread)

	// not in the loaded window, so only the server knows it went read
	require.NoError(t, i.MarkAsRead(context.Background(), uuid.New()))
	assert.Equal(t, 4, i.Snapshot().Unread)

	api.unread = -3
	require.NoError(t, i.MarkAsRead(context.Background(), uuid.New()))
	assert.Equal(t, 0, i.Snapshot().Unread)
}

func TestDeleteOne_Reconciles(t *testing.T) {
	i := New(&fakeAPI{}, Options{})
	h, d := pushed(t, i)

	a := uuid.New()
	h[EventNew](d, mustJSON(t, note(a, 1, false)))
	require.NoError(t, i.DeleteOne(context.Background(), a))
	h[EventDeleted](d, mustJSON(t, map[string]any{"id": a}))

	st := i.Snapshot()
	assert.Empty(t, st.Notifications)
	assert.Equal(t, 0, st.Unread)
}

func TestActionError_SetsTransientErr(t *testing.T) {
	api := &fakeAPI{err: errors.New("server unreachable")}
	i := New(api, Options{ErrTTL: 50 * time.Millisecond})

	err := i.MarkAllAsRead(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inbox.MarkAllAsRead")
	assert.Equal(t, "server unreachable", i.Snapshot().Err)

	require.Eventually(t, func() bool { return i.Snapshot().Err == "" }, time.Second, 10*time.Millisecond)
}

func TestLoadPage(t *testing.T) {
	a := uuid.New()
	api := &fakeAPI{page: &client.NotificationPage{
		Items:       []domain.Notification{note(a, 1, false)},
		Pagination:  domain.Pagination{Page: 1, Limit: 20, Total: 1, Pages: 1},
		UnreadCount: 1,
	}}
	i := New(api, Options{})

	require.NoError(t, i.LoadPage(context.Background(), 1, 20, false))
	st := i.Snapshot()
	assert.False(t, st.Loading)
	assert.Equal(t, 1, st.Unread)
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, a, st.Notifications[0].ID)
}

func TestStop_ResetsState(t *testing.T) {
	i := New(&fakeAPI{}, Options{})
	h, d := pushed(t, i)
	h[EventNew](d, mustJSON(t, note(uuid.New(), 1, false)))

	i.Stop()
	assert.Empty(t, i.Snapshot().Notifications)

	// late event from the stopped session
	h[EventNew](d, mustJSON(t, note(uuid.New(), 2, false)))
	assert.Empty(t, i.Snapshot().Notifications)
}

func TestChanges_Coalesce(t *testing.T) {
	i := New(&fakeAPI{}, Options{})
	h, d := pushed(t, i)
	for n := 0; n < 5; n++ {
		h[EventNew](d, mustJSON(t, note(uuid.New(), n, false)))
	}
	select {
	case <-i.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-i.Changes():
		t.Fatal("signals should coalesce")
	default:
	}
}

// rejectOnce serves a notifications namespace that refuses the first
// authenticate frame and accepts every later one.
func rejectOnce(t *testing.T) (string, *atomic.Int32) {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close() //nolint:errcheck
		var msg live.Message
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		if dials.Add(1) == 1 {
			_ = ws.WriteJSON(live.Message{Event: live.EventAuthError})
			return
		}
		for {
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &dials
}

func TestStart_ConnectedOnReturnAndRedialAfterFailure(t *testing.T) {
	url, dials := rejectOnce(t)
	i := New(&fakeAPI{}, Options{URL: url})
	t.Cleanup(i.Stop)
	staff := domain.StaffIdentity{Profile: domain.Profile{ID: "s-1"}, Role: domain.RoleAdmin}

	require.NoError(t, i.Start(context.Background(), staff, "stale"))
	require.Eventually(t, func() bool {
		i.mu.Lock()
		defer i.mu.Unlock()
		return i.conn == nil && !i.connecting
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, i.Snapshot().Connected)
	assert.Contains(t, i.Snapshot().Err, "connection failed")

	require.NoError(t, i.Start(context.Background(), staff, "fresh"))
	assert.True(t, i.Snapshot().Connected)
	require.Eventually(t, func() bool { return dials.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

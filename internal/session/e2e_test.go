package session_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/folio/internal/fakeapi"
	"github.com/naveenspark/folio/internal/session"
	"github.com/naveenspark/folio/internal/store"
	"github.com/naveenspark/folio/pkg/chat"
	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
	"github.com/naveenspark/folio/pkg/inbox"
)

type rig struct {
	base  string
	store *store.Store
	api   *client.Client
	inbox *inbox.Inbox
	desk  *chat.Desk
	mgr   *session.Manager
}

func newRig(t *testing.T) *rig {
	t.Helper()
	srv, err := fakeapi.New(fakeapi.Options{JWTKey: "e2e"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	st, err := store.Open(filepath.Join(t.TempDir(), "session"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ws := "ws" + strings.TrimPrefix(ts.URL, "http")
	api := client.New(ts.URL, st)
	r := &rig{
		base:  ts.URL,
		store: st,
		api:   api,
		inbox: inbox.New(api, inbox.Options{URL: ws + "/ws/notifications", ReconnectAttempts: -1}),
		desk:  chat.New(api, chat.Options{URL: ws + "/ws/chat", ReconnectAttempts: -1}),
	}
	r.mgr = session.NewManager(api, st, nil, r.inbox, r.desk)
	api.OnUnauthorized(r.mgr.Expire)
	t.Cleanup(func() { r.mgr.Logout(context.Background()) })
	return r
}

func TestE2E_LoginStartsLiveAndLogoutTearsDown(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()

	require.NoError(t, r.mgr.Login(ctx, fakeapi.SeedClientEmail, fakeapi.SeedClientPassword, domain.UserTypeClient))
	assert.Equal(t, session.Authenticated, r.mgr.State().Status)
	assert.NotEmpty(t, r.store.AccessToken())

	require.Eventually(t, func() bool {
		st := r.inbox.Snapshot()
		return st.Connected && st.Unread == 1
	}, 5*time.Second, 10*time.Millisecond, "unread snapshot arrives after authenticate")
	require.Eventually(t, func() bool { return r.desk.Snapshot().Connected }, 5*time.Second, 10*time.Millisecond)

	r.mgr.Logout(ctx)
	assert.Equal(t, session.Unauthenticated, r.mgr.State().Status)
	assert.False(t, r.inbox.Snapshot().Connected)
	assert.Empty(t, r.inbox.Snapshot().Notifications)
	assert.Nil(t, r.desk.Identity())
	_, err := r.store.Load()
	assert.ErrorIs(t, err, store.ErrNoCredentials)

	// Events for the old session must not resurrect state.
	admin := client.New(r.base, nil)
	creds, err := admin.Login(ctx, client.LoginRequest{Email: fakeapi.SeedAdminEmail, Password: fakeapi.SeedAdminPassword, UserType: domain.UserTypeStaff})
	require.NoError(t, err)
	admin = client.New(r.base, client.StaticToken(creds.AccessToken))
	page, err := admin.ListInvoices(ctx, client.InvoiceFilter{Status: domain.InvoiceSent})
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	_, err = admin.UpdateInvoiceStatus(ctx, page.Items[0].ID.String(), domain.InvoicePaid)
	require.NoError(t, err)

	assert.Never(t, func() bool { return len(r.inbox.Snapshot().Notifications) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestE2E_RevokedTokenExpiresSession(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	require.NoError(t, r.mgr.Login(ctx, fakeapi.SeedAdminEmail, fakeapi.SeedAdminPassword, domain.UserTypeStaff))

	// Revoke the token behind the manager's back.
	require.NoError(t, client.New(r.base, client.StaticToken(r.store.AccessToken())).Logout(ctx))

	_, err := r.api.ListClients(ctx, 1, 20, "")
	require.True(t, client.IsUnauthorized(err))

	require.Eventually(t, func() bool { return r.mgr.State().Status == session.Unauthenticated }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, session.ErrSessionExpired, r.mgr.State().Err)
	assert.Empty(t, r.store.AccessToken())
}

func TestE2E_BootRestoresSession(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	require.NoError(t, r.mgr.Login(ctx, fakeapi.SeedComptableEmail, fakeapi.SeedComptablePass, domain.UserTypeStaff))

	fresh := session.NewManager(r.api, r.store, nil)
	require.NoError(t, fresh.Boot(ctx))
	st := fresh.State()
	require.Equal(t, session.Authenticated, st.Status)
	assert.True(t, domain.HasRole(st.Identity, domain.RoleComptable))
}

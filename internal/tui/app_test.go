package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/internal/session"
	"github.com/naveenspark/folio/pkg/domain"
)

var (
	testAdmin = domain.StaffIdentity{
		Profile: domain.Profile{ID: "u-admin", Email: "admin@folio.test", FirstName: "Claire", LastName: "Martin", Role: domain.RoleAdmin},
		Role:    domain.RoleAdmin,
	}
	testComptable = domain.StaffIdentity{
		Profile: domain.Profile{ID: "u-compta", Email: "compta@folio.test", FirstName: "Hugo", Role: domain.RoleComptable},
		Role:    domain.RoleComptable,
	}
	testCustomer = domain.CustomerIdentity{
		Profile:    domain.Profile{ID: "u-client", Email: "client@folio.test", FirstName: "Ana", LastName: "Diaz"},
		ClientCode: "CL-0001",
	}
)

func newTestApp() App {
	a := NewApp(Deps{})
	a.width = 100
	a.height = 30
	return a
}

func signedInApp(t *testing.T, id domain.Identity) App {
	t.Helper()
	model, _ := newTestApp().Update(sessionMsg{st: session.State{Status: session.Authenticated, Identity: id}})
	return model.(App)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabsFor(t *testing.T) {
	tests := []struct {
		name string
		id   domain.Identity
		want []view
	}{
		{"admin", testAdmin, []view{viewInvoices, viewClients, viewUsers, viewRequests, viewNotifications, viewChat, viewProfile}},
		{"comptable", testComptable, []view{viewInvoices, viewClients, viewNotifications, viewChat, viewProfile}},
		{"customer", testCustomer, []view{viewMyInvoices, viewNotifications, viewChat, viewProfile}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tabsFor(tc.id)
			if len(got) != len(tc.want) {
				t.Fatalf("tabsFor(%s) = %v, want %v", tc.name, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("tab %d = %s, want %s", i, viewNames[got[i]], viewNames[tc.want[i]])
				}
			}
		})
	}
}

func TestAppStartsOnLogin(t *testing.T) {
	a := newTestApp()
	out := a.View()
	if !strings.Contains(out, "Sign in") {
		t.Errorf("expected login form, got:\n%s", out)
	}
}

func TestAppSessionOpensFirstTab(t *testing.T) {
	a := signedInApp(t, testCustomer)
	if a.view != viewMyInvoices {
		t.Errorf("view = %s, want My invoices", viewNames[a.view])
	}
	out := a.View()
	for _, want := range []string{"My invoices", "Notifications", "Chat", "Profile", "CL-0001"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(out, "Clients") {
		t.Error("customer should not see the Clients tab")
	}
}

func TestAppTabSwitching(t *testing.T) {
	tests := []struct {
		key      string
		wantView view
	}{
		{"2", viewClients},
		{"3", viewUsers},
		{"4", viewRequests},
		{"5", viewNotifications},
		{"7", viewProfile},
		{"9", viewInvoices},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			a := signedInApp(t, testAdmin)
			model, _ := a.Update(key(tc.key))
			if got := model.(App).view; got != tc.wantView {
				t.Errorf("after key %q: view = %s, want %s", tc.key, viewNames[got], viewNames[tc.wantView])
			}
		})
	}
}

func TestAppTabKeyCycles(t *testing.T) {
	a := signedInApp(t, testCustomer)
	for _, want := range []view{viewNotifications, viewChat} {
		model, _ := a.Update(key("tab"))
		a = model.(App)
		if a.view != want {
			t.Fatalf("view = %s, want %s", viewNames[a.view], viewNames[want])
		}
	}
}

func TestAppGlobalQuitOnQ(t *testing.T) {
	a := signedInApp(t, testAdmin)
	_, cmd := a.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command on 'q', got nil")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestAppEditingSwallowsGlobalKeys(t *testing.T) {
	a := signedInApp(t, testAdmin)
	model, _ := a.Update(key("n")) // open the new-invoice form
	a = model.(App)
	if a.invoices.form == nil {
		t.Fatal("expected new invoice form")
	}
	model, cmd := a.Update(key("q"))
	a = model.(App)
	if cmd != nil {
		if _, ok := cmd().(tea.QuitMsg); ok {
			t.Fatal("q quit while a form was open")
		}
	}
	if got := a.invoices.form.fields[0].value; got != "q" {
		t.Errorf("client field = %q, want %q", got, "q")
	}
}

func TestAppHelpOverlay(t *testing.T) {
	a := signedInApp(t, testAdmin)
	model, _ := a.Update(key("h"))
	a = model.(App)
	if !a.helpOpen {
		t.Fatal("expected help overlay")
	}
	if !strings.Contains(a.View(), "folio devserver") {
		t.Error("help overlay should list commands")
	}
	model, _ = a.Update(key("esc"))
	if model.(App).helpOpen {
		t.Error("esc should close help")
	}
}

func TestAppSessionExpiredReturnsToLogin(t *testing.T) {
	a := signedInApp(t, testAdmin)
	model, _ := a.Update(sessionMsg{st: session.State{Status: session.Unauthenticated, Err: session.ErrSessionExpired}})
	a = model.(App)
	if len(a.tabs) != 0 {
		t.Error("tabs should be cleared after logout")
	}
	out := a.View()
	if !strings.Contains(out, session.ErrSessionExpired) {
		t.Errorf("expected expiry message on login screen, got:\n%s", out)
	}
}

func TestAppToast(t *testing.T) {
	a := signedInApp(t, testCustomer)
	model, cmd := a.Update(alertMsg{n: domain.Notification{Title: "Nouvelle facture", Message: "F-2026-0002"}})
	a = model.(App)
	if cmd == nil {
		t.Error("expected follow-up commands after an alert")
	}
	if !strings.Contains(a.View(), "Nouvelle facture") {
		t.Error("toast not shown")
	}
	model, _ = a.Update(toastExpiredMsg{id: a.toastID - 1})
	if model.(App).toast == "" {
		t.Error("stale expiry cleared the current toast")
	}
	model, _ = a.Update(toastExpiredMsg{id: a.toastID})
	if model.(App).toast != "" {
		t.Error("toast should clear on expiry")
	}
}

func TestAppBannerShowsEngineError(t *testing.T) {
	a := signedInApp(t, testAdmin)
	a.deskSt.Err = "chat: connection lost"
	if !strings.Contains(a.View(), "chat: connection lost") {
		t.Error("banner missing engine error")
	}
	a.deskSt.Err = ""
	if strings.Contains(a.View(), "connection lost") {
		t.Error("banner should clear with the engine error")
	}
}

func TestAppUnreadBadges(t *testing.T) {
	a := signedInApp(t, testCustomer)
	a.inboxSt.Unread = 3
	if !strings.Contains(a.tabBar(), "3") {
		t.Errorf("tab bar missing unread count: %q", a.tabBar())
	}
}

func TestAlerterDropsWhenFull(t *testing.T) {
	al := NewAlerter()
	for i := 0; i < cap(al.ch)+5; i++ {
		if err := al.Alert(domain.Notification{Title: "x"}); err != nil {
			t.Fatalf("Alert: %v", err)
		}
	}
	if len(al.ch) != cap(al.ch) {
		t.Errorf("queued %d, want %d", len(al.ch), cap(al.ch))
	}
	msg := waitAlert(al)().(alertMsg)
	if msg.n.Title != "x" {
		t.Errorf("alert title = %q", msg.n.Title)
	}
}

package fakeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := New(Options{JWTKey: "test-key"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return ts
}

func login(t *testing.T, base, email, password, userType string) *client.Client {
	t.Helper()
	creds, err := client.New(base, nil).Login(context.Background(), client.LoginRequest{Email: email, Password: password, UserType: userType})
	if err != nil {
		t.Fatalf("Login(%s) error: %v", email, err)
	}
	return client.New(base, client.StaticToken(creds.AccessToken))
}

func TestLogin_VerifyReturnsProfile(t *testing.T) {
	ts := newTestServer(t)
	c := login(t, ts.URL, SeedClientEmail, SeedClientPassword, domain.UserTypeClient)

	v, err := c.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !v.Valid || v.UserType != domain.UserTypeClient {
		t.Errorf("Verify() = %+v, want valid client", v)
	}
	if v.Profile.ClientCode != "CL-0001" {
		t.Errorf("ClientCode = %q, want %q", v.Profile.ClientCode, "CL-0001")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	_, err := client.New(ts.URL, nil).Login(context.Background(), client.LoginRequest{
		Email: SeedAdminEmail, Password: "nope", UserType: domain.UserTypeStaff,
	})
	if !client.IsUnauthorized(err) {
		t.Errorf("Login() error = %v, want 401", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	ts := newTestServer(t)
	c := login(t, ts.URL, SeedAdminEmail, SeedAdminPassword, domain.UserTypeStaff)
	ctx := context.Background()

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := c.Verify(ctx); !client.IsUnauthorized(err) {
		t.Errorf("Verify() after logout error = %v, want 401", err)
	}
}

func TestRoles_CustomerCannotListClients(t *testing.T) {
	ts := newTestServer(t)
	c := login(t, ts.URL, SeedClientEmail, SeedClientPassword, domain.UserTypeClient)

	_, err := c.ListClients(context.Background(), 1, 20, "")
	if !client.IsStatus(err, http.StatusForbidden) {
		t.Errorf("ListClients() error = %v, want 403", err)
	}
}

func TestRoles_ComptableCannotManageUsers(t *testing.T) {
	ts := newTestServer(t)
	c := login(t, ts.URL, SeedComptableEmail, SeedComptablePass, domain.UserTypeStaff)

	_, err := c.ListUsers(context.Background(), 1, 20, "")
	if !client.IsStatus(err, http.StatusForbidden) {
		t.Errorf("ListUsers() error = %v, want 403", err)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	admin := login(t, ts.URL, SeedAdminEmail, SeedAdminPassword, domain.UserTypeStaff)
	customer := login(t, ts.URL, SeedClientEmail, SeedClientPassword, domain.UserTypeClient)

	clients, err := admin.ListClients(ctx, 1, 20, "CL-0001")
	if err != nil || len(clients.Items) != 1 {
		t.Fatalf("ListClients() = %v, %v; want the seed client", clients, err)
	}
	inv, err := admin.CreateInvoice(ctx, client.InvoiceRequest{
		ClientID: clients.Items[0].ID.String(),
		Items:    []domain.InvoiceItem{{Description: "Suite", Quantity: 2, UnitPrice: 150}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice() error: %v", err)
	}
	if inv.Status != domain.InvoiceDraft || inv.AmountHT != 300 || inv.AmountTTC != 360 {
		t.Errorf("CreateInvoice() = %s %v/%v, want draft 300/360", inv.Status, inv.AmountHT, inv.AmountTTC)
	}

	before, err := customer.ListNotifications(ctx, 1, 20, false)
	if err != nil {
		t.Fatalf("ListNotifications() error: %v", err)
	}
	if _, err := admin.UpdateInvoiceStatus(ctx, inv.ID.String(), domain.InvoiceSent); err != nil {
		t.Fatalf("UpdateInvoiceStatus() error: %v", err)
	}
	after, err := customer.ListNotifications(ctx, 1, 20, false)
	if err != nil {
		t.Fatalf("ListNotifications() error: %v", err)
	}
	if after.UnreadCount != before.UnreadCount+1 {
		t.Errorf("UnreadCount = %d, want %d", after.UnreadCount, before.UnreadCount+1)
	}
	if got := after.Items[0].Type; got != domain.NotificationInvoiceCreated {
		t.Errorf("newest notification type = %q, want %q", got, domain.NotificationInvoiceCreated)
	}

	pdf, err := customer.ExportInvoicePDF(ctx, inv.ID.String())
	if err != nil {
		t.Fatalf("ExportInvoicePDF() error: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-1.4")) || !bytes.Contains(pdf, []byte(inv.Number)) {
		t.Errorf("ExportInvoicePDF() did not return the invoice PDF")
	}
}

func TestListMyInvoices_HidesDrafts(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	customer := login(t, ts.URL, SeedClientEmail, SeedClientPassword, domain.UserTypeClient)

	page, err := customer.ListMyInvoices(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ListMyInvoices() error: %v", err)
	}
	for _, inv := range page.Items {
		if inv.Status == domain.InvoiceDraft {
			t.Errorf("ListMyInvoices() returned draft %s", inv.Number)
		}
	}
	if page.Pagination.Total != 1 {
		t.Errorf("Total = %d, want 1", page.Pagination.Total)
	}
}

func TestProfileRequest_Approve(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	admin := login(t, ts.URL, SeedAdminEmail, SeedAdminPassword, domain.UserTypeStaff)
	customer := login(t, ts.URL, SeedClientEmail, SeedClientPassword, domain.UserTypeClient)

	req, err := customer.RequestProfileChange(ctx, map[string]string{"city": "Paris", "code_client": "HACK"})
	if err != nil {
		t.Fatalf("RequestProfileChange() error: %v", err)
	}
	if _, leaked := req.Changes["code_client"]; leaked {
		t.Error("non-editable field kept in request")
	}

	pending, err := admin.ListRequests(ctx, 1, 20, domain.RequestPending)
	if err != nil || len(pending.Items) != 1 {
		t.Fatalf("ListRequests() = %v, %v; want one pending", pending, err)
	}
	if err := admin.ApproveRequest(ctx, req.ID.String()); err != nil {
		t.Fatalf("ApproveRequest() error: %v", err)
	}
	if err := admin.ApproveRequest(ctx, req.ID.String()); !client.IsStatus(err, http.StatusConflict) {
		t.Errorf("second ApproveRequest() error = %v, want 409", err)
	}

	me, err := customer.GetMyProfile(ctx)
	if err != nil {
		t.Fatalf("GetMyProfile() error: %v", err)
	}
	if me.City != "Paris" {
		t.Errorf("City = %q, want %q", me.City, "Paris")
	}
}

func TestPasswordRequest_ApprovedPasswordLogsIn(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	admin := login(t, ts.URL, SeedAdminEmail, SeedAdminPassword, domain.UserTypeStaff)
	customer := login(t, ts.URL, SeedClientEmail, SeedClientPassword, domain.UserTypeClient)

	if _, err := customer.RequestPasswordChange(ctx, "wrong", "nouveau-secret"); !client.IsValidation(err) {
		t.Errorf("RequestPasswordChange(wrong current) error = %v, want validation", err)
	}
	req, err := customer.RequestPasswordChange(ctx, SeedClientPassword, "nouveau-secret")
	if err != nil {
		t.Fatalf("RequestPasswordChange() error: %v", err)
	}
	if len(req.Changes) != 0 {
		t.Errorf("password request exposes changes: %v", req.Changes)
	}
	if err := admin.ApproveRequest(ctx, req.ID.String()); err != nil {
		t.Fatalf("ApproveRequest() error: %v", err)
	}
	login(t, ts.URL, SeedClientEmail, "nouveau-secret", domain.UserTypeClient)
}

func TestClearNotifications_OnlyRead(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	admin := login(t, ts.URL, SeedAdminEmail, SeedAdminPassword, domain.UserTypeStaff)

	first, err := admin.TestNotification(ctx)
	if err != nil {
		t.Fatalf("TestNotification() error: %v", err)
	}
	if _, err := admin.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification() error: %v", err)
	}
	if _, err := admin.MarkNotificationRead(ctx, first.ID.String()); err != nil {
		t.Fatalf("MarkNotificationRead() error: %v", err)
	}
	out, err := admin.ClearNotifications(ctx, true)
	if err != nil {
		t.Fatalf("ClearNotifications() error: %v", err)
	}
	if out.Removed != 1 || out.UnreadCount != 1 {
		t.Errorf("ClearNotifications(onlyRead) = %+v, want removed 1 unread 1", out)
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/nope")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestLive_RejectsBadToken(t *testing.T) {
	ts := newTestServer(t)
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/notifications", nil)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer ws.Close() //nolint:errcheck // test cleanup

	if err := ws.WriteJSON(map[string]any{"event": "authenticate", "data": map[string]string{"token": "garbage"}}); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	if msg.Event != "auth_error" {
		t.Errorf("event = %q, want auth_error", msg.Event)
	}
}

func TestRenderInvoicePDF_EscapesText(t *testing.T) {
	inv := domain.Invoice{Number: "F-2026-0001", Items: []domain.InvoiceItem{{Description: "Mini-bar (boissons)", Quantity: 1, UnitPrice: 12}}}
	doc := string(renderInvoicePDF(inv))
	if !strings.Contains(doc, `Mini-bar \(boissons\)`) {
		t.Error("parentheses not escaped")
	}
	if !strings.HasSuffix(doc, "%%EOF\n") {
		t.Error("missing EOF marker")
	}
}

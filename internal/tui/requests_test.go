package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/naveenspark/folio/internal/fakeapi"
	"github.com/naveenspark/folio/pkg/domain"
)

func TestRequestsViewAndDetail(t *testing.T) {
	m := newRequestsModel(nil)
	m, _ = m.Update(requestsLoadedMsg{page: &domain.Page[domain.AdminRequest]{Items: []domain.AdminRequest{
		{ID: uuid.New(), Type: domain.RequestProfileUpdate, Status: domain.RequestPending, ClientName: "Ana Diaz", Changes: map[string]string{"city": "Paris"}},
	}}})
	out := m.View()
	if !strings.Contains(out, "Ana Diaz") || !strings.Contains(out, "profile update") {
		t.Errorf("View() = %s", out)
	}
	if strings.Contains(out, "Paris") {
		t.Error("changes should be hidden until expanded")
	}
	m, _ = m.Update(key("enter"))
	if !strings.Contains(m.View(), "Paris") {
		t.Error("expanded view should show changes")
	}
}

func TestRequestsRejectNeedsPending(t *testing.T) {
	m := newRequestsModel(nil)
	m, _ = m.Update(requestsLoadedMsg{page: &domain.Page[domain.AdminRequest]{Items: []domain.AdminRequest{
		{ID: uuid.New(), Type: domain.RequestPasswordChange, Status: domain.RequestApproved},
	}}})
	m, cmd := m.Update(key("a"))
	if cmd != nil {
		t.Error("approved request should not be approved again")
	}
	m, _ = m.Update(key("x"))
	if m.reject != nil {
		t.Error("approved request should not open the reject form")
	}
}

func TestRequestsApproveAgainstBackend(t *testing.T) {
	url := newBackend(t)
	customer := signIn(t, url, fakeapi.SeedClientEmail, fakeapi.SeedClientPassword, domain.UserTypeClient)
	if _, err := customer.RequestProfileChange(context.Background(), map[string]string{"city": "Bordeaux"}); err != nil {
		t.Fatalf("RequestProfileChange: %v", err)
	}

	m := newRequestsModel(signIn(t, url, fakeapi.SeedAdminEmail, fakeapi.SeedAdminPassword, domain.UserTypeStaff))
	m, _ = m.Update(m.Init()())
	if len(m.requests) != 1 || m.requests[0].Status != domain.RequestPending {
		t.Fatalf("requests = %+v", m.requests)
	}
	_, cmd := m.Update(key("a"))
	if cmd == nil {
		t.Fatal("expected approve command")
	}
	if done := cmd().(actionDoneMsg); done.err != nil {
		t.Fatalf("approve: %v", done.err)
	}
	p, err := customer.GetMyProfile(context.Background())
	if err != nil {
		t.Fatalf("GetMyProfile: %v", err)
	}
	if p.City != "Bordeaux" {
		t.Errorf("City = %q, want Bordeaux after approval", p.City)
	}
}

func TestRequestsRejectForm(t *testing.T) {
	url := newBackend(t)
	customer := signIn(t, url, fakeapi.SeedClientEmail, fakeapi.SeedClientPassword, domain.UserTypeClient)
	if _, err := customer.RequestProfileChange(context.Background(), map[string]string{"phone": "0102030405"}); err != nil {
		t.Fatalf("RequestProfileChange: %v", err)
	}
	m := newRequestsModel(signIn(t, url, fakeapi.SeedAdminEmail, fakeapi.SeedAdminPassword, domain.UserTypeStaff))
	m, _ = m.Update(m.Init()())
	m, _ = m.Update(key("x"))
	if m.reject == nil {
		t.Fatal("expected reject form")
	}
	m, _ = m.Update(key("duplicate"))
	m, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("expected reject command")
	}
	m, reload := m.Update(cmd())
	if m.reject != nil || m.statusMsg != "rejected" || reload == nil {
		t.Errorf("after reject: form=%v status=%q", m.reject != nil, m.statusMsg)
	}
	m, _ = m.Update(reload())
	if len(m.requests) != 0 {
		t.Errorf("pending filter still lists %d requests", len(m.requests))
	}
}

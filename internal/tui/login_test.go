package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/naveenspark/folio/pkg/domain"
)

type fakeAuth struct {
	email, password, userType string
	err                       error
}

func (f *fakeAuth) Login(_ context.Context, email, password, userType string) error {
	f.email, f.password, f.userType = email, password, userType
	return f.err
}

func typeInto(m loginModel, s string) loginModel {
	for _, r := range s {
		m, _ = m.Update(key(string(r)))
	}
	return m
}

func TestLoginSubmitsCredentials(t *testing.T) {
	auth := &fakeAuth{}
	m := newLoginModel(auth)
	m = typeInto(m, "client@folio.test")
	m, _ = m.Update(key("tab"))
	m = typeInto(m, "client1234")
	m, _ = m.Update(key("ctrl+t"))
	m, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("expected login command")
	}
	if !m.form.busy {
		t.Error("form should be busy while logging in")
	}
	msg := cmd().(loginDoneMsg)
	if msg.err != nil {
		t.Fatalf("login err = %v", msg.err)
	}
	if auth.email != "client@folio.test" || auth.password != "client1234" || auth.userType != domain.UserTypeClient {
		t.Errorf("Login called with %q %q %q", auth.email, auth.password, auth.userType)
	}
	m, _ = m.Update(msg)
	if m.form.busy || m.form.fields[1].value != "" {
		t.Error("after success the form should be idle with the password cleared")
	}
}

func TestLoginRequiresFields(t *testing.T) {
	auth := &fakeAuth{}
	m := newLoginModel(auth)
	m, cmd := m.Update(key("ctrl+s"))
	if cmd != nil {
		t.Error("empty form should not submit")
	}
	if m.form.fieldErrs["email"] == "" || m.form.fieldErrs["password"] == "" {
		t.Errorf("fieldErrs = %v", m.form.fieldErrs)
	}
}

func TestLoginShowsSessionError(t *testing.T) {
	m := newLoginModel(&fakeAuth{})
	m.errMsg = "invalid email or password"
	if !strings.Contains(m.View(), "invalid email or password") {
		t.Error("session error not shown")
	}
}

func TestLoginUserTypeToggle(t *testing.T) {
	m := newLoginModel(nil)
	if m.userType != domain.UserTypeStaff {
		t.Fatalf("default userType = %q", m.userType)
	}
	m, _ = m.Update(key("ctrl+t"))
	if m.userType != domain.UserTypeClient {
		t.Errorf("userType = %q after toggle", m.userType)
	}
	if !strings.Contains(m.View(), "[customer]") {
		t.Error("toggle not rendered")
	}
}

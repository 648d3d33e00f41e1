package tui

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/domain"
)

func newTestUsersModel() usersModel {
	m := newUsersModel(nil)
	m.width = 100
	m, _ = m.Update(usersLoadedMsg{page: &domain.Page[domain.User]{Items: []domain.User{
		{ID: uuid.New(), Email: "admin@folio.test", FirstName: "Claire", LastName: "Martin", Role: domain.RoleAdmin, Active: true},
		{ID: uuid.New(), Email: "compta@folio.test", FirstName: "Hugo", LastName: "Bernard", Role: domain.RoleComptable},
	}}})
	return m
}

func TestUsersView(t *testing.T) {
	out := newTestUsersModel().View()
	for _, want := range []string{"Claire Martin", "[admin]", "[comptable]", "inactive"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestNextRole(t *testing.T) {
	tests := map[string]string{
		domain.RoleAdmin:      domain.RoleCommercial,
		domain.RoleCommercial: domain.RoleComptable,
		domain.RoleComptable:  domain.RoleAdmin,
	}
	for in, want := range tests {
		if got := nextRole(in); got != want {
			t.Errorf("nextRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUsersForms(t *testing.T) {
	m := newTestUsersModel()
	m2, _ := m.Update(key("n"))
	if m2.formKind != "create" || len(m2.form.fields) != 5 {
		t.Errorf("create form: kind=%q fields=%d", m2.formKind, len(m2.form.fields))
	}
	m2, _ = m.Update(key("e"))
	if m2.formKind != "edit" || len(m2.form.fields) != 4 || m2.form.value("email") != "admin@folio.test" {
		t.Errorf("edit form: kind=%q email=%q", m2.formKind, m2.form.value("email"))
	}
	m2, _ = m.Update(key("P"))
	if m2.formKind != "password" || !m2.form.fields[0].secret {
		t.Errorf("password form: kind=%q", m2.formKind)
	}
}

func TestUsersChangeRoleAgainstBackend(t *testing.T) {
	c := adminClient(t)
	m := newUsersModel(c)
	m, _ = m.Update(m.Init()())
	idx := -1
	for i, u := range m.users {
		if u.Role == domain.RoleComptable {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("seeded comptable not listed: %+v", m.users)
	}
	m.cursor = idx
	_, cmd := m.Update(key("R"))
	done := cmd().(actionDoneMsg)
	if done.err != nil {
		t.Fatalf("change role: %v", done.err)
	}
	if !strings.HasSuffix(done.note, domain.RoleAdmin) {
		t.Errorf("note = %q", done.note)
	}
}

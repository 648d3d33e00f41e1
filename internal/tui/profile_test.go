package tui

import (
	"strings"
	"testing"

	"github.com/naveenspark/folio/pkg/domain"
)

func TestChangedFields(t *testing.T) {
	cl := domain.Client{FirstName: "Ana", LastName: "Diaz", City: "Paris"}
	got := changedFields(cl, map[string]string{
		"first_name": "Ana",
		"last_name":  "Diaz",
		"city":       "Lyon",
		"phone":      "0102030405",
		"unknown":    "x",
	})
	if len(got) != 2 || got["city"] != "Lyon" || got["phone"] != "0102030405" {
		t.Errorf("changedFields = %v", got)
	}
}

func TestProfilePasswordMismatch(t *testing.T) {
	m := newProfileModel(nil, false)
	m, _ = m.Update(profileLoadedMsg{customer: &domain.Client{FirstName: "Ana", ClientCode: "CL-0001"}})
	m, _ = m.Update(key("P"))
	if m.form == nil || m.formKind != "password" {
		t.Fatal("expected password form")
	}
	m.form.fields[0].value = "client1234"
	m.form.fields[1].value = "nouveau-1234"
	m.form.fields[2].value = "nouveau-9999"
	m, cmd := m.Update(key("ctrl+s"))
	if cmd != nil {
		t.Error("mismatched passwords should not be sent")
	}
	if m.form.fieldErrs["confirm"] != "passwords do not match" {
		t.Errorf("fieldErrs = %v", m.form.fieldErrs)
	}
}

func TestProfileStaffHasNoPasswordRequest(t *testing.T) {
	m := newProfileModel(nil, true)
	m, _ = m.Update(profileLoadedMsg{staff: &domain.Profile{FirstName: "Claire", LastName: "Martin", Email: "admin@folio.test", Role: domain.RoleAdmin}})
	out := m.View()
	if !strings.Contains(out, "Claire Martin") || !strings.Contains(out, "admin@folio.test") {
		t.Errorf("View() = %s", out)
	}
	m, _ = m.Update(key("P"))
	if m.form != nil {
		t.Error("staff should not get the password request form")
	}
	m, _ = m.Update(key("e"))
	if m.form == nil || m.form.value("email") != "admin@folio.test" {
		t.Error("staff edit form should be prefilled")
	}
}

func TestProfileRequestChangeAgainstBackend(t *testing.T) {
	m := newProfileModel(customerClient(t), false)
	m, _ = m.Update(m.Init()())
	if m.customer == nil {
		t.Fatalf("profile not loaded: %q", m.err)
	}
	if !strings.Contains(m.View(), m.customer.ClientCode) {
		t.Error("client code not shown")
	}

	m, _ = m.Update(key("e"))
	m, _ = m.Update(key("ctrl+s"))
	if m.form != nil || m.statusMsg != "nothing changed" {
		t.Errorf("unchanged form: status = %q", m.statusMsg)
	}

	m, _ = m.Update(key("e"))
	for i := range m.form.fields {
		if m.form.fields[i].key == "city" {
			m.form.fields[i].value = "Bordeaux"
		}
	}
	m, cmd := m.Update(key("ctrl+s"))
	if cmd == nil {
		t.Fatal("expected request command")
	}
	m, _ = m.Update(cmd())
	if m.form != nil || m.statusMsg != "change request sent for review" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

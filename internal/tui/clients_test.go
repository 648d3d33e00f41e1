package tui

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/domain"
)

func newTestClientsModel() clientsModel {
	m := newClientsModel(nil)
	m.width = 100
	m.height = 30
	m, _ = m.Update(clientsLoadedMsg{page: &domain.Page[domain.Client]{
		Items: []domain.Client{
			{ID: uuid.New(), ClientCode: "CL-0001", FirstName: "Ana", LastName: "Diaz", Company: "Hôtel de la Lune", Email: "client@folio.test"},
			{ID: uuid.New(), ClientCode: "CL-0002", FirstName: "Marc", LastName: "Roux", Email: "marc@example.com"},
		},
		Pagination: domain.Pagination{Page: 1, Pages: 1, Total: 2},
	}})
	return m
}

func TestClientsView(t *testing.T) {
	out := newTestClientsModel().View()
	for _, want := range []string{"2 clients", "CL-0001", "Hôtel de la Lune", "Marc Roux", "marc@example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestClientsSearch(t *testing.T) {
	m := newTestClientsModel()
	m, _ = m.Update(key("/"))
	if !m.searching {
		t.Fatal("expected search mode")
	}
	m, _ = m.Update(key("roux"))
	m, cmd := m.Update(key("enter"))
	if m.searching || m.search != "roux" || cmd == nil {
		t.Errorf("search = %q searching=%v cmd=%v", m.search, m.searching, cmd != nil)
	}
}

func TestClientsEditPrefills(t *testing.T) {
	m := newTestClientsModel()
	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("e"))
	if m.form == nil {
		t.Fatal("expected edit form")
	}
	if got := m.form.value("email"); got != "marc@example.com" {
		t.Errorf("email = %q, want prefilled", got)
	}
	if m.editID == "" {
		t.Error("editID should be set")
	}
}

func TestClientsDetailShowsInvoices(t *testing.T) {
	m := newTestClientsModel()
	m, cmd := m.Update(key("enter"))
	if m.detail == nil || cmd == nil {
		t.Fatal("enter should open the client and load its invoices")
	}
	m, _ = m.Update(clientInvoicesMsg{clientID: m.detail.ID.String(), page: &domain.Page[domain.Invoice]{
		Items: []domain.Invoice{{Number: "F-2026-0001", Status: domain.InvoicePaid, AmountTTC: 228}},
	}})
	out := m.View()
	if !strings.Contains(out, "F-2026-0001") || !strings.Contains(out, "228.00 €") {
		t.Errorf("detail missing invoice:\n%s", out)
	}
	m, _ = m.Update(clientInvoicesMsg{clientID: uuid.NewString(), page: &domain.Page[domain.Invoice]{}})
	if len(m.invoices) != 1 {
		t.Error("invoices for another client replaced the list")
	}
}

func TestClientsCreateAgainstBackend(t *testing.T) {
	m := newClientsModel(adminClient(t))
	m, _ = m.Update(key("n"))
	m.form.fields[0].value = "Lea"
	m.form.fields[1].value = "Petit"
	m.form.fields[3].value = "lea@example.com"
	m, cmd := m.Update(key("ctrl+s"))
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	done := cmd().(formDoneMsg)
	if done.err != nil {
		t.Fatalf("create: %v", done.err)
	}
	if !strings.HasPrefix(done.note, "created CL-") {
		t.Errorf("note = %q", done.note)
	}
	m, _ = m.Update(done)

	// Same email again is rejected by the server with a field error.
	m, _ = m.Update(key("n"))
	m.form.fields[0].value = "Lea"
	m.form.fields[1].value = "Petit"
	m.form.fields[3].value = "lea@example.com"
	m, cmd = m.Update(key("ctrl+s"))
	m, _ = m.Update(cmd())
	if m.form == nil || len(m.form.fieldErrs) == 0 {
		t.Errorf("duplicate email should keep the form open with field errors")
	}
}

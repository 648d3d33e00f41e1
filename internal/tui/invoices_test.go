package tui

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

func sampleInvoices() []domain.Invoice {
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	cl := &domain.Client{FirstName: "Ana", LastName: "Diaz", ClientCode: "CL-0001"}
	return []domain.Invoice{
		{ID: uuid.New(), Number: "F-2026-0001", Client: cl, Status: domain.InvoiceSent, DueAt: &due, AmountHT: 190, AmountTTC: 228,
			Items: []domain.InvoiceItem{{ID: uuid.New(), Description: "Chambre double", Quantity: 2, UnitPrice: 95}}},
		{ID: uuid.New(), Number: "F-2026-0002", Client: cl, Status: domain.InvoiceDraft, AmountHT: 100, AmountTTC: 120},
	}
}

func newTestInvoicesModel(canManage bool) invoicesModel {
	m := newInvoicesModel(nil, canManage)
	m.width = 100
	m.height = 30
	m, _ = m.Update(invoicesLoadedMsg{page: &domain.Page[domain.Invoice]{Items: sampleInvoices(), Pagination: domain.Pagination{Page: 1, Pages: 1, Total: 2}}})
	return m
}

func TestInvoicesView(t *testing.T) {
	m := newTestInvoicesModel(true)
	out := m.View()
	for _, want := range []string{"F-2026-0001", "Ana Diaz", "sent", "228.00 €", "2026-11-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestInvoicesLoadError(t *testing.T) {
	m := newInvoicesModel(nil, true)
	m, _ = m.Update(invoicesLoadedMsg{err: errors.New("boom")})
	if !strings.Contains(m.View(), "error: boom") {
		t.Errorf("View() = %q, want error line", m.View())
	}
}

func TestInvoicesFilterCycles(t *testing.T) {
	m := newTestInvoicesModel(true)
	m, cmd := m.Update(key("f"))
	if cmd == nil {
		t.Fatal("expected reload command")
	}
	if got := invoiceFilters[m.filter]; got != domain.InvoiceDraft {
		t.Errorf("filter = %q, want %q", got, domain.InvoiceDraft)
	}
	if !strings.Contains(m.View(), "draft") {
		t.Error("filter line should show draft")
	}
}

func TestInvoiceStatusFor(t *testing.T) {
	tests := []struct {
		current, key, want string
	}{
		{domain.InvoiceDraft, "s", domain.InvoiceSent},
		{domain.InvoiceSent, "s", domain.InvoicePaid},
		{domain.InvoiceOverdue, "s", domain.InvoicePaid},
		{domain.InvoicePaid, "s", ""},
		{domain.InvoiceSent, "o", domain.InvoiceOverdue},
		{domain.InvoiceDraft, "o", ""},
		{domain.InvoiceDraft, "X", domain.InvoiceCancelled},
		{domain.InvoicePaid, "X", ""},
	}
	for _, tc := range tests {
		if got := invoiceStatusFor(tc.current, tc.key); got != tc.want {
			t.Errorf("invoiceStatusFor(%q, %q) = %q, want %q", tc.current, tc.key, got, tc.want)
		}
	}
}

func TestInvoicesNoTransitionMessage(t *testing.T) {
	m := newTestInvoicesModel(true)
	m.invoices[0].Status = domain.InvoicePaid
	m, cmd := m.Update(key("s"))
	if cmd != nil {
		t.Error("paid invoice should not issue a status change")
	}
	if !strings.Contains(m.statusMsg, "no transition") {
		t.Errorf("statusMsg = %q", m.statusMsg)
	}
}

func TestInvoicesDeleteConfirm(t *testing.T) {
	m := newTestInvoicesModel(true)
	m, _ = m.Update(key("D"))
	if m.confirm != "invoice" {
		t.Fatalf("confirm = %q, want invoice", m.confirm)
	}
	if !strings.Contains(m.View(), "delete this invoice?") {
		t.Error("confirm prompt missing")
	}
	m, cmd := m.Update(key("n"))
	if cmd != nil || m.confirm != "" || m.statusMsg != "cancelled" {
		t.Errorf("after n: confirm=%q status=%q cmd=%v", m.confirm, m.statusMsg, cmd != nil)
	}
	m, _ = m.Update(key("D"))
	if _, cmd = m.Update(key("y")); cmd == nil {
		t.Error("y should issue the delete")
	}
}

func TestInvoicesReadOnlyWithoutRole(t *testing.T) {
	m := newTestInvoicesModel(false)
	for _, k := range []string{"n", "s", "d", "D"} {
		m2, _ := m.Update(key(k))
		if m2.form != nil || m2.confirm != "" {
			t.Errorf("key %q changed a read-only list", k)
		}
	}
}

func TestInvoicesDetail(t *testing.T) {
	m := newTestInvoicesModel(true)
	inv := sampleInvoices()[0]
	m, _ = m.Update(invoiceLoadedMsg{invoice: &inv})
	out := m.View()
	for _, want := range []string{"Chambre double", "Total HT", "190.00 €", "Total TTC", "228.00 €"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail view missing %q", want)
		}
	}
	m, _ = m.Update(key("x"))
	if m.confirm != "item" {
		t.Errorf("x in detail: confirm = %q, want item", m.confirm)
	}
	m.confirm = ""
	m, _ = m.Update(key("esc"))
	if m.detail != nil {
		t.Error("esc should close detail")
	}
}

func TestInvoicesFormErrors(t *testing.T) {
	m := newTestInvoicesModel(true)
	m, _ = m.Update(key("n"))
	if m.form == nil {
		t.Fatal("expected form")
	}
	m, _ = m.Update(formDoneMsg{err: &client.ValidationError{Fields: []client.FieldError{{Field: "client_id", Message: "no client matches"}}}})
	if m.form == nil {
		t.Fatal("form should stay open on error")
	}
	if !strings.Contains(m.View(), "no client matches") {
		t.Error("field error not shown")
	}
	m, cmd := m.Update(formDoneMsg{note: "created F-2026-0003"})
	if m.form != nil || cmd == nil || m.statusMsg != "created F-2026-0003" {
		t.Errorf("after success: form=%v reload=%v status=%q", m.form != nil, cmd != nil, m.statusMsg)
	}
}

func TestParseItem(t *testing.T) {
	it, err := parseItem(map[string]string{"description": "Petit déjeuner", "quantity": "2", "unit_price": "12,50"})
	if err != nil {
		t.Fatalf("parseItem: %v", err)
	}
	if it.Quantity != 2 || it.UnitPrice != 12.5 {
		t.Errorf("item = %+v", it)
	}
	_, err = parseItem(map[string]string{"quantity": "two", "unit_price": "x"})
	var ve *client.ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) != 2 {
		t.Errorf("parseItem(bad) = %v, want two field errors", err)
	}
}

func TestCreateInvoiceCmd_AgainstBackend(t *testing.T) {
	c := adminClient(t)
	msg := createInvoiceCmd(c, map[string]string{
		"client_id":   "CL-0001",
		"description": "Suite, 3 nuits",
		"quantity":    "3",
		"unit_price":  "150",
		"due_at":      "2026-12-01",
	})().(formDoneMsg)
	if msg.err != nil {
		t.Fatalf("createInvoiceCmd: %v", msg.err)
	}
	if !strings.HasPrefix(msg.note, "created F-") {
		t.Errorf("note = %q", msg.note)
	}

	msg = createInvoiceCmd(c, map[string]string{"client_id": "nobody@nowhere", "description": "x", "quantity": "1", "unit_price": "1"})().(formDoneMsg)
	var ve *client.ValidationError
	if !errors.As(msg.err, &ve) || ve.Fields[0].Field != "client_id" {
		t.Errorf("unknown client: err = %v", msg.err)
	}
}

func TestExportPDFCmd_AgainstBackend(t *testing.T) {
	c := customerClient(t)
	p, err := c.ListMyInvoices(t.Context(), 1, 10)
	if err != nil || len(p.Items) == 0 {
		t.Fatalf("ListMyInvoices: %v (%d items)", err, len(p.Items))
	}

	dir := t.TempDir()
	var opened string
	oldDir, oldOpen := exportDir, openFile
	exportDir = func() string { return dir }
	openFile = func(path string) error { opened = path; return nil }
	t.Cleanup(func() { exportDir, openFile = oldDir, oldOpen })

	msg := exportPDFCmd(c, p.Items[0])().(pdfExportedMsg)
	if msg.err != nil {
		t.Fatalf("export: %v", msg.err)
	}
	if opened != msg.path {
		t.Errorf("opened %q, want %q", opened, msg.path)
	}
	data, err := os.ReadFile(msg.path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Errorf("file does not look like a PDF: %q", string(data[:8]))
	}
}

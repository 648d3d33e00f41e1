package tui

import (
	"strings"
	"testing"

	"github.com/naveenspark/folio/pkg/domain"
)

func TestMyInvoicesOutstanding(t *testing.T) {
	m := newMyInvoicesModel(nil)
	m, _ = m.Update(invoicesLoadedMsg{page: &domain.Page[domain.Invoice]{Items: []domain.Invoice{
		{Number: "F-1", Status: domain.InvoiceSent, AmountTTC: 120},
		{Number: "F-2", Status: domain.InvoiceOverdue, AmountTTC: 60.5},
		{Number: "F-3", Status: domain.InvoicePaid, AmountTTC: 1000},
		{Number: "F-4", Status: domain.InvoiceDraft, AmountTTC: 10},
	}}})
	if got := m.outstanding(); got != 180.5 {
		t.Errorf("outstanding() = %v, want 180.5", got)
	}
	if !strings.Contains(m.View(), "180.50 €") {
		t.Error("outstanding total not rendered")
	}
}

func TestMyInvoicesDetailToggle(t *testing.T) {
	m := newMyInvoicesModel(nil)
	m, _ = m.Update(invoicesLoadedMsg{page: &domain.Page[domain.Invoice]{Items: []domain.Invoice{
		{Number: "F-1", Status: domain.InvoiceSent, Items: []domain.InvoiceItem{{Description: "Nuitée chambre double", Quantity: 2, UnitPrice: 95}}},
	}}})
	if strings.Contains(m.View(), "Nuitée") {
		t.Error("items shown before opening")
	}
	m, _ = m.Update(key("enter"))
	if !strings.Contains(m.View(), "Nuitée chambre double") {
		t.Error("items missing after enter")
	}
	m, _ = m.Update(key("esc"))
	if m.open {
		t.Error("esc should close the detail")
	}
}

func TestMyInvoicesAgainstBackend(t *testing.T) {
	m := newMyInvoicesModel(customerClient(t))
	m, _ = m.Update(m.Init()())
	if m.err != "" {
		t.Fatalf("load: %s", m.err)
	}
	if len(m.invoices) != 1 || m.invoices[0].Status != domain.InvoiceSent {
		t.Fatalf("invoices = %+v", m.invoices)
	}
	if m.outstanding() <= 0 {
		t.Error("seeded sent invoice should be outstanding")
	}
}

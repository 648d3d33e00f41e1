package domain

import "testing"

func TestInvoiceTotals(t *testing.T) {
	inv := Invoice{Items: []InvoiceItem{
		{Description: "Chambre double", Quantity: 3, UnitPrice: 89.90},
		{Description: "Petit-déjeuner", Quantity: 6, UnitPrice: 12.50},
	}}

	got := inv.Totals()
	if got.HT != 344.70 {
		t.Errorf("HT = %v, want 344.70", got.HT)
	}
	if got.VAT != 68.94 {
		t.Errorf("VAT = %v, want 68.94", got.VAT)
	}
	if got.TTC != 413.64 {
		t.Errorf("TTC = %v, want 413.64", got.TTC)
	}
}

func TestInvoiceTotals_Empty(t *testing.T) {
	got := Invoice{}.Totals()
	if got.HT != 0 || got.VAT != 0 || got.TTC != 0 {
		t.Errorf("Totals() = %+v, want zeros", got)
	}
}

func TestWithVAT(t *testing.T) {
	if got := WithVAT(100); got != 120 {
		t.Errorf("WithVAT(100) = %v, want 120", got)
	}
}

func TestValidInvoiceStatus(t *testing.T) {
	for _, s := range InvoiceStatuses {
		if !ValidInvoiceStatus(s) {
			t.Errorf("ValidInvoiceStatus(%q) = false", s)
		}
	}
	if ValidInvoiceStatus("Paid") {
		t.Error("ValidInvoiceStatus(\"Paid\") = true, want false")
	}
}

func TestConversationUnreadFor(t *testing.T) {
	c := Conversation{UnreadStaff: 3, UnreadClient: 1}
	if got := c.UnreadFor(SenderStaff); got != 3 {
		t.Errorf("UnreadFor(staff) = %d, want 3", got)
	}
	if got := c.UnreadFor(SenderCustomer); got != 1 {
		t.Errorf("UnreadFor(customer) = %d, want 1", got)
	}
}

package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// VATRate is the fixed VAT applied to every invoice line.
const VATRate = 0.20

// Invoice statuses.
const (
	InvoiceDraft     = "draft"
	InvoiceSent      = "sent"
	InvoicePaid      = "paid"
	InvoiceOverdue   = "overdue"
	InvoiceCancelled = "cancelled"
)

// InvoiceStatuses lists every valid invoice status in display order.
var InvoiceStatuses = []string{InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled}

// ValidInvoiceStatus returns true if s is a known invoice status.
func ValidInvoiceStatus(s string) bool {
	for _, st := range InvoiceStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Client is a hotel customer record.
type Client struct {
	ID         uuid.UUID `json:"id"`
	ClientCode string    `json:"code_client"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Company    string    `json:"company,omitempty"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	Country    string    `json:"country,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FullName returns the client's display name.
func (c Client) FullName() string {
	if c.Company != "" {
		return c.Company
	}
	return c.FirstName + " " + c.LastName
}

// InvoiceItem is one billed line.
type InvoiceItem struct {
	ID          uuid.UUID `json:"id,omitempty"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}

// Total returns the line amount excluding VAT.
func (i InvoiceItem) Total() float64 {
	return roundCents(i.Quantity * i.UnitPrice)
}

// Invoice is a bill issued to a client.
type Invoice struct {
	ID        uuid.UUID     `json:"id"`
	Number    string        `json:"number"`
	ClientID  uuid.UUID     `json:"client_id"`
	Client    *Client       `json:"client,omitempty"`
	Status    string        `json:"status"`
	IssuedAt  time.Time     `json:"issued_at"`
	DueAt     *time.Time    `json:"due_at,omitempty"`
	Items     []InvoiceItem `json:"items,omitempty"`
	Notes     string        `json:"notes,omitempty"`
	AmountHT  float64       `json:"amount_ht"`
	AmountTTC float64       `json:"amount_ttc"`
	CreatedAt time.Time     `json:"created_at"`
}

// Totals holds the computed invoice amounts.
type Totals struct {
	HT  float64
	VAT float64
	TTC float64
}

// Totals sums the lines and applies the fixed VAT rate.
func (inv Invoice) Totals() Totals {
	var ht float64
	for _, it := range inv.Items {
		ht += it.Total()
	}
	ht = roundCents(ht)
	vat := roundCents(ht * VATRate)
	return Totals{HT: ht, VAT: vat, TTC: roundCents(ht + vat)}
}

// WithVAT returns the amount including VAT.
func WithVAT(ht float64) float64 {
	return roundCents(ht * (1 + VATRate))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

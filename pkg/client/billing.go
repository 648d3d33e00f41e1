package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/naveenspark/folio/pkg/domain"
)

// --- Clients ---

// ClientRequest is the payload for creating or updating a client.
type ClientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
}

// ListClients returns a page of clients, optionally filtered by a search term.
func (c *Client) ListClients(ctx context.Context, page, limit int, search string) (*domain.Page[domain.Client], error) {
	var p domain.Page[domain.Client]
	if err := c.get(ctx, "/clients"+pageParams(page, limit, map[string]string{"search": search}), &p); err != nil {
		return nil, fmt.Errorf("client.ListClients: %w", err)
	}
	return &p, nil
}

// GetClient fetches a single client by ID.
func (c *Client) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	var cl domain.Client
	if err := c.get(ctx, "/clients/"+url.PathEscape(id), &cl); err != nil {
		return nil, fmt.Errorf("client.GetClient: %w", err)
	}
	return &cl, nil
}

// CreateClient validates and creates a client.
func (c *Client) CreateClient(ctx context.Context, req ClientRequest) (*domain.Client, error) {
	if err := ValidateClient(req); err != nil {
		return nil, fmt.Errorf("client.CreateClient: %w", err)
	}
	var created domain.Client
	if err := c.post(ctx, "/clients", req, &created); err != nil {
		return nil, fmt.Errorf("client.CreateClient: %w", err)
	}
	return &created, nil
}

// UpdateClient validates and updates a client.
func (c *Client) UpdateClient(ctx context.Context, id string, req ClientRequest) (*domain.Client, error) {
	if err := ValidateClient(req); err != nil {
		return nil, fmt.Errorf("client.UpdateClient: %w", err)
	}
	var updated domain.Client
	if err := c.put(ctx, "/clients/"+url.PathEscape(id), req, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateClient: %w", err)
	}
	return &updated, nil
}

// DeleteClient deletes a client by ID.
func (c *Client) DeleteClient(ctx context.Context, id string) error {
	if err := c.del(ctx, "/clients/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("client.DeleteClient: %w", err)
	}
	return nil
}

// --- Invoices ---

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	Page     int
	Limit    int
	Status   string
	ClientID string
	Search   string
}

// InvoiceRequest is the payload for creating or updating an invoice.
type InvoiceRequest struct {
	ClientID string               `json:"client_id"`
	DueAt    string               `json:"due_at,omitempty"`
	Notes    string               `json:"notes,omitempty"`
	Items    []domain.InvoiceItem `json:"items"`
}

// ListInvoices returns a page of invoices.
func (c *Client) ListInvoices(ctx context.Context, f InvoiceFilter) (*domain.Page[domain.Invoice], error) {
	q := pageParams(f.Page, f.Limit, map[string]string{
		"status":    f.Status,
		"client_id": f.ClientID,
		"search":    f.Search,
	})
	var p domain.Page[domain.Invoice]
	if err := c.get(ctx, "/invoices"+q, &p); err != nil {
		return nil, fmt.Errorf("client.ListInvoices: %w", err)
	}
	return &p, nil
}

// GetInvoice fetches a single invoice with its items.
func (c *Client) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := c.get(ctx, "/invoices/"+url.PathEscape(id), &inv); err != nil {
		return nil, fmt.Errorf("client.GetInvoice: %w", err)
	}
	return &inv, nil
}

// CreateInvoice creates an invoice.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*domain.Invoice, error) {
	if err := ValidateInvoice(req); err != nil {
		return nil, fmt.Errorf("client.CreateInvoice: %w", err)
	}
	var created domain.Invoice
	if err := c.post(ctx, "/invoices", req, &created); err != nil {
		return nil, fmt.Errorf("client.CreateInvoice: %w", err)
	}
	return &created, nil
}

// UpdateInvoice replaces an invoice's editable fields.
func (c *Client) UpdateInvoice(ctx context.Context, id string, req InvoiceRequest) (*domain.Invoice, error) {
	if err := ValidateInvoice(req); err != nil {
		return nil, fmt.Errorf("client.UpdateInvoice: %w", err)
	}
	var updated domain.Invoice
	if err := c.put(ctx, "/invoices/"+url.PathEscape(id), req, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateInvoice: %w", err)
	}
	return &updated, nil
}

// DeleteInvoice deletes an invoice.
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	if err := c.del(ctx, "/invoices/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("client.DeleteInvoice: %w", err)
	}
	return nil
}

// UpdateInvoiceStatus moves an invoice to another status.
func (c *Client) UpdateInvoiceStatus(ctx context.Context, id, status string) (*domain.Invoice, error) {
	if !domain.ValidInvoiceStatus(status) {
		return nil, fmt.Errorf("client.UpdateInvoiceStatus: %w", &ValidationError{Fields: []FieldError{{Field: "status", Message: "unknown status " + status}}})
	}
	var updated domain.Invoice
	if err := c.patch(ctx, "/invoices/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &updated); err != nil {
		return nil, fmt.Errorf("client.UpdateInvoiceStatus: %w", err)
	}
	return &updated, nil
}

// DuplicateInvoice copies an invoice into a new draft.
func (c *Client) DuplicateInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var dup domain.Invoice
	if err := c.post(ctx, "/invoices/"+url.PathEscape(id)+"/duplicate", nil, &dup); err != nil {
		return nil, fmt.Errorf("client.DuplicateInvoice: %w", err)
	}
	return &dup, nil
}

// ExportInvoicePDF downloads the rendered invoice.
func (c *Client) ExportInvoicePDF(ctx context.Context, id string) ([]byte, error) {
	data, err := c.download(ctx, "/invoices/"+url.PathEscape(id)+"/pdf")
	if err != nil {
		return nil, fmt.Errorf("client.ExportInvoicePDF: %w", err)
	}
	return data, nil
}

// AddInvoiceItem appends a line to an invoice.
func (c *Client) AddInvoiceItem(ctx context.Context, invoiceID string, item domain.InvoiceItem) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := c.post(ctx, "/invoices/"+url.PathEscape(invoiceID)+"/items", item, &inv); err != nil {
		return nil, fmt.Errorf("client.AddInvoiceItem: %w", err)
	}
	return &inv, nil
}

// DeleteInvoiceItem removes a line from an invoice.
func (c *Client) DeleteInvoiceItem(ctx context.Context, invoiceID, itemID string) error {
	if err := c.del(ctx, "/invoices/"+url.PathEscape(invoiceID)+"/items/"+url.PathEscape(itemID)); err != nil {
		return fmt.Errorf("client.DeleteInvoiceItem: %w", err)
	}
	return nil
}

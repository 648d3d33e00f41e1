package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/domain"
)

// --- clients ---

type clientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

func (r clientRequest) check() []fieldError {
	var out []fieldError
	if strings.TrimSpace(r.FirstName) == "" {
		out = append(out, fieldError{Field: "first_name", Message: "required"})
	}
	if strings.TrimSpace(r.LastName) == "" {
		out = append(out, fieldError{Field: "last_name", Message: "required"})
	}
	if !strings.Contains(r.Email, "@") {
		out = append(out, fieldError{Field: "email", Message: "invalid email"})
	}
	return out
}

func (r clientRequest) apply(cl *domain.Client) {
	cl.FirstName, cl.LastName, cl.Company = r.FirstName, r.LastName, r.Company
	cl.Email, cl.Phone, cl.Address = r.Email, r.Phone, r.Address
	cl.City, cl.Country = r.City, r.Country
}

func matches(q string, fields ...string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func (s *Server) listClients(c *gin.Context) {
	q := c.Query("search")
	s.db.mu.Lock()
	var out []domain.Client
	for _, cl := range s.db.clients {
		if matches(q, cl.ClientCode, cl.FirstName, cl.LastName, cl.Company, cl.Email) {
			out = append(out, *cl)
		}
	}
	s.db.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ClientCode < out[j].ClientCode })
	ok(c, paginate(out, intQuery(c, "page", 1), intQuery(c, "limit", 20)))
}

// lookupClient resolves :id. The caller holds db.mu.
func (s *Server) lookupClient(c *gin.Context) *domain.Client {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "client not found")
		return nil
	}
	cl, found := s.db.clients[id]
	if !found {
		fail(c, http.StatusNotFound, "client not found")
		return nil
	}
	return cl
}

func (s *Server) getClient(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if cl := s.lookupClient(c); cl != nil {
		ok(c, cl)
	}
}

func (s *Server) createClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	if fields := req.check(); len(fields) > 0 {
		invalid(c, fields...)
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.clients {
		if strings.EqualFold(other.Email, req.Email) {
			invalid(c, fieldError{Field: "email", Message: "already in use"})
			return
		}
	}
	cl := &domain.Client{ID: uuid.New(), ClientCode: fmt.Sprintf("CL-%04d", len(s.db.clients)+1), CreatedAt: time.Now().UTC()}
	req.apply(cl)
	s.db.clients[cl.ID] = cl
	created(c, cl)
}

func (s *Server) updateClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	if fields := req.check(); len(fields) > 0 {
		invalid(c, fields...)
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cl := s.lookupClient(c)
	if cl == nil {
		return
	}
	req.apply(cl)
	ok(c, cl)
}

func (s *Server) deleteClient(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cl := s.lookupClient(c)
	if cl == nil {
		return
	}
	for _, inv := range s.db.invoices {
		if inv.ClientID == cl.ID {
			fail(c, http.StatusConflict, "client has invoices")
			return
		}
	}
	delete(s.db.clients, cl.ID)
	ok(c, nil)
}

// --- invoices ---

type invoiceRequest struct {
	ClientID string               `json:"client_id"`
	DueAt    string               `json:"due_at"`
	Notes    string               `json:"notes"`
	Items    []domain.InvoiceItem `json:"items"`
}

// resolve checks the request against the store. The caller holds db.mu.
func (s *Server) resolveInvoice(c *gin.Context, req invoiceRequest, inv *domain.Invoice) bool {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		invalid(c, fieldError{Field: "client_id", Message: "required"})
		return false
	}
	if _, found := s.db.clients[clientID]; !found {
		invalid(c, fieldError{Field: "client_id", Message: "unknown client"})
		return false
	}
	if len(req.Items) == 0 {
		invalid(c, fieldError{Field: "items", Message: "at least one item"})
		return false
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.Description) == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			invalid(c, fieldError{Field: fmt.Sprintf("items[%d]", i), Message: "invalid item"})
			return false
		}
	}
	inv.DueAt = nil
	if req.DueAt != "" {
		due, err := time.Parse("2006-01-02", req.DueAt)
		if err != nil {
			invalid(c, fieldError{Field: "due_at", Message: "expected YYYY-MM-DD"})
			return false
		}
		inv.DueAt = &due
	}
	inv.ClientID = clientID
	inv.Notes = req.Notes
	inv.Items = append([]domain.InvoiceItem(nil), req.Items...)
	return true
}

// visibleInvoice resolves :id, hiding other customers' invoices. The caller
// holds db.mu.
func (s *Server) visibleInvoice(c *gin.Context) *domain.Invoice {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "invoice not found")
		return nil
	}
	inv, found := s.db.invoices[id]
	a := actor(c)
	if !found || (a.UserType == domain.UserTypeClient && inv.ClientID != a.ClientID) {
		fail(c, http.StatusNotFound, "invoice not found")
		return nil
	}
	return inv
}

func (s *Server) invoicesWhere(keep func(*domain.Invoice) bool) []domain.Invoice {
	var out []domain.Invoice
	for _, inv := range s.db.invoices {
		if keep(inv) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out
}

func (s *Server) listInvoices(c *gin.Context) {
	status, clientID, q := c.Query("status"), c.Query("client_id"), c.Query("search")
	s.db.mu.Lock()
	out := s.invoicesWhere(func(inv *domain.Invoice) bool {
		if status != "" && inv.Status != status {
			return false
		}
		if clientID != "" && inv.ClientID.String() != clientID {
			return false
		}
		name := ""
		if inv.Client != nil {
			name = inv.Client.FullName()
		}
		return matches(q, inv.Number, name)
	})
	s.db.mu.Unlock()
	ok(c, paginate(out, intQuery(c, "page", 1), intQuery(c, "limit", 20)))
}

func (s *Server) getInvoice(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if inv := s.visibleInvoice(c); inv != nil {
		ok(c, inv)
	}
}

func (s *Server) createInvoice(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	now := time.Now().UTC()
	inv := &domain.Invoice{ID: uuid.New(), Status: domain.InvoiceDraft, IssuedAt: now, CreatedAt: now}
	s.db.mu.Lock()
	if !s.resolveInvoice(c, req, inv) {
		s.db.mu.Unlock()
		return
	}
	s.db.storeInvoiceLocked(inv)
	out := *inv
	s.db.mu.Unlock()
	created(c, out)
}

func (s *Server) updateInvoice(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inv := s.visibleInvoice(c)
	if inv == nil {
		return
	}
	if inv.Status != domain.InvoiceDraft {
		fail(c, http.StatusConflict, "only drafts can be edited")
		return
	}
	if !s.resolveInvoice(c, req, inv) {
		return
	}
	s.db.storeInvoiceLocked(inv)
	ok(c, inv)
}

func (s *Server) deleteInvoice(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inv := s.visibleInvoice(c)
	if inv == nil {
		return
	}
	delete(s.db.invoices, inv.ID)
	ok(c, nil)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateInvoiceStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !domain.ValidInvoiceStatus(req.Status) {
		invalid(c, fieldError{Field: "status", Message: "unknown status"})
		return
	}
	s.db.mu.Lock()
	inv := s.visibleInvoice(c)
	if inv == nil {
		s.db.mu.Unlock()
		return
	}
	inv.Status = req.Status
	out := *inv
	var recipient string
	if a := s.db.accountForClient(inv.ClientID); a != nil {
		recipient = a.key()
	}
	s.db.mu.Unlock()

	if recipient != "" {
		switch req.Status {
		case domain.InvoiceSent:
			s.pushInvoiceNotice(recipient, domain.NotificationInvoiceCreated, "Nouvelle facture", out)
		case domain.InvoicePaid:
			s.pushInvoiceNotice(recipient, domain.NotificationInvoicePaid, "Facture réglée", out)
		case domain.InvoiceOverdue:
			s.pushInvoiceNotice(recipient, domain.NotificationInvoiceOverdue, "Facture en retard", out)
		}
	}
	ok(c, out)
}

func (s *Server) pushInvoiceNotice(recipient, kind, title string, inv domain.Invoice) {
	id := inv.ID
	s.deliverNotification(recipient, &domain.Notification{
		Title:   title,
		Message: fmt.Sprintf("Facture %s : %.2f € TTC", inv.Number, inv.AmountTTC),
		Type:    kind,
		Data:    &domain.NotificationData{InvoiceID: &id, InvoiceNumber: inv.Number, Amount: inv.AmountTTC},
	})
}

func (s *Server) duplicateInvoice(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	src := s.visibleInvoice(c)
	if src == nil {
		return
	}
	now := time.Now().UTC()
	dup := &domain.Invoice{
		ID: uuid.New(), ClientID: src.ClientID, Status: domain.InvoiceDraft,
		IssuedAt: now, CreatedAt: now, Notes: src.Notes,
	}
	for _, it := range src.Items {
		it.ID = uuid.Nil
		dup.Items = append(dup.Items, it)
	}
	s.db.storeInvoiceLocked(dup)
	created(c, dup)
}

func (s *Server) addInvoiceItem(c *gin.Context) {
	var item domain.InvoiceItem
	if err := c.ShouldBindJSON(&item); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	if strings.TrimSpace(item.Description) == "" || item.Quantity <= 0 || item.UnitPrice < 0 {
		invalid(c, fieldError{Field: "item", Message: "invalid item"})
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inv := s.visibleInvoice(c)
	if inv == nil {
		return
	}
	item.ID = uuid.New()
	inv.Items = append(inv.Items, item)
	s.db.storeInvoiceLocked(inv)
	ok(c, inv)
}

func (s *Server) deleteInvoiceItem(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inv := s.visibleInvoice(c)
	if inv == nil {
		return
	}
	itemID := c.Param("item")
	for i, it := range inv.Items {
		if it.ID.String() == itemID {
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
			s.db.storeInvoiceLocked(inv)
			ok(c, nil)
			return
		}
	}
	fail(c, http.StatusNotFound, "item not found")
}

func (s *Server) exportInvoicePDF(c *gin.Context) {
	s.db.mu.Lock()
	inv := s.visibleInvoice(c)
	if inv == nil {
		s.db.mu.Unlock()
		return
	}
	doc := renderInvoicePDF(*inv)
	number := inv.Number
	s.db.mu.Unlock()
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, number))
	c.Data(http.StatusOK, "application/pdf", doc)
}

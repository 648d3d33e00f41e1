package fakeapi

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/domain"
)

// account is a login: staff users and customer portal accounts.
type account struct {
	ID        string
	Email     string
	Password  string
	UserType  string // domain.UserTypeStaff or domain.UserTypeClient
	Role      string
	FirstName string
	LastName  string
	ClientID  uuid.UUID
	Active    bool
	CreatedAt time.Time
}

func (a *account) key() string { return a.UserType + ":" + a.ID }

func (a *account) senderType() string {
	if a.UserType == domain.UserTypeStaff {
		return domain.SenderStaff
	}
	return domain.SenderCustomer
}

func (a *account) name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func (a *account) user() domain.User {
	id, _ := uuid.Parse(a.ID)
	return domain.User{
		ID: id, Email: a.Email, FirstName: a.FirstName, LastName: a.LastName,
		Role: a.Role, Active: a.Active, CreatedAt: a.CreatedAt,
	}
}

// memory is the whole fake database. Every field is guarded by mu.
type memory struct {
	mu sync.Mutex

	accounts      map[string]*account
	clients       map[uuid.UUID]*domain.Client
	invoices      map[uuid.UUID]*domain.Invoice
	requests      map[uuid.UUID]*domain.AdminRequest
	notifications map[string][]*domain.Notification
	conversations map[uuid.UUID]*domain.Conversation
	messages      map[uuid.UUID][]domain.ChatMessage
	revoked       map[string]struct{}

	// pendingPasswords holds requested passwords until review.
	pendingPasswords map[uuid.UUID]string

	invoiceSeq int
	assistMsgs int
	handoffs   int
}

// Seed accounts, usable against `folio devserver`.
const (
	SeedAdminEmail     = "admin@folio.test"
	SeedAdminPassword  = "admin1234"
	SeedComptableEmail = "compta@folio.test"
	SeedComptablePass  = "compta1234"
	SeedClientEmail    = "client@folio.test"
	SeedClientPassword = "client1234"
)

func newMemory() *memory {
	m := &memory{
		accounts:         make(map[string]*account),
		clients:          make(map[uuid.UUID]*domain.Client),
		invoices:         make(map[uuid.UUID]*domain.Invoice),
		requests:         make(map[uuid.UUID]*domain.AdminRequest),
		notifications:    make(map[string][]*domain.Notification),
		conversations:    make(map[uuid.UUID]*domain.Conversation),
		messages:         make(map[uuid.UUID][]domain.ChatMessage),
		revoked:          make(map[string]struct{}),
		pendingPasswords: make(map[uuid.UUID]string),
	}
	m.seed()
	return m
}

func (m *memory) seed() {
	now := time.Now().UTC()
	m.addAccount(&account{ID: uuid.NewString(), Email: SeedAdminEmail, Password: SeedAdminPassword, UserType: domain.UserTypeStaff,
		Role: domain.RoleAdmin, FirstName: "Claire", LastName: "Martin", Active: true, CreatedAt: now})
	m.addAccount(&account{ID: uuid.NewString(), Email: SeedComptableEmail, Password: SeedComptablePass, UserType: domain.UserTypeStaff,
		Role: domain.RoleComptable, FirstName: "Hugo", LastName: "Bernard", Active: true, CreatedAt: now})

	cl := &domain.Client{ID: uuid.New(), ClientCode: "CL-0001", FirstName: "Ana", LastName: "Diaz", Company: "Hôtel de la Lune",
		Email: SeedClientEmail, City: "Lyon", Country: "France", CreatedAt: now}
	m.clients[cl.ID] = cl
	m.addAccount(&account{ID: uuid.NewString(), Email: SeedClientEmail, Password: SeedClientPassword, UserType: domain.UserTypeClient,
		FirstName: cl.FirstName, LastName: cl.LastName, ClientID: cl.ID, Active: true, CreatedAt: now})

	inv := &domain.Invoice{ID: uuid.New(), ClientID: cl.ID, Status: domain.InvoiceSent, IssuedAt: now.AddDate(0, 0, -3), CreatedAt: now,
		Items: []domain.InvoiceItem{{ID: uuid.New(), Description: "Chambre double, 2 nuits", Quantity: 2, UnitPrice: 95}}}
	m.storeInvoiceLocked(inv)

	id := inv.ID
	m.pushNotificationLocked(domain.UserTypeClient+":"+m.accountByEmail(SeedClientEmail, domain.UserTypeClient).ID, &domain.Notification{
		ID: uuid.New(), Title: "Nouvelle facture", Message: "Facture " + inv.Number + " disponible.",
		Type: domain.NotificationInvoiceCreated, CreatedAt: now,
		Data: &domain.NotificationData{InvoiceID: &id, InvoiceNumber: inv.Number, Amount: inv.AmountTTC},
	})
}

func (m *memory) addAccount(a *account) { m.accounts[a.ID] = a }

func (m *memory) accountByEmail(email, userType string) *account {
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) && (userType == "" || a.UserType == userType) {
			return a
		}
	}
	return nil
}

func (m *memory) accountForClient(clientID uuid.UUID) *account {
	for _, a := range m.accounts {
		if a.UserType == domain.UserTypeClient && a.ClientID == clientID {
			return a
		}
	}
	return nil
}

func (m *memory) staffAccounts(roles ...string) []*account {
	var out []*account
	for _, a := range m.accounts {
		if a.UserType != domain.UserTypeStaff {
			continue
		}
		if len(roles) == 0 || contains(roles, a.Role) {
			out = append(out, a)
		}
	}
	return out
}

func (m *memory) profile(a *account) domain.Profile {
	p := domain.Profile{ID: a.ID, Email: a.Email, FirstName: a.FirstName, LastName: a.LastName, UserType: a.UserType}
	if a.UserType == domain.UserTypeStaff {
		p.Role = a.Role
		return p
	}
	if cl, ok := m.clients[a.ClientID]; ok {
		p.ClientCode = cl.ClientCode
		p.Company = cl.Company
	}
	return p
}

// storeInvoiceLocked numbers new invoices and refreshes totals and client.
func (m *memory) storeInvoiceLocked(inv *domain.Invoice) {
	if inv.Number == "" {
		m.invoiceSeq++
		inv.Number = fmt.Sprintf("F-%d-%04d", inv.IssuedAt.Year(), m.invoiceSeq)
	}
	for i := range inv.Items {
		if inv.Items[i].ID == uuid.Nil {
			inv.Items[i].ID = uuid.New()
		}
	}
	t := inv.Totals()
	inv.AmountHT, inv.AmountTTC = t.HT, t.TTC
	if cl, ok := m.clients[inv.ClientID]; ok {
		c := *cl
		inv.Client = &c
	}
	m.invoices[inv.ID] = inv
}

func (m *memory) pushNotificationLocked(recipient string, n *domain.Notification) {
	m.notifications[recipient] = append(m.notifications[recipient], n)
}

func (m *memory) inbox(recipient string) []*domain.Notification {
	ns := m.notifications[recipient]
	out := make([]*domain.Notification, len(ns))
	copy(out, ns)
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func unreadCount(ns []*domain.Notification) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// paginate slices items into one page. page and limit default to 1 and 20.
func paginate[T any](items []T, page, limit int) domain.Page[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return domain.Page[T]{
		Items:      out,
		Pagination: domain.Pagination{Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit},
	}
}

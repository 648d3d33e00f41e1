package fakeapi

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/domain"
)

type userRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

func (r userRequest) check(create bool) []fieldError {
	var out []fieldError
	if !strings.Contains(r.Email, "@") {
		out = append(out, fieldError{Field: "email", Message: "invalid email"})
	}
	if !domain.ValidRole(r.Role) {
		out = append(out, fieldError{Field: "role", Message: "unknown role"})
	}
	if create && len(r.Password) < 8 {
		out = append(out, fieldError{Field: "password", Message: "at least 8 characters"})
	}
	return out
}

// staffAccount resolves :id to a staff account. The caller holds db.mu.
func (s *Server) staffAccount(c *gin.Context) *account {
	a, found := s.db.accounts[c.Param("id")]
	if !found || a.UserType != domain.UserTypeStaff {
		fail(c, http.StatusNotFound, "user not found")
		return nil
	}
	return a
}

func (s *Server) listUsers(c *gin.Context) {
	role := c.Query("role")
	s.db.mu.Lock()
	var roles []string
	if role != "" {
		roles = []string{role}
	}
	var out []domain.User
	for _, a := range s.db.staffAccounts(roles...) {
		out = append(out, a.user())
	}
	s.db.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	ok(c, paginate(out, intQuery(c, "page", 1), intQuery(c, "limit", 20)))
}

func (s *Server) createUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	if fields := req.check(true); len(fields) > 0 {
		invalid(c, fields...)
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.accountByEmail(req.Email, domain.UserTypeStaff) != nil {
		invalid(c, fieldError{Field: "email", Message: "already in use"})
		return
	}
	a := &account{
		ID: uuid.NewString(), Email: req.Email, Password: req.Password, UserType: domain.UserTypeStaff,
		Role: req.Role, FirstName: req.FirstName, LastName: req.LastName, Active: true, CreatedAt: time.Now().UTC(),
	}
	s.db.addAccount(a)
	created(c, a.user())
}

func (s *Server) updateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	if fields := req.check(false); len(fields) > 0 {
		invalid(c, fields...)
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a := s.staffAccount(c)
	if a == nil {
		return
	}
	if other := s.db.accountByEmail(req.Email, domain.UserTypeStaff); other != nil && other != a {
		invalid(c, fieldError{Field: "email", Message: "already in use"})
		return
	}
	a.Email, a.FirstName, a.LastName, a.Role = req.Email, req.FirstName, req.LastName, req.Role
	if req.Password != "" {
		a.Password = req.Password
	}
	ok(c, a.user())
}

func (s *Server) deleteUser(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a := s.staffAccount(c)
	if a == nil {
		return
	}
	if a.ID == actor(c).ID {
		fail(c, http.StatusConflict, "cannot delete your own account")
		return
	}
	delete(s.db.accounts, a.ID)
	ok(c, nil)
}

func (s *Server) changeUserRole(c *gin.Context) {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !domain.ValidRole(req.Role) {
		invalid(c, fieldError{Field: "role", Message: "unknown role"})
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if a := s.staffAccount(c); a != nil {
		a.Role = req.Role
		ok(c, nil)
	}
}

func (s *Server) resetUserPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Password) < 8 {
		invalid(c, fieldError{Field: "password", Message: "at least 8 characters"})
		return
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if a := s.staffAccount(c); a != nil {
		a.Password = req.Password
		ok(c, nil)
	}
}

// --- admin requests ---

func (s *Server) listRequests(c *gin.Context) {
	status := c.Query("status")
	s.db.mu.Lock()
	var out []domain.AdminRequest
	for _, r := range s.db.requests {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	s.db.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	ok(c, paginate(out, intQuery(c, "page", 1), intQuery(c, "limit", 20)))
}

// pendingRequest resolves :id to a pending request. The caller holds db.mu.
func (s *Server) pendingRequest(c *gin.Context) *domain.AdminRequest {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "request not found")
		return nil
	}
	r, found := s.db.requests[id]
	if !found {
		fail(c, http.StatusNotFound, "request not found")
		return nil
	}
	if r.Status != domain.RequestPending {
		fail(c, http.StatusConflict, "request already reviewed")
		return nil
	}
	return r
}

func (s *Server) approveRequest(c *gin.Context) {
	s.db.mu.Lock()
	r := s.pendingRequest(c)
	if r == nil {
		s.db.mu.Unlock()
		return
	}
	switch r.Type {
	case domain.RequestProfileUpdate:
		if cl, found := s.db.clients[r.ClientID]; found {
			applyClientChanges(cl, r.Changes)
			if a := s.db.accountForClient(cl.ID); a != nil {
				a.FirstName, a.LastName, a.Email = cl.FirstName, cl.LastName, cl.Email
			}
		}
	case domain.RequestPasswordChange:
		if a := s.db.accountForClient(r.ClientID); a != nil {
			a.Password = s.db.pendingPasswords[r.ID]
		}
		delete(s.db.pendingPasswords, r.ID)
	}
	s.reviewLocked(r, domain.RequestApproved, "")
	recipient := s.requester(r)
	s.db.mu.Unlock()

	s.notifyReview(recipient, r.ID, "Demande approuvée", "Votre demande a été acceptée.")
	ok(c, nil)
}

func (s *Server) rejectRequest(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	s.db.mu.Lock()
	r := s.pendingRequest(c)
	if r == nil {
		s.db.mu.Unlock()
		return
	}
	delete(s.db.pendingPasswords, r.ID)
	s.reviewLocked(r, domain.RequestRejected, req.Reason)
	recipient := s.requester(r)
	s.db.mu.Unlock()

	msg := "Votre demande a été refusée."
	if req.Reason != "" {
		msg += " Motif : " + req.Reason
	}
	s.notifyReview(recipient, r.ID, "Demande refusée", msg)
	ok(c, nil)
}

func (s *Server) reviewLocked(r *domain.AdminRequest, status, reason string) {
	now := time.Now().UTC()
	r.Status, r.RejectReason, r.ReviewedAt = status, reason, &now
}

func (s *Server) requester(r *domain.AdminRequest) string {
	if a := s.db.accountForClient(r.ClientID); a != nil {
		return a.key()
	}
	return ""
}

func (s *Server) notifyReview(recipient string, id uuid.UUID, title, msg string) {
	if recipient == "" {
		return
	}
	s.deliverNotification(recipient, &domain.Notification{
		Title: title, Message: msg, Type: domain.NotificationRequest,
		Data: &domain.NotificationData{RequestID: &id},
	})
}

func applyClientChanges(cl *domain.Client, changes map[string]string) {
	for k, v := range changes {
		switch k {
		case "first_name":
			cl.FirstName = v
		case "last_name":
			cl.LastName = v
		case "company":
			cl.Company = v
		case "email":
			cl.Email = v
		case "phone":
			cl.Phone = v
		case "address":
			cl.Address = v
		case "city":
			cl.City = v
		case "country":
			cl.Country = v
		}
	}
}

var editableClientFields = []string{"first_name", "last_name", "company", "email", "phone", "address", "city", "country"}

// --- customer self-service ---

func (s *Server) getMyProfile(c *gin.Context) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cl, found := s.db.clients[actor(c).ClientID]
	if !found {
		fail(c, http.StatusNotFound, "client not found")
		return
	}
	ok(c, cl)
}

// fileRequest stores a new pending request and alerts every admin. secret
// is the new password for password changes and never leaves the server.
func (s *Server) fileRequest(c *gin.Context, r *domain.AdminRequest, secret string) {
	a := actor(c)
	s.db.mu.Lock()
	r.ID = uuid.New()
	r.Status = domain.RequestPending
	r.ClientID = a.ClientID
	r.ClientName = a.name()
	r.CreatedAt = time.Now().UTC()
	s.db.requests[r.ID] = r
	if secret != "" {
		s.db.pendingPasswords[r.ID] = secret
	}
	var admins []string
	for _, adm := range s.db.staffAccounts(domain.RoleAdmin) {
		admins = append(admins, adm.key())
	}
	out := *r
	s.db.mu.Unlock()

	for _, key := range admins {
		id := out.ID
		s.deliverNotification(key, &domain.Notification{
			Title: "Nouvelle demande", Message: out.ClientName + " a soumis une demande.",
			Type: domain.NotificationRequest, Data: &domain.NotificationData{RequestID: &id},
		})
	}
	created(c, out)
}

func (s *Server) requestProfileChange(c *gin.Context) {
	var req struct {
		Changes map[string]string `json:"changes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	changes := make(map[string]string)
	for k, v := range req.Changes {
		if contains(editableClientFields, k) {
			changes[k] = v
		}
	}
	if len(changes) == 0 {
		invalid(c, fieldError{Field: "changes", Message: "nothing to change"})
		return
	}
	s.fileRequest(c, &domain.AdminRequest{Type: domain.RequestProfileUpdate, Changes: changes}, "")
}

func (s *Server) requestPasswordChange(c *gin.Context) {
	var req struct {
		Current string `json:"current_password"`
		Next    string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "malformed body")
		return
	}
	if len(req.Next) < 8 {
		invalid(c, fieldError{Field: "new_password", Message: "at least 8 characters"})
		return
	}
	s.db.mu.Lock()
	current := actor(c).Password
	s.db.mu.Unlock()
	if current != req.Current {
		invalid(c, fieldError{Field: "current_password", Message: "incorrect"})
		return
	}
	s.fileRequest(c, &domain.AdminRequest{Type: domain.RequestPasswordChange}, req.Next)
}

func (s *Server) listMyInvoices(c *gin.Context) {
	clientID := actor(c).ClientID
	s.db.mu.Lock()
	out := s.invoicesWhere(func(inv *domain.Invoice) bool {
		return inv.ClientID == clientID && inv.Status != domain.InvoiceDraft
	})
	s.db.mu.Unlock()
	ok(c, paginate(out, intQuery(c, "page", 1), intQuery(c, "limit", 20)))
}

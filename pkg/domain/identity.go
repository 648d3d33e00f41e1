package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Staff roles.
const (
	RoleAdmin      = "admin"
	RoleCommercial = "commercial"
	RoleComptable  = "comptable"
)

// StaffRoles lists every valid staff role.
var StaffRoles = []string{RoleAdmin, RoleCommercial, RoleComptable}

// Role-class tags persisted next to the access token.
const (
	UserTypeStaff  = "staff"
	UserTypeClient = "client"
)

// ErrUnknownIdentity is returned when a profile carries neither a staff role
// nor a customer code.
var ErrUnknownIdentity = errors.New("domain: cannot resolve identity from profile")

// ValidRole returns true if role is a known staff role.
func ValidRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the loosely-typed identity payload returned by login and verify.
// Staff profiles carry Role; customer profiles carry ClientCode.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Company    string `json:"company,omitempty"`
	Role       string `json:"role,omitempty"`
	ClientCode string `json:"code_client,omitempty"`
	UserType   string `json:"user_type,omitempty"`
}

// DisplayName returns "First Last", falling back to company then email.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	switch {
	case name != "":
		return name
	case p.Company != "":
		return p.Company
	default:
		return p.Email
	}
}

// Identity is the logged-in actor. It is resolved once at login and carried
// explicitly afterwards; the only implementations are StaffIdentity and
// CustomerIdentity.
type Identity interface {
	UserID() string
	Name() string
	Email() string
	// SenderType is the chat role tag ("staff" or "customer").
	SenderType() string
	// UserType is the persisted role-class tag ("staff" or "client").
	UserType() string
	isIdentity()
}

// StaffIdentity is internal personnel: admin, sales or accounting.
type StaffIdentity struct {
	Profile Profile
	Role    string
}

func (s StaffIdentity) UserID() string     { return s.Profile.ID }
func (s StaffIdentity) Name() string       { return s.Profile.DisplayName() }
func (s StaffIdentity) Email() string      { return s.Profile.Email }
func (s StaffIdentity) SenderType() string { return SenderStaff }
func (s StaffIdentity) UserType() string   { return UserTypeStaff }
func (StaffIdentity) isIdentity()          {}

// CustomerIdentity is a hotel client using the self-service screens.
type CustomerIdentity struct {
	Profile    Profile
	ClientCode string
}

func (c CustomerIdentity) UserID() string     { return c.Profile.ID }
func (c CustomerIdentity) Name() string       { return c.Profile.DisplayName() }
func (c CustomerIdentity) Email() string      { return c.Profile.Email }
func (c CustomerIdentity) SenderType() string { return SenderCustomer }
func (c CustomerIdentity) UserType() string   { return UserTypeClient }
func (CustomerIdentity) isIdentity()          {}

// ResolveIdentity turns a profile into an Identity. An explicit role-class tag
// wins; otherwise a staff role marks staff and a customer code marks a customer.
func ResolveIdentity(p Profile, userType string) (Identity, error) {
	if userType == "" {
		userType = p.UserType
	}
	switch userType {
	case UserTypeStaff:
		if p.Role != "" && !ValidRole(p.Role) {
			return nil, fmt.Errorf("domain.ResolveIdentity: unknown staff role %q", p.Role)
		}
		return StaffIdentity{Profile: p, Role: p.Role}, nil
	case UserTypeClient, SenderCustomer:
		return CustomerIdentity{Profile: p, ClientCode: p.ClientCode}, nil
	case "":
	default:
		return nil, fmt.Errorf("domain.ResolveIdentity: unknown user type %q", userType)
	}

	if p.Role != "" {
		if !ValidRole(p.Role) {
			return nil, fmt.Errorf("domain.ResolveIdentity: unknown staff role %q", p.Role)
		}
		return StaffIdentity{Profile: p, Role: p.Role}, nil
	}
	if p.ClientCode != "" {
		return CustomerIdentity{Profile: p, ClientCode: p.ClientCode}, nil
	}
	return nil, ErrUnknownIdentity
}

// IsStaff reports whether id is a staff identity.
func IsStaff(id Identity) bool {
	_, ok := id.(StaffIdentity)
	return ok
}

// IsCustomer reports whether id is a customer identity.
func IsCustomer(id Identity) bool {
	_, ok := id.(CustomerIdentity)
	return ok
}

// HasRole reports whether id is staff with one of the given roles.
func HasRole(id Identity, roles ...string) bool {
	s, ok := id.(StaffIdentity)
	if !ok {
		return false
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// CanManageUsers gates the user administration screen.
func CanManageUsers(id Identity) bool { return HasRole(id, RoleAdmin) }

// CanReviewRequests gates approving or rejecting admin requests.
func CanReviewRequests(id Identity) bool { return HasRole(id, RoleAdmin) }

// CanManageInvoices gates invoice and client mutations.
func CanManageInvoices(id Identity) bool {
	return HasRole(id, RoleAdmin, RoleCommercial, RoleComptable)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a staff account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"` // "admin", "commercial", "comptable"
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Admin request types and statuses.
const (
	RequestProfileUpdate  = "profile_update"
	RequestPasswordChange = "password_change"

	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// AdminRequest is a customer-initiated change awaiting staff review.
type AdminRequest struct {
	ID           uuid.UUID         `json:"id"`
	Type         string            `json:"type"`
	Status       string            `json:"status"`
	ClientID     uuid.UUID         `json:"client_id"`
	ClientName   string            `json:"client_name,omitempty"`
	Changes      map[string]string `json:"changes,omitempty"`
	RejectReason string            `json:"reject_reason,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty"`
}

// Pagination describes one page of a list endpoint.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// HasMore reports whether a page after this one exists.
func (p Pagination) HasMore() bool {
	return p.Page < p.Pages
}

// Page is a paginated list response.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

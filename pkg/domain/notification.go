package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification types pushed by the back-end.
const (
	NotificationInvoiceCreated = "invoice_created"
	NotificationInvoicePaid    = "invoice_paid"
	NotificationInvoiceOverdue = "invoice_overdue"
	NotificationRequest        = "admin_request"
	NotificationChatMessage    = "chat_message"
	NotificationSystem         = "system"
)

// Notification represents a single inbox entry.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      string            `json:"type"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	Data      *NotificationData `json:"data,omitempty"`
}

// NotificationData is the optional structured payload attached to a notification.
type NotificationData struct {
	InvoiceID      *uuid.UUID `json:"invoice_id,omitempty"`
	InvoiceNumber  string     `json:"invoice_number,omitempty"`
	Amount         float64    `json:"amount,omitempty"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	RequestID      *uuid.UUID `json:"request_id,omitempty"`
}

// UnreadSnapshot is the full set of unread notifications pushed right after
// the live connection authenticates.
type UnreadSnapshot struct {
	Notifications []Notification `json:"notifications"`
	Count         int            `json:"count"`
}

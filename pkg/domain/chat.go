package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation statuses.
const (
	ConversationActive = "active"
	ConversationClosed = "closed"
)

// Sender types. Staff and customer map onto the identity variants; the
// assistant is the automated participant.
const (
	SenderStaff     = "staff"
	SenderCustomer  = "customer"
	SenderAssistant = "assistant"
)

// Message kinds.
const (
	MessageText   = "text"
	MessageSystem = "system"
)

// DefaultConversationSubject is used when a customer opens a chat without
// choosing a subject.
const DefaultConversationSubject = "Support client"

// Conversation is a support thread between one customer and the staff.
type Conversation struct {
	ID            uuid.UUID  `json:"id"`
	Subject       string     `json:"subject"`
	Status        string     `json:"status"` // "active", "closed"
	ClientID      uuid.UUID  `json:"client_id"`
	ClientName    string     `json:"client_name,omitempty"`
	UnreadStaff   int        `json:"unread_staff"`
	UnreadClient  int        `json:"unread_client"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Active reports whether messages may be sent to the conversation.
func (c Conversation) Active() bool {
	return c.Status == ConversationActive
}

// UnreadFor returns the unread counter that belongs to the given sender type.
func (c Conversation) UnreadFor(senderType string) int {
	if senderType == SenderStaff {
		return c.UnreadStaff
	}
	return c.UnreadClient
}

// LastActivity is the time of the last message, or creation when empty.
func (c Conversation) LastActivity() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

// ChatMessage is a single message in a conversation. Messages are append-only.
type ChatMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderType     string    `json:"sender_type"` // "staff", "customer", "assistant"
	SenderName     string    `json:"sender_name,omitempty"`
	Content        string    `json:"content"`
	Kind           string    `json:"kind"` // "text", "system"
	CreatedAt      time.Time `json:"created_at"`
}

// FromAssistant reports whether the automated assistant authored the message.
func (m ChatMessage) FromAssistant() bool {
	return m.SenderType == SenderAssistant
}

// ParticipantKey identifies a participant across roles: the same numeric id
// may exist once as staff and once as customer.
type ParticipantKey struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
}

// Participant is a presence entry in the joined conversation.
type Participant struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	Name     string `json:"name,omitempty"`
	Online   bool   `json:"online"`
}

// Key returns the composite presence key.
func (p Participant) Key() ParticipantKey {
	return ParticipantKey{UserID: p.UserID, UserType: p.UserType}
}

// ChatStats summarizes the support desk for staff dashboards.
type ChatStats struct {
	Active      int `json:"active"`
	Closed      int `json:"closed"`
	UnreadTotal int `json:"unread_total"`
}

// AssistantStatus reports whether the assistant is answering in a conversation.
type AssistantStatus struct {
	Active bool   `json:"active"`
	Reason string `json:"reason,omitempty"`
}

// AssistantStats summarizes assistant activity.
type AssistantStats struct {
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
	Handoffs      int `json:"handoffs"`
}

package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/naveenspark/folio/pkg/domain"
)

// ConversationDetail is a conversation with its participants.
type ConversationDetail struct {
	Conversation domain.Conversation  `json:"conversation"`
	Participants []domain.Participant `json:"participants,omitempty"`
}

// ListConversations returns a page of conversations visible to the caller.
func (c *Client) ListConversations(ctx context.Context, page, limit int, search, status string) (*domain.Page[domain.Conversation], error) {
	q := pageParams(page, limit, map[string]string{"search": search, "status": status})
	var p domain.Page[domain.Conversation]
	if err := c.get(ctx, "/chat/conversations"+q, &p); err != nil {
		return nil, fmt.Errorf("client.ListConversations: %w", err)
	}
	return &p, nil
}

// GetConversation fetches one conversation.
func (c *Client) GetConversation(ctx context.Context, id string) (*ConversationDetail, error) {
	var d ConversationDetail
	if err := c.get(ctx, "/chat/conversations/"+url.PathEscape(id), &d); err != nil {
		return nil, fmt.Errorf("client.GetConversation: %w", err)
	}
	return &d, nil
}

// CreateConversation opens a new support conversation. Customers only.
func (c *Client) CreateConversation(ctx context.Context, subject string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.post(ctx, "/chat/conversations", map[string]string{"subject": subject}, &conv); err != nil {
		return nil, fmt.Errorf("client.CreateConversation: %w", err)
	}
	return &conv, nil
}

// ListMessages returns a page of a conversation's transcript, oldest first.
func (c *Client) ListMessages(ctx context.Context, conversationID string, page, limit int) (*domain.Page[domain.ChatMessage], error) {
	var p domain.Page[domain.ChatMessage]
	path := "/chat/conversations/" + url.PathEscape(conversationID) + "/messages" + pageParams(page, limit, nil)
	if err := c.get(ctx, path, &p); err != nil {
		return nil, fmt.Errorf("client.ListMessages: %w", err)
	}
	return &p, nil
}

// CloseConversation marks a conversation closed. Staff only.
func (c *Client) CloseConversation(ctx context.Context, id string) error {
	if err := c.patch(ctx, "/chat/conversations/"+url.PathEscape(id)+"/close", nil, nil); err != nil {
		return fmt.Errorf("client.CloseConversation: %w", err)
	}
	return nil
}

// ReopenConversation marks a closed conversation active again. Staff only.
func (c *Client) ReopenConversation(ctx context.Context, id string) error {
	if err := c.patch(ctx, "/chat/conversations/"+url.PathEscape(id)+"/reopen", nil, nil); err != nil {
		return fmt.Errorf("client.ReopenConversation: %w", err)
	}
	return nil
}

// ChatStats returns support desk counters.
func (c *Client) ChatStats(ctx context.Context) (*domain.ChatStats, error) {
	var s domain.ChatStats
	if err := c.get(ctx, "/chat/stats", &s); err != nil {
		return nil, fmt.Errorf("client.ChatStats: %w", err)
	}
	return &s, nil
}

// --- Assistant ---

// AssistantStatus reports whether the assistant is answering in a conversation.
func (c *Client) AssistantStatus(ctx context.Context, conversationID string) (*domain.AssistantStatus, error) {
	q := ""
	if conversationID != "" {
		q = "?conversation_id=" + url.QueryEscape(conversationID)
	}
	var s domain.AssistantStatus
	if err := c.get(ctx, "/assistant/status"+q, &s); err != nil {
		return nil, fmt.Errorf("client.AssistantStatus: %w", err)
	}
	return &s, nil
}

// AssistantStats returns assistant activity counters.
func (c *Client) AssistantStats(ctx context.Context) (*domain.AssistantStats, error) {
	var s domain.AssistantStats
	if err := c.get(ctx, "/assistant/stats", &s); err != nil {
		return nil, fmt.Errorf("client.AssistantStats: %w", err)
	}
	return &s, nil
}

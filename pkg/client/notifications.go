package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/naveenspark/folio/pkg/domain"
)

// NotificationPage is one page of the inbox plus the server's unread count.
type NotificationPage struct {
	Items       []domain.Notification `json:"items"`
	Pagination  domain.Pagination     `json:"pagination"`
	UnreadCount int                   `json:"unread_count"`
}

// UnreadCount is returned by inbox mutations.
type UnreadCount struct {
	UnreadCount int `json:"unread_count"`
	Removed     int `json:"removed,omitempty"`
}

// ListNotifications returns a page of the caller's inbox.
func (c *Client) ListNotifications(ctx context.Context, page, limit int, unreadOnly bool) (*NotificationPage, error) {
	extra := map[string]string{}
	if unreadOnly {
		extra["unread_only"] = strconv.FormatBool(true)
	}
	var p NotificationPage
	if err := c.get(ctx, "/notifications"+pageParams(page, limit, extra), &p); err != nil {
		return nil, fmt.Errorf("client.ListNotifications: %w", err)
	}
	return &p, nil
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) (*UnreadCount, error) {
	var out UnreadCount
	if err := c.patch(ctx, "/notifications/"+url.PathEscape(id)+"/read", nil, &out); err != nil {
		return nil, fmt.Errorf("client.MarkNotificationRead: %w", err)
	}
	return &out, nil
}

// MarkAllNotificationsRead marks every notification read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (*UnreadCount, error) {
	var out UnreadCount
	if err := c.patch(ctx, "/notifications/read-all", nil, &out); err != nil {
		return nil, fmt.Errorf("client.MarkAllNotificationsRead: %w", err)
	}
	return &out, nil
}

// DeleteNotification deletes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	if err := c.del(ctx, "/notifications/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("client.DeleteNotification: %w", err)
	}
	return nil
}

// ClearNotifications deletes every notification, or only the read ones.
func (c *Client) ClearNotifications(ctx context.Context, onlyRead bool) (*UnreadCount, error) {
	q := ""
	if onlyRead {
		q = "?only_read=true"
	}
	var out UnreadCount
	if err := c.doRequest(ctx, "DELETE", "/notifications"+q, nil, &out); err != nil {
		return nil, fmt.Errorf("client.ClearNotifications: %w", err)
	}
	return &out, nil
}

// TestNotification asks the server to push a sample notification. Staff only.
func (c *Client) TestNotification(ctx context.Context) (*domain.Notification, error) {
	var n domain.Notification
	if err := c.post(ctx, "/notifications/test", nil, &n); err != nil {
		return nil, fmt.Errorf("client.TestNotification: %w", err)
	}
	return &n, nil
}

package fakeapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/pkg/domain"
	"github.com/naveenspark/folio/pkg/inbox"
)

type unreadPayload struct {
	UnreadCount int `json:"unread_count"`
	Removed     int `json:"removed,omitempty"`
}

type idEvent struct {
	ID uuid.UUID `json:"id"`
}

type clearedEvent struct {
	OnlyRead bool `json:"onlyRead"`
}

// deliverNotification stores n for recipient and pushes it live.
func (s *Server) deliverNotification(recipient string, n *domain.Notification) {
	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	s.db.mu.Lock()
	s.db.pushNotificationLocked(recipient, n)
	out := *n
	s.db.mu.Unlock()
	if err := s.notify.SendEvent(recipient, inbox.EventNew, out); err != nil {
		s.log.Warn("fakeapi: push notification", zap.Error(err))
	}
}

// onNotifyConnect pushes the unread snapshot right after authentication.
func (s *Server) onNotifyConnect(c *Client) {
	s.db.mu.Lock()
	var unread []domain.Notification
	for _, n := range s.db.inbox(c.key) {
		if !n.Read {
			unread = append(unread, *n)
		}
	}
	s.db.mu.Unlock()
	b, err := frame(inbox.EventUnread, domain.UnreadSnapshot{Notifications: unread, Count: len(unread)})
	if err == nil {
		c.enqueue(b)
	}
}

func (s *Server) listNotifications(c *gin.Context) {
	key := actor(c).key()
	unreadOnly, _ := strconv.ParseBool(c.Query("unread_only"))
	s.db.mu.Lock()
	all := s.db.inbox(key)
	s.db.mu.Unlock()

	var items []domain.Notification
	for _, n := range all {
		if !unreadOnly || !n.Read {
			items = append(items, *n)
		}
	}
	page := paginate(items, intQuery(c, "page", 1), intQuery(c, "limit", 20))
	ok(c, gin.H{"items": page.Items, "pagination": page.Pagination, "unread_count": unreadCount(all)})
}

func (s *Server) listMyNotifications(c *gin.Context) {
	s.db.mu.Lock()
	all := s.db.inbox(actor(c).key())
	s.db.mu.Unlock()
	items := make([]domain.Notification, 0, len(all))
	for _, n := range all {
		items = append(items, *n)
	}
	ok(c, paginate(items, intQuery(c, "page", 1), intQuery(c, "limit", 20)))
}

func (s *Server) markRead(c *gin.Context) {
	key := actor(c).key()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "notification not found")
		return
	}
	s.db.mu.Lock()
	var found bool
	for _, n := range s.db.notifications[key] {
		if n.ID == id {
			n.Read, found = true, true
		}
	}
	count := unreadCount(s.db.notifications[key])
	s.db.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "notification not found")
		return
	}
	_ = s.notify.SendEvent(key, inbox.EventRead, idEvent{ID: id})
	ok(c, unreadPayload{UnreadCount: count})
}

func (s *Server) markAllRead(c *gin.Context) {
	key := actor(c).key()
	s.db.mu.Lock()
	for _, n := range s.db.notifications[key] {
		n.Read = true
	}
	s.db.mu.Unlock()
	_ = s.notify.SendEvent(key, inbox.EventAllRead, nil)
	ok(c, unreadPayload{})
}

func (s *Server) deleteNotification(c *gin.Context) {
	key := actor(c).key()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "notification not found")
		return
	}
	s.db.mu.Lock()
	ns := s.db.notifications[key]
	idx := -1
	for i, n := range ns {
		if n.ID == id {
			idx = i
		}
	}
	if idx >= 0 {
		s.db.notifications[key] = append(ns[:idx], ns[idx+1:]...)
	}
	s.db.mu.Unlock()
	if idx < 0 {
		fail(c, http.StatusNotFound, "notification not found")
		return
	}
	_ = s.notify.SendEvent(key, inbox.EventDeleted, idEvent{ID: id})
	ok(c, nil)
}

func (s *Server) clearNotifications(c *gin.Context) {
	key := actor(c).key()
	onlyRead, _ := strconv.ParseBool(c.Query("only_read"))
	s.db.mu.Lock()
	var kept []*domain.Notification
	removed := 0
	for _, n := range s.db.notifications[key] {
		if onlyRead && !n.Read {
			kept = append(kept, n)
			continue
		}
		removed++
	}
	s.db.notifications[key] = kept
	count := unreadCount(kept)
	s.db.mu.Unlock()
	_ = s.notify.SendEvent(key, inbox.EventCleared, clearedEvent{OnlyRead: onlyRead})
	ok(c, unreadPayload{UnreadCount: count, Removed: removed})
}

func (s *Server) testNotification(c *gin.Context) {
	n := &domain.Notification{Title: "Notification de test", Message: "Les notifications en direct fonctionnent.", Type: domain.NotificationSystem}
	s.deliverNotification(actor(c).key(), n)
	ok(c, n)
}

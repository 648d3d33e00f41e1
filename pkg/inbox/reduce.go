package inbox

import (
	"sort"

	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

// The reducers below are shared by push handlers and by the REST actions, so
// applying the same change twice (REST success, then the server's echo) is a
// no-op the second time.

func sortRecentFirst(ns []domain.Notification) {
	sort.SliceStable(ns, func(a, b int) bool {
		return ns[a].CreatedAt.After(ns[b].CreatedAt)
	})
}

func indexOf(ns []domain.Notification, id uuid.UUID) int {
	for i := range ns {
		if ns[i].ID == id {
			return i
		}
	}
	return -1
}

func countUnread(ns []domain.Notification) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}

// dedup keeps the first occurrence of every ID.
func dedup(ns []domain.Notification) []domain.Notification {
	seen := make(map[uuid.UUID]struct{}, len(ns))
	out := ns[:0:0]
	for _, n := range ns {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}

// applySnapshot replaces the list with the unread snapshot sent after
// authentication.
func applySnapshot(st *State, snap domain.UnreadSnapshot) {
	ns := dedup(append([]domain.Notification(nil), snap.Notifications...))
	sortRecentFirst(ns)
	st.Notifications = ns
	st.Unread = snap.Count
	if st.Unread < countUnread(ns) {
		st.Unread = countUnread(ns)
	}
}

// applyUnreadCount takes the server's count after a REST action. It never
// drops below zero or below what the loaded window shows unread.
func applyUnreadCount(st *State, res *client.UnreadCount) {
	if res == nil {
		return
	}
	st.Unread = max(res.UnreadCount, countUnread(st.Notifications), 0)
}

// addNotification inserts n unless an entry with the same ID exists.
func addNotification(st *State, n domain.Notification) bool {
	if indexOf(st.Notifications, n.ID) >= 0 {
		return false
	}
	st.Notifications = append([]domain.Notification{n}, st.Notifications...)
	sortRecentFirst(st.Notifications)
	if !n.Read {
		st.Unread++
	}
	return true
}

func markRead(st *State, id uuid.UUID) {
	i := indexOf(st.Notifications, id)
	if i < 0 || st.Notifications[i].Read {
		return
	}
	st.Notifications[i].Read = true
	if st.Unread > 0 {
		st.Unread--
	}
}

func markAllRead(st *State) {
	for i := range st.Notifications {
		st.Notifications[i].Read = true
	}
	st.Unread = 0
}

func removeNotification(st *State, id uuid.UUID) {
	i := indexOf(st.Notifications, id)
	if i < 0 {
		return
	}
	wasUnread := !st.Notifications[i].Read
	st.Notifications = append(st.Notifications[:i:i], st.Notifications[i+1:]...)
	if wasUnread && st.Unread > 0 {
		st.Unread--
	}
}

func clearNotifications(st *State, onlyRead bool) {
	if !onlyRead {
		st.Notifications = nil
		st.Unread = 0
		return
	}
	kept := st.Notifications[:0:0]
	for _, n := range st.Notifications {
		if !n.Read {
			kept = append(kept, n)
		}
	}
	st.Notifications = kept
}

// applyPage merges a REST page: page 1 replaces, later pages append.
func applyPage(st *State, p *client.NotificationPage) {
	if p.Pagination.Page <= 1 {
		st.Notifications = dedup(append([]domain.Notification(nil), p.Items...))
	} else {
		st.Notifications = dedup(append(st.Notifications, p.Items...))
	}
	sortRecentFirst(st.Notifications)
	st.Unread = p.UnreadCount
	st.Pagination = p.Pagination
}

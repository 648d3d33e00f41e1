package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
	"github.com/naveenspark/folio/pkg/inbox"
)

// notificationEngine is the part of *inbox.Inbox the screen drives.
type notificationEngine interface {
	Snapshot() inbox.State
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context) error
	DeleteOne(ctx context.Context, id uuid.UUID) error
	ClearAll(ctx context.Context, onlyRead bool) error
	LoadPage(ctx context.Context, page, pageSize int, unreadOnly bool) error
}

// inboxChangedMsg is sent whenever the notification engine publishes a new
// state.
type inboxChangedMsg struct{}

type notificationsModel struct {
	engine     notificationEngine
	client     *client.Client
	staff      bool
	st         inbox.State
	cursor     int
	page       int
	unreadOnly bool
	confirm    string // "read" or "all" while a clear awaits y/n
	statusMsg  string
	width      int
	height     int
}

func newNotificationsModel(e notificationEngine, c *client.Client, staff bool) notificationsModel {
	m := notificationsModel{engine: e, client: c, staff: staff, page: 1}
	if e != nil {
		m.st = e.Snapshot()
	}
	return m
}

func (m notificationsModel) Init() tea.Cmd {
	return m.loadPage()
}

func (m notificationsModel) loadPage() tea.Cmd {
	e := m.engine
	page, unread := m.page, m.unreadOnly
	if e == nil {
		return nil
	}
	return act("", false, func(ctx context.Context) error {
		return e.LoadPage(ctx, page, pageSize, unread)
	})
}

func (m notificationsModel) setState(st inbox.State) notificationsModel {
	m.st = st
	m.cursor = clampCursor(m.cursor, len(st.Notifications))
	return m
}

func (m notificationsModel) selected() (domain.Notification, bool) {
	if m.cursor < len(m.st.Notifications) {
		return m.st.Notifications[m.cursor], true
	}
	return domain.Notification{}, false
}

func (m notificationsModel) Update(msg tea.Msg) (notificationsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case actionDoneMsg:
		if msg.err != nil {
			m.statusMsg = errText(msg.err)
		} else if msg.note != "" {
			m.statusMsg = msg.note
		}

	case tea.KeyMsg:
		m.statusMsg = ""
		if m.confirm != "" {
			return m.updateConfirm(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m notificationsModel) handleKey(msg tea.KeyMsg) (notificationsModel, tea.Cmd) {
	if cur, ok := moveCursor(m.cursor, len(m.st.Notifications), msg.String()); ok {
		m.cursor = cur
		return m, nil
	}
	if m.engine == nil {
		return m, nil
	}
	e := m.engine
	switch msg.String() {
	case "enter", "m":
		if n, ok := m.selected(); ok && !n.Read {
			return m, act("", false, func(ctx context.Context) error {
				return e.MarkAsRead(ctx, n.ID)
			})
		}
	case "M":
		return m, act("all read", false, e.MarkAllAsRead)
	case "D", "delete":
		if n, ok := m.selected(); ok {
			return m, act("deleted", false, func(ctx context.Context) error {
				return e.DeleteOne(ctx, n.ID)
			})
		}
	case "C":
		m.confirm = "read"
	case "X":
		m.confirm = "all"
	case "u":
		m.unreadOnly = !m.unreadOnly
		m.page = 1
		m.cursor = 0
		return m, m.loadPage()
	case "]":
		if m.st.Pagination.HasMore() {
			m.page++
			return m, m.loadPage()
		}
	case "[":
		if m.page > 1 {
			m.page--
			return m, m.loadPage()
		}
	case "r":
		return m, m.loadPage()
	case "t":
		if m.staff && m.client != nil {
			c := m.client
			return m, act("test notification sent", false, func(ctx context.Context) error {
				_, err := c.TestNotification(ctx)
				return err
			})
		}
	case "c":
		if n, ok := m.selected(); ok && n.Data != nil && n.Data.InvoiceNumber != "" {
			return m, copyCmd(n.Data.InvoiceNumber)
		}
	}
	return m, nil
}

func (m notificationsModel) updateConfirm(msg tea.KeyMsg) (notificationsModel, tea.Cmd) {
	onlyRead := m.confirm == "read"
	m.confirm = ""
	if msg.String() != "y" {
		m.statusMsg = "cancelled"
		return m, nil
	}
	e := m.engine
	return m, act("cleared", false, func(ctx context.Context) error {
		return e.ClearAll(ctx, onlyRead)
	})
}

func notificationIcon(kind string) string {
	switch kind {
	case domain.NotificationInvoiceCreated:
		return "◆"
	case domain.NotificationInvoicePaid:
		return okStyle.Render("✓")
	case domain.NotificationInvoiceOverdue:
		return errStyle.Render("!")
	case domain.NotificationChatMessage:
		return "✉"
	case domain.NotificationRequest:
		return "?"
	}
	return "·"
}

func (m notificationsModel) View() string {
	var b strings.Builder
	head := []string{fmt.Sprintf("%d unread", m.st.Unread)}
	if m.unreadOnly {
		head = append(head, "unread only")
	}
	if !m.st.Connected {
		head = append(head, "offline")
	}
	if m.st.Pagination.Pages > 1 {
		head = append(head, fmt.Sprintf("page %d/%d", m.st.Pagination.Page, m.st.Pagination.Pages))
	}
	b.WriteString(" " + dimStyle.Render(strings.Join(head, " · ")) + "\n")

	if m.st.Loading && len(m.st.Notifications) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if len(m.st.Notifications) == 0 {
		b.WriteString("\n " + dimStyle.Render("no notifications") + "\n")
	}

	msgW := m.width - 40
	if msgW < 20 {
		msgW = 20
	}
	for i, n := range m.st.Notifications {
		cursor := "  "
		if i == m.cursor {
			cursor = accentStyle.Render("▸ ")
		}
		title := normalStyle
		dot := " "
		if !n.Read {
			title = selectedStyle
			dot = presenceDotStyle.Render("●")
		}
		fmt.Fprintf(&b, " %s%s %s %s  %s\n", cursor, dot, notificationIcon(n.Type),
			title.Render(padRight(n.Title, 28)),
			dimStyle.Render(formatTime(n.CreatedAt)))
		if n.Message != "" {
			b.WriteString("       " + chatTextStyle.Render(truncStr(oneLine(n.Message), msgW)) + "\n")
		}
	}

	switch {
	case m.confirm == "read":
		b.WriteString("\n " + errStyle.Render("clear read notifications? (y/n)") + "\n")
	case m.confirm == "all":
		b.WriteString("\n " + errStyle.Render("clear all notifications? (y/n)") + "\n")
	case m.statusMsg != "":
		b.WriteString("\n " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m notificationsModel) helpKeys() string {
	pairs := []string{"enter", "mark read", "M", "all read", "D", "delete", "C", "clear read", "X", "clear all", "u", "unread only"}
	if m.staff {
		pairs = append(pairs, "t", "test")
	}
	return helpBar(pairs...)
}

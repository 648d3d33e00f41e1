package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/chat"
	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

// chatEngine is the part of *chat.Desk the screen drives.
type chatEngine interface {
	Snapshot() chat.State
	LoadConversations(ctx context.Context, page int, search, status string) error
	StartChat(ctx context.Context) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, subject string) (*domain.Conversation, error)
	JoinConversation(ctx context.Context, convID uuid.UUID) error
	LeaveConversation()
	SendMessage(text string) error
	HandleTyping()
	StopTyping()
	CloseConversation(ctx context.Context, convID uuid.UUID) error
	ReopenConversation(ctx context.Context, convID uuid.UUID) error
}

// deskChangedMsg is sent whenever the chat engine publishes a new state.
type deskChangedMsg struct{}

type chatStatsMsg struct {
	chat      *domain.ChatStats
	assistant *domain.AssistantStats
	err       error
}

var conversationFilters = []string{"", domain.ConversationActive, domain.ConversationClosed}

type chatModel struct {
	engine    chatEngine
	client    *client.Client
	staff     bool
	selfID    string
	selfName  string
	st        chat.State
	cursor    int
	filter    int
	input     string
	subject   *form
	statusMsg string
	frame     int
	width     int
	height    int
}

func newChatModel(e chatEngine, c *client.Client, id domain.Identity) chatModel {
	m := chatModel{engine: e, client: c}
	if id != nil {
		m.staff = domain.IsStaff(id)
		m.selfID = id.UserID()
		m.selfName = id.Name()
	}
	if e != nil {
		m.st = e.Snapshot()
	}
	return m
}

// Init lists conversations for staff. Customers go straight into their
// current conversation.
func (m chatModel) Init() tea.Cmd {
	e := m.engine
	if e == nil {
		return nil
	}
	if m.staff {
		return m.reload()
	}
	if m.st.Current != nil {
		return nil
	}
	return act("", false, func(ctx context.Context) error {
		_, err := e.StartChat(ctx)
		return err
	})
}

func (m chatModel) reload() tea.Cmd {
	e := m.engine
	status := conversationFilters[m.filter]
	return act("", false, func(ctx context.Context) error {
		return e.LoadConversations(ctx, 1, "", status)
	})
}

func (m chatModel) setState(st chat.State) chatModel {
	m.st = st
	m.cursor = clampCursor(m.cursor, len(st.Conversations))
	return m
}

func (m chatModel) inConversation() bool {
	return m.st.Current != nil
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
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

	case formDoneMsg:
		if m.subject == nil {
			return m, nil
		}
		if msg.err != nil {
			m.subject.setError(msg.err)
			return m, nil
		}
		m.subject = nil
		m.statusMsg = msg.note

	case chatStatsMsg:
		if msg.err != nil {
			m.statusMsg = "stats: " + errText(msg.err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("%d active · %d closed · %d unread · assistant %d msgs, %d handoffs",
			msg.chat.Active, msg.chat.Closed, msg.chat.UnreadTotal, msg.assistant.Messages, msg.assistant.Handoffs)

	case copyResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.statusMsg = "copied!"
		}

	case tea.KeyMsg:
		if m.engine == nil {
			return m, nil
		}
		m.statusMsg = ""
		switch {
		case m.subject != nil:
			return m.updateSubject(msg)
		case m.inConversation():
			return m.updateConversation(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m chatModel) updateList(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	if cur, ok := moveCursor(m.cursor, len(m.st.Conversations), msg.String()); ok {
		m.cursor = cur
		return m, nil
	}
	e := m.engine
	switch msg.String() {
	case "enter":
		if m.cursor < len(m.st.Conversations) {
			id := m.st.Conversations[m.cursor].ID
			return m, act("", false, func(ctx context.Context) error {
				return e.JoinConversation(ctx, id)
			})
		}
	case "f":
		m.filter = (m.filter + 1) % len(conversationFilters)
		m.cursor = 0
		return m, m.reload()
	case "r":
		return m, m.reload()
	case "]":
		if m.st.Pagination.HasMore() {
			page := m.st.Pagination.Page + 1
			status := conversationFilters[m.filter]
			return m, act("", false, func(ctx context.Context) error {
				return e.LoadConversations(ctx, page, "", status)
			})
		}
	case "x":
		if m.staff && m.cursor < len(m.st.Conversations) {
			return m, m.toggleStatus(m.st.Conversations[m.cursor])
		}
	case "s":
		if m.staff && m.client != nil {
			return m, m.loadStats()
		}
	case "n":
		if !m.staff {
			f := newForm("New conversation", formField{key: "subject", label: "Subject", placeholder: domain.DefaultConversationSubject})
			m.subject = &f
		}
	}
	return m, nil
}

func (m chatModel) updateConversation(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	e := m.engine
	cur := *m.st.Current
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input)
		if text == "" {
			return m, nil
		}
		m.input = ""
		return m, act("", false, func(context.Context) error {
			return e.SendMessage(text)
		})
	case "esc":
		m.input = ""
		return m, func() tea.Msg {
			e.StopTyping()
			e.LeaveConversation()
			return nil
		}
	case "ctrl+x":
		if m.staff {
			return m, m.toggleStatus(cur)
		}
	case "ctrl+y":
		return m, copyCmd(cur.ID.String())
	case "ctrl+n":
		if !m.staff {
			f := newForm("New conversation", formField{key: "subject", label: "Subject", placeholder: domain.DefaultConversationSubject})
			m.subject = &f
		}
	default:
		next := editKey(m.input, msg)
		if next == m.input {
			return m, nil
		}
		m.input = next
		return m, func() tea.Msg {
			e.HandleTyping()
			return nil
		}
	}
	return m, nil
}

func (m chatModel) updateSubject(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	f, res := m.subject.update(msg)
	m.subject = &f
	switch res {
	case formCancelled:
		m.subject = nil
	case formSubmitted:
		m.subject.busy = true
		e, subject := m.engine, f.value("subject")
		return m, func() tea.Msg {
			ctx := context.Background()
			conv, err := e.CreateConversation(ctx, subject)
			if err != nil {
				return formDoneMsg{err: err}
			}
			if err := e.JoinConversation(ctx, conv.ID); err != nil {
				return formDoneMsg{err: err}
			}
			return formDoneMsg{note: "opened " + conv.Subject}
		}
	}
	return m, nil
}

func (m chatModel) toggleStatus(conv domain.Conversation) tea.Cmd {
	e := m.engine
	if conv.Active() {
		return act("conversation closed", false, func(ctx context.Context) error {
			return e.CloseConversation(ctx, conv.ID)
		})
	}
	return act("conversation reopened", false, func(ctx context.Context) error {
		return e.ReopenConversation(ctx, conv.ID)
	})
}

func (m chatModel) loadStats() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx := context.Background()
		cs, err := c.ChatStats(ctx)
		if err != nil {
			return chatStatsMsg{err: err}
		}
		as, err := c.AssistantStats(ctx)
		if err != nil {
			return chatStatsMsg{err: err}
		}
		return chatStatsMsg{chat: cs, assistant: as}
	}
}

func (m chatModel) View() string {
	if m.subject != nil {
		return m.subject.view(m.width)
	}
	if m.inConversation() {
		return m.conversationView()
	}
	return m.listView()
}

func (m chatModel) listView() string {
	var b strings.Builder
	head := []string{fmt.Sprintf("%d unread", m.st.TotalUnread)}
	if s := conversationFilters[m.filter]; s != "" {
		head = append(head, s)
	}
	if !m.st.Connected {
		head = append(head, "offline")
	}
	b.WriteString(" " + dimStyle.Render(strings.Join(head, " · ")) + "\n")

	if m.st.Loading && len(m.st.Conversations) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if len(m.st.Conversations) == 0 {
		b.WriteString("\n " + dimStyle.Render("no conversations") + "\n")
	}

	mine := domain.SenderCustomer
	if m.staff {
		mine = domain.SenderStaff
	}
	previewW := m.width - 60
	if previewW < 16 {
		previewW = 16
	}
	for i, c := range m.st.Conversations {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸ ")
			style = selectedStyle
		}
		badge := "   "
		if n := c.UnreadFor(mine); n > 0 {
			badge = unreadBadgeStyle.Render(fmt.Sprintf("%2d", n)) + " "
		}
		fmt.Fprintf(&b, " %s%s%s  %s  %s  %s\n", cursor, badge,
			style.Render(padRight(c.ClientName, 18)),
			normalStyle.Render(padRight(c.Subject, 20)),
			StatusStyle(c.Status).Render(padRight(c.Status, 6)),
			chatTextStyle.Render(truncStr(oneLine(c.LastMessage), previewW)))
	}
	if m.statusMsg != "" {
		b.WriteString("\n " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m chatModel) conversationView() string {
	cur := m.st.Current
	var b strings.Builder

	head := selectedStyle.Render(cur.Subject) + "  " + StatusStyle(cur.Status).Render(cur.Status)
	if m.staff && cur.ClientName != "" {
		head += "  " + dimStyle.Render(cur.ClientName)
	}
	if m.st.AssistantActive {
		head += "  " + chatAssistantStyle.Render("assistant on")
	}
	b.WriteString(" " + head + "\n")

	names := make([]string, 0, len(m.st.Participants))
	for _, p := range m.st.Participants {
		name := p.Name
		if name == "" {
			name = p.UserType
		}
		dot := metaStyle.Render("○")
		if p.Online {
			dot = presenceDotStyle.Render("●")
		}
		names = append(names, dot+" "+dimStyle.Render(name))
	}
	b.WriteString(" " + strings.Join(names, "  ") + "\n\n")

	// Keep the newest messages that fit above the composer.
	avail := m.height - 12
	msgs := m.st.Messages
	if avail > 0 && len(msgs) > avail {
		msgs = msgs[len(msgs)-avail:]
	}
	if m.st.Loading && len(msgs) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
	}
	for _, msg := range msgs {
		b.WriteString(m.renderMessage(msg) + "\n")
	}

	if len(m.st.Typing) > 0 {
		who := make([]string, 0, len(m.st.Typing))
		for _, p := range m.st.Typing {
			if p.Name != "" {
				who = append(who, p.Name)
			} else {
				who = append(who, p.UserType)
			}
		}
		b.WriteString(" " + metaStyle.Render(strings.Join(who, ", ")+" typing...") + "\n")
	} else {
		b.WriteString("\n")
	}

	if cur.Active() {
		b.WriteString(renderChatInput(m.selfName, m.input, "Type a message", true, m.frame) + "\n")
	} else {
		b.WriteString(" " + dimStyle.Render("this conversation is closed") + "\n")
	}
	if m.statusMsg != "" {
		b.WriteString(" " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m chatModel) renderMessage(msg domain.ChatMessage) string {
	ts := dimStyle.Render(msg.CreatedAt.Local().Format("15:04"))
	if msg.Kind == domain.MessageSystem {
		return " " + ts + "  " + metaStyle.Render(msg.Content)
	}
	name := msg.SenderName
	if name == "" {
		name = msg.SenderType
	}
	var nameStyled string
	switch {
	case msg.FromAssistant():
		nameStyled = chatAssistantStyle.Render(name)
	case msg.SenderID == m.selfID:
		nameStyled = chatSelfNameStyle.Render(name)
	default:
		nameStyled = chatNameStyle.Render(name)
	}
	return " " + ts + "  " + nameStyled + chatSepStyle.Render(" · ") + chatTextStyle.Render(msg.Content)
}

func (m chatModel) helpKeys() string {
	if m.inConversation() {
		if m.staff {
			return helpBar("enter", "send", "ctrl+x", "close/reopen", "ctrl+y", "copy id", "esc", "leave")
		}
		return helpBar("enter", "send", "ctrl+n", "new conversation", "ctrl+y", "copy id", "esc", "leave")
	}
	if m.staff {
		return helpBar("enter", "join", "x", "close/reopen", "f", "filter", "s", "stats", "r", "reload")
	}
	return helpBar("enter", "open", "n", "new conversation", "r", "reload")
}

package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

type requestsLoadedMsg struct {
	page *domain.Page[domain.AdminRequest]
	err  error
}

var requestFilters = []string{domain.RequestPending, "", domain.RequestApproved, domain.RequestRejected}

type requestsModel struct {
	client    *client.Client
	requests  []domain.AdminRequest
	cursor    int
	filter    int
	expanded  bool
	loading   bool
	err       string
	statusMsg string
	reject    *form
	width     int
	height    int
}

func newRequestsModel(c *client.Client) requestsModel {
	return requestsModel{client: c}
}

func (m requestsModel) Init() tea.Cmd {
	return m.load()
}

func (m requestsModel) load() tea.Cmd {
	c := m.client
	status := requestFilters[m.filter]
	return func() tea.Msg {
		p, err := c.ListRequests(context.Background(), 1, pageSize, status)
		return requestsLoadedMsg{page: p, err: err}
	}
}

func (m requestsModel) Update(msg tea.Msg) (requestsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case requestsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.requests = msg.page.Items
		m.cursor = clampCursor(m.cursor, len(m.requests))

	case actionDoneMsg:
		if msg.err != nil {
			m.statusMsg = errText(msg.err)
			return m, nil
		}
		m.statusMsg = msg.note
		if msg.reload {
			return m, m.load()
		}

	case formDoneMsg:
		if m.reject == nil {
			return m, nil
		}
		if msg.err != nil {
			m.reject.setError(msg.err)
			return m, nil
		}
		m.reject = nil
		m.statusMsg = msg.note
		return m, m.load()

	case tea.KeyMsg:
		m.statusMsg = ""
		if m.reject != nil {
			return m.updateReject(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m requestsModel) handleKey(msg tea.KeyMsg) (requestsModel, tea.Cmd) {
	if cur, ok := moveCursor(m.cursor, len(m.requests), msg.String()); ok {
		m.cursor = cur
		return m, nil
	}
	switch msg.String() {
	case "f":
		m.filter = (m.filter + 1) % len(requestFilters)
		m.cursor = 0
		m.loading = true
		return m, m.load()
	case "enter":
		m.expanded = !m.expanded
	case "r":
		m.loading = true
		return m, m.load()
	}
	if m.cursor >= len(m.requests) {
		return m, nil
	}
	req := m.requests[m.cursor]
	if req.Status != domain.RequestPending {
		return m, nil
	}
	switch msg.String() {
	case "a":
		c := m.client
		return m, act("approved", true, func(ctx context.Context) error {
			return c.ApproveRequest(ctx, req.ID.String())
		})
	case "x":
		f := newForm("Reject request from "+req.ClientName, formField{key: "reason", label: "Reason"})
		m.reject = &f
	}
	return m, nil
}

func (m requestsModel) updateReject(msg tea.KeyMsg) (requestsModel, tea.Cmd) {
	f, res := m.reject.update(msg)
	m.reject = &f
	switch res {
	case formCancelled:
		m.reject = nil
	case formSubmitted:
		if m.cursor >= len(m.requests) {
			m.reject = nil
			return m, nil
		}
		m.reject.busy = true
		c, id, reason := m.client, m.requests[m.cursor].ID.String(), f.value("reason")
		return m, func() tea.Msg {
			if err := c.RejectRequest(context.Background(), id, reason); err != nil {
				return formDoneMsg{err: err}
			}
			return formDoneMsg{note: "rejected"}
		}
	}
	return m, nil
}

func requestLabel(t string) string {
	switch t {
	case domain.RequestProfileUpdate:
		return "profile update"
	case domain.RequestPasswordChange:
		return "password change"
	}
	return t
}

func (m requestsModel) View() string {
	if m.reject != nil {
		return m.reject.view(m.width)
	}
	var b strings.Builder
	if s := requestFilters[m.filter]; s != "" {
		b.WriteString(" " + StatusStyle(s).Render(s) + "\n")
	} else {
		b.WriteString(" " + dimStyle.Render("all requests") + "\n")
	}

	if m.loading && len(m.requests) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + dimStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.requests) == 0 {
		b.WriteString("\n " + dimStyle.Render("nothing to review") + "\n")
	}

	for i, r := range m.requests {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸ ")
			style = selectedStyle
		}
		fmt.Fprintf(&b, " %s%s  %s  %s  %s\n", cursor,
			style.Render(padRight(r.ClientName, 22)),
			normalStyle.Render(padRight(requestLabel(r.Type), 16)),
			StatusStyle(r.Status).Render(padRight(r.Status, 9)),
			dimStyle.Render(formatTime(r.CreatedAt)))
		if i == m.cursor && m.expanded {
			b.WriteString(requestDetail(r))
		}
	}
	if m.statusMsg != "" {
		b.WriteString("\n " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func requestDetail(r domain.AdminRequest) string {
	var b strings.Builder
	keys := make([]string, 0, len(r.Changes))
	for k := range r.Changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "       %s %s\n", dimStyle.Render(padRight(k, 12)), normalStyle.Render(r.Changes[k]))
	}
	if r.Type == domain.RequestPasswordChange {
		b.WriteString("       " + dimStyle.Render("new password withheld") + "\n")
	}
	if r.RejectReason != "" {
		b.WriteString("       " + errStyle.Render("reason: "+r.RejectReason) + "\n")
	}
	return b.String()
}

func (m requestsModel) helpKeys() string {
	return helpBar("enter", "details", "a", "approve", "x", "reject", "f", "filter", "r", "reload")
}

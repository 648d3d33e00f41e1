package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

type usersLoadedMsg struct {
	page *domain.Page[domain.User]
	err  error
}

var roleFilters = []string{"", domain.RoleAdmin, domain.RoleCommercial, domain.RoleComptable}

// nextRole cycles admin -> commercial -> comptable -> admin.
func nextRole(role string) string {
	switch role {
	case domain.RoleAdmin:
		return domain.RoleCommercial
	case domain.RoleCommercial:
		return domain.RoleComptable
	default:
		return domain.RoleAdmin
	}
}

type usersModel struct {
	client    *client.Client
	users     []domain.User
	cursor    int
	filter    int
	loading   bool
	err       string
	statusMsg string
	confirm   bool
	form      *form
	formKind  string // "create", "edit" or "password"
	editID    string
	width     int
	height    int
}

func newUsersModel(c *client.Client) usersModel {
	return usersModel{client: c}
}

func (m usersModel) Init() tea.Cmd {
	return m.load()
}

func (m usersModel) load() tea.Cmd {
	c := m.client
	role := roleFilters[m.filter]
	return func() tea.Msg {
		p, err := c.ListUsers(context.Background(), 1, pageSize, role)
		return usersLoadedMsg{page: p, err: err}
	}
}

func (m usersModel) Update(msg tea.Msg) (usersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case usersLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.users = msg.page.Items
		m.cursor = clampCursor(m.cursor, len(m.users))

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
		if m.form == nil {
			return m, nil
		}
		if msg.err != nil {
			m.form.setError(msg.err)
			return m, nil
		}
		m.form = nil
		m.statusMsg = msg.note
		return m, m.load()

	case tea.KeyMsg:
		m.statusMsg = ""
		switch {
		case m.form != nil:
			return m.updateForm(msg)
		case m.confirm:
			return m.updateConfirm(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m usersModel) handleKey(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	if cur, ok := moveCursor(m.cursor, len(m.users), msg.String()); ok {
		m.cursor = cur
		return m, nil
	}
	switch msg.String() {
	case "f":
		m.filter = (m.filter + 1) % len(roleFilters)
		m.cursor = 0
		m.loading = true
		return m, m.load()
	case "n":
		f := userForm("New user", domain.User{Role: domain.RoleCommercial}, true)
		m.form, m.formKind, m.editID = &f, "create", ""
	case "r":
		m.loading = true
		return m, m.load()
	}
	if m.cursor >= len(m.users) {
		return m, nil
	}
	u := m.users[m.cursor]
	c := m.client
	switch msg.String() {
	case "e":
		f := userForm("Edit "+u.Email, u, false)
		m.form, m.formKind, m.editID = &f, "edit", u.ID.String()
	case "R":
		role := nextRole(u.Role)
		return m, act(u.Email+" is now "+role, true, func(ctx context.Context) error {
			return c.ChangeUserRole(ctx, u.ID.String(), role)
		})
	case "P":
		f := newForm("Reset password for "+u.Email, formField{key: "password", label: "New password", secret: true})
		m.form, m.formKind, m.editID = &f, "password", u.ID.String()
	case "D", "delete":
		m.confirm = true
	}
	return m, nil
}

func (m usersModel) updateConfirm(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	m.confirm = false
	if msg.String() != "y" || m.cursor >= len(m.users) {
		m.statusMsg = "cancelled"
		return m, nil
	}
	u := m.users[m.cursor]
	c := m.client
	return m, act("deleted "+u.Email, true, func(ctx context.Context) error {
		return c.DeleteUser(ctx, u.ID.String())
	})
}

func userForm(title string, u domain.User, create bool) form {
	fields := []formField{
		{key: "email", label: "Email", value: u.Email},
		{key: "first_name", label: "First name", value: u.FirstName},
		{key: "last_name", label: "Last name", value: u.LastName},
		{key: "role", label: "Role", value: u.Role, placeholder: "admin, commercial or comptable"},
	}
	if create {
		fields = append(fields, formField{key: "password", label: "Password", secret: true})
	}
	return newForm(title, fields...)
}

func (m usersModel) updateForm(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	f, res := m.form.update(msg)
	m.form = &f
	switch res {
	case formCancelled:
		m.form = nil
	case formSubmitted:
		m.form.busy = true
		c, id, kind, v := m.client, m.editID, m.formKind, f.values()
		return m, func() tea.Msg {
			ctx := context.Background()
			var err error
			note := ""
			switch kind {
			case "password":
				err = c.ResetUserPassword(ctx, id, v["password"])
				note = "password reset"
			case "edit":
				req := client.UserRequest{Email: v["email"], FirstName: v["first_name"], LastName: v["last_name"], Role: v["role"]}
				_, err = c.UpdateUser(ctx, id, req)
				note = "saved " + req.Email
			default:
				req := client.UserRequest{Email: v["email"], FirstName: v["first_name"], LastName: v["last_name"], Role: v["role"], Password: v["password"]}
				_, err = c.CreateUser(ctx, req)
				note = "created " + req.Email
			}
			if err != nil {
				return formDoneMsg{err: err}
			}
			return formDoneMsg{note: note}
		}
	}
	return m, nil
}

func (m usersModel) View() string {
	if m.form != nil {
		return m.form.view(m.width)
	}
	var b strings.Builder
	if role := roleFilters[m.filter]; role != "" {
		b.WriteString(" " + RoleBadge(role) + "\n")
	} else {
		b.WriteString(" " + dimStyle.Render("all roles") + "\n")
	}

	if m.loading && len(m.users) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + dimStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}

	for i, u := range m.users {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸ ")
			style = selectedStyle
		}
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		state := ""
		if !u.Active {
			state = metaStyle.Render(" inactive")
		}
		fmt.Fprintf(&b, " %s%s  %s  %s%s\n", cursor,
			style.Render(padRight(name, 22)),
			dimStyle.Render(padRight(u.Email, 28)),
			RoleBadge(u.Role), state)
	}
	if m.confirm {
		b.WriteString("\n " + errStyle.Render("delete this user? (y/n)") + "\n")
	} else if m.statusMsg != "" {
		b.WriteString("\n " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m usersModel) helpKeys() string {
	return helpBar("n", "new", "e", "edit", "R", "cycle role", "P", "reset password", "D", "delete", "f", "filter")
}

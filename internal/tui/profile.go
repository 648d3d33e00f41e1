package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

type profileLoadedMsg struct {
	customer *domain.Client
	staff    *domain.Profile
	err      error
}

// profileModel shows the signed-in account. Staff edit their profile
// directly; customers file change requests that an admin reviews.
type profileModel struct {
	client    *client.Client
	staff     bool
	customer  *domain.Client
	profile   *domain.Profile
	loading   bool
	err       string
	statusMsg string
	form      *form
	formKind  string // "profile" or "password"
	width     int
	height    int
}

func newProfileModel(c *client.Client, staff bool) profileModel {
	return profileModel{client: c, staff: staff}
}

func (m profileModel) Init() tea.Cmd {
	c, staff := m.client, m.staff
	return func() tea.Msg {
		ctx := context.Background()
		if staff {
			p, err := c.GetProfile(ctx)
			return profileLoadedMsg{staff: p, err: err}
		}
		cl, err := c.GetMyProfile(ctx)
		return profileLoadedMsg{customer: cl, err: err}
	}
}

func (m profileModel) Update(msg tea.Msg) (profileModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.customer = msg.customer
		m.profile = msg.staff

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
		return m, m.Init()

	case tea.KeyMsg:
		m.statusMsg = ""
		if m.form != nil {
			return m.updateForm(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m profileModel) handleKey(msg tea.KeyMsg) (profileModel, tea.Cmd) {
	switch msg.String() {
	case "e":
		switch {
		case m.staff && m.profile != nil:
			f := newForm("Edit profile",
				formField{key: "first_name", label: "First name", value: m.profile.FirstName},
				formField{key: "last_name", label: "Last name", value: m.profile.LastName},
				formField{key: "email", label: "Email", value: m.profile.Email},
			)
			m.form, m.formKind = &f, "profile"
		case !m.staff && m.customer != nil:
			cl := m.customer
			f := newForm("Request profile change",
				formField{key: "first_name", label: "First name", value: cl.FirstName},
				formField{key: "last_name", label: "Last name", value: cl.LastName},
				formField{key: "company", label: "Company", value: cl.Company},
				formField{key: "email", label: "Email", value: cl.Email},
				formField{key: "phone", label: "Phone", value: cl.Phone},
				formField{key: "address", label: "Address", value: cl.Address},
				formField{key: "city", label: "City", value: cl.City},
				formField{key: "country", label: "Country", value: cl.Country},
			)
			m.form, m.formKind = &f, "profile"
		}
	case "P":
		if !m.staff {
			f := newForm("Request password change",
				formField{key: "current", label: "Current password", secret: true},
				formField{key: "next", label: "New password", secret: true},
				formField{key: "confirm", label: "Confirm", secret: true},
			)
			m.form, m.formKind = &f, "password"
		}
	case "c":
		if m.customer != nil {
			return m, copyCmd(m.customer.ClientCode)
		}
	case "r":
		m.loading = true
		return m, m.Init()
	}
	return m, nil
}

// changedFields keeps only the values that differ from the current record.
func changedFields(cl domain.Client, v map[string]string) map[string]string {
	current := map[string]string{
		"first_name": cl.FirstName,
		"last_name":  cl.LastName,
		"company":    cl.Company,
		"email":      cl.Email,
		"phone":      cl.Phone,
		"address":    cl.Address,
		"city":       cl.City,
		"country":    cl.Country,
	}
	out := make(map[string]string)
	for k, val := range v {
		if cur, ok := current[k]; ok && cur != val {
			out[k] = val
		}
	}
	return out
}

func (m profileModel) updateForm(msg tea.KeyMsg) (profileModel, tea.Cmd) {
	f, res := m.form.update(msg)
	m.form = &f
	switch res {
	case formCancelled:
		m.form = nil
		return m, nil
	case formEditing:
		return m, nil
	}

	c, v := m.client, f.values()
	switch {
	case m.formKind == "password":
		if v["next"] != v["confirm"] {
			m.form.setError(&client.ValidationError{Fields: []client.FieldError{{Field: "confirm", Message: "passwords do not match"}}})
			return m, nil
		}
		m.form.busy = true
		return m, func() tea.Msg {
			if _, err := c.RequestPasswordChange(context.Background(), v["current"], v["next"]); err != nil {
				return formDoneMsg{err: err}
			}
			return formDoneMsg{note: "password change sent for review"}
		}
	case m.staff:
		m.form.busy = true
		req := client.UpdateProfileRequest{FirstName: v["first_name"], LastName: v["last_name"], Email: v["email"]}
		return m, func() tea.Msg {
			if _, err := c.UpdateProfile(context.Background(), req); err != nil {
				return formDoneMsg{err: err}
			}
			return formDoneMsg{note: "profile saved"}
		}
	default:
		if m.customer == nil {
			return m, nil
		}
		changes := changedFields(*m.customer, v)
		if len(changes) == 0 {
			m.form = nil
			m.statusMsg = "nothing changed"
			return m, nil
		}
		m.form.busy = true
		return m, func() tea.Msg {
			if _, err := c.RequestProfileChange(context.Background(), changes); err != nil {
				return formDoneMsg{err: err}
			}
			return formDoneMsg{note: "change request sent for review"}
		}
	}
}

func (m profileModel) View() string {
	if m.form != nil {
		return m.form.view(m.width)
	}
	var b strings.Builder
	if m.loading && m.customer == nil && m.profile == nil {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + dimStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}

	var rows [][2]string
	switch {
	case m.customer != nil:
		cl := m.customer
		fmt.Fprintf(&b, "\n  %s  %s\n\n", selectedStyle.Render(cl.FullName()), dimStyle.Render(cl.ClientCode))
		rows = [][2]string{
			{"Company", cl.Company}, {"Email", cl.Email}, {"Phone", cl.Phone},
			{"Address", cl.Address}, {"City", cl.City}, {"Country", cl.Country},
		}
	case m.profile != nil:
		p := m.profile
		fmt.Fprintf(&b, "\n  %s  %s\n\n", selectedStyle.Render(p.DisplayName()), RoleBadge(p.Role))
		rows = [][2]string{{"Email", p.Email}}
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(padRight(r[0], 10)), normalStyle.Render(r[1]))
	}
	if m.statusMsg != "" {
		b.WriteString("\n  " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m profileModel) helpKeys() string {
	if m.staff {
		return helpBar("e", "edit", "r", "reload")
	}
	return helpBar("e", "request change", "P", "change password", "c", "copy code", "r", "reload")
}

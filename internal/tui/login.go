package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

// authenticator is the part of *session.Manager the login screen calls.
type authenticator interface {
	Login(ctx context.Context, email, password, userType string) error
}

type loginDoneMsg struct{ err error }

type loginModel struct {
	auth     authenticator
	form     form
	userType string
	errMsg   string // last session error, shown under the form
	width    int
	height   int
}

func newLoginModel(auth authenticator) loginModel {
	return loginModel{
		auth:     auth,
		userType: domain.UserTypeStaff,
		form: newForm("Sign in",
			formField{key: "email", label: "Email", placeholder: "you@hotel.example"},
			formField{key: "password", label: "Password", secret: true},
		),
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case loginDoneMsg:
		m.form.busy = false
		if msg.err == nil {
			m.form.fields[1].value = ""
			m.errMsg = ""
		}

	case tea.KeyMsg:
		if msg.String() == "ctrl+t" && !m.form.busy {
			if m.userType == domain.UserTypeStaff {
				m.userType = domain.UserTypeClient
			} else {
				m.userType = domain.UserTypeStaff
			}
			return m, nil
		}
		f, res := m.form.update(msg)
		m.form = f
		if res != formSubmitted {
			return m, nil
		}
		return m.submit()
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email, password := m.form.value("email"), m.form.fields[1].value
	ve := &client.ValidationError{}
	if email == "" {
		ve.Fields = append(ve.Fields, client.FieldError{Field: "email", Message: "required"})
	}
	if password == "" {
		ve.Fields = append(ve.Fields, client.FieldError{Field: "password", Message: "required"})
	}
	if len(ve.Fields) > 0 {
		m.form.setError(ve)
		return m, nil
	}
	if m.auth == nil {
		return m, nil
	}
	m.form.setError(nil)
	m.form.busy = true
	m.errMsg = ""
	auth, userType := m.auth, m.userType
	return m, func() tea.Msg {
		return loginDoneMsg{err: auth.Login(context.Background(), email, password, userType)}
	}
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString(m.form.view(m.width))

	staff, customer := dimStyle.Render("staff"), dimStyle.Render("customer")
	if m.userType == domain.UserTypeStaff {
		staff = accentStyle.Render("[staff]")
	} else {
		customer = accentStyle.Render("[customer]")
	}
	b.WriteString("  " + dimStyle.Render("account ") + staff + " " + customer + "  " + helpEntry("ctrl+t", "switch") + "\n")

	if m.errMsg != "" && !m.form.busy {
		b.WriteString("\n  " + errStyle.Render(m.errMsg) + "\n")
	}

	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, b.String())
	}
	return b.String()
}

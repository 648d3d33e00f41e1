package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

type clientsLoadedMsg struct {
	page *domain.Page[domain.Client]
	err  error
}

type clientInvoicesMsg struct {
	clientID string
	page     *domain.Page[domain.Invoice]
	err      error
}

type clientsModel struct {
	client     *client.Client
	clients    []domain.Client
	pagination domain.Pagination
	page       int
	cursor     int
	search     string
	searching  bool
	loading    bool
	err        string
	statusMsg  string

	detail   *domain.Client
	invoices []domain.Invoice
	confirm  bool
	form     *form
	editID   string

	width  int
	height int
}

func newClientsModel(c *client.Client) clientsModel {
	return clientsModel{client: c, page: 1}
}

func (m clientsModel) Init() tea.Cmd {
	return m.load()
}

func (m clientsModel) load() tea.Cmd {
	c := m.client
	page, search := m.page, m.search
	return func() tea.Msg {
		p, err := c.ListClients(context.Background(), page, pageSize, search)
		return clientsLoadedMsg{page: p, err: err}
	}
}

func (m clientsModel) loadInvoices(id string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		p, err := c.ListInvoices(context.Background(), client.InvoiceFilter{Page: 1, Limit: 10, ClientID: id})
		return clientInvoicesMsg{clientID: id, page: p, err: err}
	}
}

func (m clientsModel) Update(msg tea.Msg) (clientsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case clientsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.clients = msg.page.Items
		m.pagination = msg.page.Pagination
		m.cursor = clampCursor(m.cursor, len(m.clients))

	case clientInvoicesMsg:
		if m.detail == nil || m.detail.ID.String() != msg.clientID {
			return m, nil
		}
		if msg.err != nil {
			m.statusMsg = "invoices: " + errText(msg.err)
			return m, nil
		}
		m.invoices = msg.page.Items

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
		m.detail = nil
		m.statusMsg = msg.note
		return m, m.load()

	case tea.KeyMsg:
		m.statusMsg = ""
		switch {
		case m.form != nil:
			return m.updateForm(msg)
		case m.confirm:
			return m.updateConfirm(msg)
		case m.searching:
			return m.updateSearch(msg)
		case m.detail != nil:
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m clientsModel) selected() (domain.Client, bool) {
	if m.detail != nil {
		return *m.detail, true
	}
	if m.cursor < len(m.clients) {
		return m.clients[m.cursor], true
	}
	return domain.Client{}, false
}

func (m clientsModel) updateSearch(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
	case "esc":
		m.searching = false
		m.search = ""
	default:
		m.search = editKey(m.search, msg)
		return m, nil
	}
	m.page = 1
	m.loading = true
	return m, m.load()
}

func (m clientsModel) updateConfirm(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	m.confirm = false
	cl, ok := m.selected()
	if !ok || msg.String() != "y" {
		m.statusMsg = "cancelled"
		return m, nil
	}
	m.detail = nil
	c := m.client
	return m, act("deleted "+cl.ClientCode, true, func(ctx context.Context) error {
		return c.DeleteClient(ctx, cl.ID.String())
	})
}

func (m clientsModel) updateList(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	if cur, ok := moveCursor(m.cursor, len(m.clients), msg.String()); ok {
		m.cursor = cur
		return m, nil
	}
	switch msg.String() {
	case "enter":
		if cl, ok := m.selected(); ok {
			m.detail = &cl
			m.invoices = nil
			return m, m.loadInvoices(cl.ID.String())
		}
	case "/":
		m.searching = true
		m.search = ""
	case "n":
		f := clientForm("New client", domain.Client{})
		m.form = &f
		m.editID = ""
	case "]":
		if m.pagination.HasMore() {
			m.page++
			m.loading = true
			return m, m.load()
		}
	case "[":
		if m.page > 1 {
			m.page--
			m.loading = true
			return m, m.load()
		}
	case "r":
		m.loading = true
		return m, m.load()
	default:
		return m.clientAction(msg)
	}
	return m, nil
}

func (m clientsModel) updateDetail(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	if msg.String() == "esc" {
		m.detail = nil
		return m, nil
	}
	return m.clientAction(msg)
}

func (m clientsModel) clientAction(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	cl, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "e":
		f := clientForm("Edit "+cl.ClientCode, cl)
		m.form = &f
		m.editID = cl.ID.String()
	case "D", "delete":
		m.confirm = true
	case "c":
		return m, copyCmd(cl.ClientCode)
	}
	return m, nil
}

func clientForm(title string, cl domain.Client) form {
	return newForm(title,
		formField{key: "first_name", label: "First name", value: cl.FirstName},
		formField{key: "last_name", label: "Last name", value: cl.LastName},
		formField{key: "company", label: "Company", value: cl.Company},
		formField{key: "email", label: "Email", value: cl.Email},
		formField{key: "phone", label: "Phone", value: cl.Phone},
		formField{key: "address", label: "Address", value: cl.Address},
		formField{key: "city", label: "City", value: cl.City},
		formField{key: "country", label: "Country", value: cl.Country},
	)
}

func clientRequest(v map[string]string) client.ClientRequest {
	return client.ClientRequest{
		FirstName: v["first_name"],
		LastName:  v["last_name"],
		Company:   v["company"],
		Email:     v["email"],
		Phone:     v["phone"],
		Address:   v["address"],
		City:      v["city"],
		Country:   v["country"],
	}
}

func (m clientsModel) updateForm(msg tea.KeyMsg) (clientsModel, tea.Cmd) {
	f, res := m.form.update(msg)
	m.form = &f
	switch res {
	case formCancelled:
		m.form = nil
	case formSubmitted:
		m.form.busy = true
		c, id, req := m.client, m.editID, clientRequest(f.values())
		return m, func() tea.Msg {
			if id == "" {
				cl, err := c.CreateClient(context.Background(), req)
				if err != nil {
					return formDoneMsg{err: err}
				}
				return formDoneMsg{note: "created " + cl.ClientCode}
			}
			cl, err := c.UpdateClient(context.Background(), id, req)
			if err != nil {
				return formDoneMsg{err: err}
			}
			return formDoneMsg{note: "saved " + cl.ClientCode}
		}
	}
	return m, nil
}

func (m clientsModel) View() string {
	if m.form != nil {
		return m.form.view(m.width)
	}
	if m.detail != nil {
		return m.detailView()
	}

	var b strings.Builder
	header := []string{dimStyle.Render(fmt.Sprintf("%d clients", m.pagination.Total))}
	if m.searching {
		header = append(header, inputPromptStyle.Render("/")+chatComposingStyle.Render(m.search)+accentStyle.Render("█"))
	} else if m.search != "" {
		header = append(header, dimStyle.Render("search: "+m.search))
	}
	b.WriteString(" " + strings.Join(header, dimStyle.Render(" · ")) + "\n")

	if m.loading && len(m.clients) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + dimStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}

	for i, cl := range m.clients {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸ ")
			style = selectedStyle
		}
		fmt.Fprintf(&b, " %s%s  %s  %s  %s\n", cursor,
			dimStyle.Render(padRight(cl.ClientCode, 8)),
			style.Render(padRight(cl.FullName(), 24)),
			normalStyle.Render(padRight(cl.Company, 22)),
			dimStyle.Render(cl.Email))
	}
	if m.confirm {
		b.WriteString("\n " + errStyle.Render("delete this client? (y/n)") + "\n")
	} else if m.statusMsg != "" {
		b.WriteString("\n " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m clientsModel) detailView() string {
	cl := m.detail
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s  %s\n", selectedStyle.Render(cl.FullName()), dimStyle.Render(cl.ClientCode))
	rows := [][2]string{
		{"Company", cl.Company},
		{"Email", cl.Email},
		{"Phone", cl.Phone},
		{"Address", cl.Address},
		{"City", cl.City},
		{"Country", cl.Country},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(padRight(r[0], 10)), normalStyle.Render(r[1]))
	}

	b.WriteString("\n  " + sectionHeaderStyle.Render("Invoices") + "\n")
	if len(m.invoices) == 0 {
		b.WriteString("  " + dimStyle.Render("none") + "\n")
	}
	for _, inv := range m.invoices {
		fmt.Fprintf(&b, "  %s  %s  %s\n",
			normalStyle.Render(padRight(inv.Number, 12)),
			StatusStyle(inv.Status).Render(padRight(inv.Status, 10)),
			normalStyle.Render(formatMoney(inv.AmountTTC)))
	}
	if m.confirm {
		b.WriteString("\n " + errStyle.Render("delete this client? (y/n)") + "\n")
	} else if m.statusMsg != "" {
		b.WriteString("\n " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m clientsModel) helpKeys() string {
	if m.detail != nil {
		return helpBar("e", "edit", "D", "delete", "c", "copy code", "esc", "back")
	}
	return helpBar("enter", "open", "n", "new", "e", "edit", "D", "delete", "/", "search", "r", "reload")
}

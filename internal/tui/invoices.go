package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

// -- messages --

type invoicesLoadedMsg struct {
	page *domain.Page[domain.Invoice]
	err  error
}

type invoiceLoadedMsg struct {
	invoice *domain.Invoice
	err     error
}

// formDoneMsg reports a submitted dialog. On error the form stays open.
type formDoneMsg struct {
	note string
	err  error
}

// -- model --

var invoiceFilters = []string{"", domain.InvoiceDraft, domain.InvoiceSent, domain.InvoicePaid, domain.InvoiceOverdue, domain.InvoiceCancelled}

// nextInvoiceStatus is the forward step bound to "s".
var nextInvoiceStatus = map[string]string{
	domain.InvoiceDraft:   domain.InvoiceSent,
	domain.InvoiceSent:    domain.InvoicePaid,
	domain.InvoiceOverdue: domain.InvoicePaid,
}

type invoicesModel struct {
	client     *client.Client
	invoices   []domain.Invoice
	pagination domain.Pagination
	page       int
	cursor     int
	filter     int
	search     string
	searching  bool
	loading    bool
	err        string
	statusMsg  string
	canManage  bool

	detail     *domain.Invoice
	itemCursor int
	confirm    string // "invoice" or "item" while a delete awaits y/n
	form       *form
	formKind   string // "create" or "item"

	width  int
	height int
}

func newInvoicesModel(c *client.Client, canManage bool) invoicesModel {
	return invoicesModel{client: c, page: 1, canManage: canManage}
}

func (m invoicesModel) Init() tea.Cmd {
	return m.load()
}

func (m invoicesModel) load() tea.Cmd {
	c := m.client
	f := client.InvoiceFilter{Page: m.page, Limit: pageSize, Status: invoiceFilters[m.filter], Search: m.search}
	return func() tea.Msg {
		p, err := c.ListInvoices(context.Background(), f)
		return invoicesLoadedMsg{page: p, err: err}
	}
}

func (m invoicesModel) loadDetail(id string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		inv, err := c.GetInvoice(context.Background(), id)
		return invoiceLoadedMsg{invoice: inv, err: err}
	}
}

func (m invoicesModel) selected() (domain.Invoice, bool) {
	if m.detail != nil {
		return *m.detail, true
	}
	if m.cursor < len(m.invoices) {
		return m.invoices[m.cursor], true
	}
	return domain.Invoice{}, false
}

func (m invoicesModel) Update(msg tea.Msg) (invoicesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case invoicesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.invoices = msg.page.Items
		m.pagination = msg.page.Pagination
		m.cursor = clampCursor(m.cursor, len(m.invoices))

	case invoiceLoadedMsg:
		if msg.err != nil {
			m.statusMsg = "load failed: " + errText(msg.err)
			return m, nil
		}
		m.detail = msg.invoice
		m.itemCursor = clampCursor(m.itemCursor, len(m.detail.Items))

	case actionDoneMsg:
		if msg.err != nil {
			m.statusMsg = errText(msg.err)
			return m, nil
		}
		m.statusMsg = msg.note
		if m.detail != nil {
			return m, tea.Batch(m.loadDetail(m.detail.ID.String()), m.load())
		}
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
		if m.detail != nil {
			return m, tea.Batch(m.loadDetail(m.detail.ID.String()), m.load())
		}
		return m, m.load()

	case pdfExportedMsg:
		if msg.err != nil {
			m.statusMsg = "export failed: " + errText(msg.err)
		} else {
			m.statusMsg = "saved " + msg.path
		}

	case copyResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.statusMsg = "copied!"
		}

	case tea.KeyMsg:
		m.statusMsg = ""
		switch {
		case m.form != nil:
			return m.updateForm(msg)
		case m.confirm != "":
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

func (m invoicesModel) updateSearch(msg tea.KeyMsg) (invoicesModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.page = 1
		m.loading = true
		return m, m.load()
	case "esc":
		m.searching = false
		m.search = ""
		m.page = 1
		m.loading = true
		return m, m.load()
	default:
		m.search = editKey(m.search, msg)
	}
	return m, nil
}

func (m invoicesModel) updateConfirm(msg tea.KeyMsg) (invoicesModel, tea.Cmd) {
	kind := m.confirm
	m.confirm = ""
	if msg.String() != "y" {
		m.statusMsg = "cancelled"
		return m, nil
	}
	c := m.client
	inv, ok := m.selected()
	if !ok {
		return m, nil
	}
	if kind == "item" {
		if m.itemCursor >= len(inv.Items) {
			return m, nil
		}
		itemID := inv.Items[m.itemCursor].ID.String()
		return m, act("line removed", true, func(ctx context.Context) error {
			return c.DeleteInvoiceItem(ctx, inv.ID.String(), itemID)
		})
	}
	m.detail = nil
	return m, act("deleted "+inv.Number, true, func(ctx context.Context) error {
		return c.DeleteInvoice(ctx, inv.ID.String())
	})
}

func (m invoicesModel) updateList(msg tea.KeyMsg) (invoicesModel, tea.Cmd) {
	if cur, ok := moveCursor(m.cursor, len(m.invoices), msg.String()); ok {
		m.cursor = cur
		return m, nil
	}
	switch msg.String() {
	case "enter":
		if inv, ok := m.selected(); ok {
			m.itemCursor = 0
			return m, m.loadDetail(inv.ID.String())
		}
	case "/":
		m.searching = true
		m.search = ""
	case "f":
		m.filter = (m.filter + 1) % len(invoiceFilters)
		m.page = 1
		m.cursor = 0
		m.loading = true
		return m, m.load()
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
	case "n":
		if m.canManage {
			f := newInvoiceForm()
			m.form = &f
			m.formKind = "create"
		}
	case "r":
		m.loading = true
		return m, m.load()
	default:
		return m.invoiceAction(msg)
	}
	return m, nil
}

func (m invoicesModel) updateDetail(msg tea.KeyMsg) (invoicesModel, tea.Cmd) {
	if m.detail != nil {
		if cur, ok := moveCursor(m.itemCursor, len(m.detail.Items), msg.String()); ok {
			m.itemCursor = cur
			return m, nil
		}
	}
	switch msg.String() {
	case "esc":
		m.detail = nil
	case "a":
		if m.canManage {
			f := newItemForm()
			m.form = &f
			m.formKind = "item"
		}
	case "x":
		if m.canManage && m.detail != nil && len(m.detail.Items) > 0 {
			m.confirm = "item"
		}
	default:
		return m.invoiceAction(msg)
	}
	return m, nil
}

// invoiceAction handles the keys shared by the list and the detail view.
func (m invoicesModel) invoiceAction(msg tea.KeyMsg) (invoicesModel, tea.Cmd) {
	inv, ok := m.selected()
	if !ok {
		return m, nil
	}
	c := m.client
	id := inv.ID.String()
	switch msg.String() {
	case "p":
		m.statusMsg = "exporting..."
		return m, exportPDFCmd(c, inv)
	case "c":
		return m, copyCmd(inv.Number)
	}
	if !m.canManage {
		return m, nil
	}
	switch msg.String() {
	case "s", "o", "X":
		next := invoiceStatusFor(inv.Status, msg.String())
		if next == "" {
			m.statusMsg = "no transition from " + inv.Status
			return m, nil
		}
		return m, act(inv.Number+" → "+next, true, func(ctx context.Context) error {
			_, err := c.UpdateInvoiceStatus(ctx, id, next)
			return err
		})
	case "d":
		return m, act("duplicated "+inv.Number, true, func(ctx context.Context) error {
			_, err := c.DuplicateInvoice(ctx, id)
			return err
		})
	case "D", "delete":
		m.confirm = "invoice"
	}
	return m, nil
}

// invoiceStatusFor maps a key to the target status from current, or "".
func invoiceStatusFor(current, key string) string {
	switch key {
	case "s":
		return nextInvoiceStatus[current]
	case "o":
		if current == domain.InvoiceSent {
			return domain.InvoiceOverdue
		}
	case "X":
		if current != domain.InvoicePaid && current != domain.InvoiceCancelled {
			return domain.InvoiceCancelled
		}
	}
	return ""
}

func (m invoicesModel) updateForm(msg tea.KeyMsg) (invoicesModel, tea.Cmd) {
	f, res := m.form.update(msg)
	m.form = &f
	switch res {
	case formCancelled:
		m.form = nil
	case formSubmitted:
		m.form.busy = true
		if m.formKind == "item" && m.detail != nil {
			return m, addItemCmd(m.client, m.detail.ID.String(), f.values())
		}
		return m, createInvoiceCmd(m.client, f.values())
	}
	return m, nil
}

func newInvoiceForm() form {
	return newForm("New invoice",
		formField{key: "client_id", label: "Client", placeholder: "code, email or name"},
		formField{key: "description", label: "Line", placeholder: "Chambre double, 2 nuits"},
		formField{key: "quantity", label: "Quantity", value: "1"},
		formField{key: "unit_price", label: "Unit price (HT)", placeholder: "95.00"},
		formField{key: "due_at", label: "Due", placeholder: "YYYY-MM-DD"},
		formField{key: "notes", label: "Notes"},
	)
}

func newItemForm() form {
	return newForm("Add line",
		formField{key: "description", label: "Description"},
		formField{key: "quantity", label: "Quantity", value: "1"},
		formField{key: "unit_price", label: "Unit price (HT)"},
	)
}

// parseItem reads an invoice line from form values.
func parseItem(v map[string]string) (domain.InvoiceItem, error) {
	ve := &client.ValidationError{}
	qty, err := strconv.ParseFloat(strings.ReplaceAll(v["quantity"], ",", "."), 64)
	if err != nil {
		ve.Fields = append(ve.Fields, client.FieldError{Field: "quantity", Message: "must be a number"})
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(v["unit_price"], ",", "."), 64)
	if err != nil {
		ve.Fields = append(ve.Fields, client.FieldError{Field: "unit_price", Message: "must be a number"})
	}
	if len(ve.Fields) > 0 {
		return domain.InvoiceItem{}, ve
	}
	return domain.InvoiceItem{Description: v["description"], Quantity: qty, UnitPrice: price}, nil
}

func createInvoiceCmd(c *client.Client, v map[string]string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		item, err := parseItem(v)
		if err != nil {
			return formDoneMsg{err: err}
		}
		clientID, err := resolveClient(ctx, c, v["client_id"])
		if err != nil {
			return formDoneMsg{err: err}
		}
		inv, err := c.CreateInvoice(ctx, client.InvoiceRequest{
			ClientID: clientID,
			DueAt:    v["due_at"],
			Notes:    v["notes"],
			Items:    []domain.InvoiceItem{item},
		})
		if err != nil {
			return formDoneMsg{err: err}
		}
		return formDoneMsg{note: "created " + inv.Number}
	}
}

// resolveClient finds the client a free-text query designates, preferring
// an exact code or email match.
func resolveClient(ctx context.Context, c *client.Client, query string) (string, error) {
	noMatch := &client.ValidationError{Fields: []client.FieldError{{Field: "client_id", Message: "no client matches"}}}
	if query == "" {
		return "", &client.ValidationError{Fields: []client.FieldError{{Field: "client_id", Message: "client is required"}}}
	}
	p, err := c.ListClients(ctx, 1, 10, query)
	if err != nil {
		return "", err
	}
	if len(p.Items) == 0 {
		return "", noMatch
	}
	for _, cl := range p.Items {
		if strings.EqualFold(cl.ClientCode, query) || strings.EqualFold(cl.Email, query) {
			return cl.ID.String(), nil
		}
	}
	return p.Items[0].ID.String(), nil
}

func addItemCmd(c *client.Client, invoiceID string, v map[string]string) tea.Cmd {
	return func() tea.Msg {
		item, err := parseItem(v)
		if err != nil {
			return formDoneMsg{err: err}
		}
		if strings.TrimSpace(item.Description) == "" {
			return formDoneMsg{err: &client.ValidationError{Fields: []client.FieldError{{Field: "description", Message: "required"}}}}
		}
		if _, err := c.AddInvoiceItem(context.Background(), invoiceID, item); err != nil {
			return formDoneMsg{err: err}
		}
		return formDoneMsg{note: "line added"}
	}
}

func (m invoicesModel) View() string {
	if m.form != nil {
		return m.form.view(m.width)
	}
	if m.detail != nil {
		return m.detailView()
	}
	return m.listView()
}

func (m invoicesModel) filterLine() string {
	parts := []string{}
	status := invoiceFilters[m.filter]
	if status == "" {
		parts = append(parts, dimStyle.Render("all"))
	} else {
		parts = append(parts, StatusStyle(status).Render(status))
	}
	if m.searching {
		parts = append(parts, inputPromptStyle.Render("/")+chatComposingStyle.Render(m.search)+accentStyle.Render("█"))
	} else if m.search != "" {
		parts = append(parts, dimStyle.Render("search: "+m.search))
	}
	if m.pagination.Pages > 1 {
		parts = append(parts, metaStyle.Render(fmt.Sprintf("page %d/%d", m.pagination.Page, m.pagination.Pages)))
	}
	return " " + strings.Join(parts, dimStyle.Render(" · ")) + "\n"
}

func (m invoicesModel) listView() string {
	var b strings.Builder
	b.WriteString(m.filterLine())

	if m.loading && len(m.invoices) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + dimStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.invoices) == 0 {
		b.WriteString("\n " + dimStyle.Render("no invoices") + "\n")
	}

	nameW := m.width - 62
	if nameW < 12 {
		nameW = 12
	}
	for i, inv := range m.invoices {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸ ")
			style = selectedStyle
		}
		name := ""
		if inv.Client != nil {
			name = inv.Client.FullName()
		}
		fmt.Fprintf(&b, " %s%s  %s  %s  %s  %s\n",
			cursor,
			style.Render(padRight(inv.Number, 12)),
			normalStyle.Render(padRight(name, nameW)),
			StatusStyle(inv.Status).Render(padRight(inv.Status, 10)),
			normalStyle.Render(fmt.Sprintf("%14s", formatMoney(inv.AmountTTC))),
			dimStyle.Render(formatDate(inv.DueAt)),
		)
	}

	b.WriteString(m.footer())
	return b.String()
}

func (m invoicesModel) detailView() string {
	inv := m.detail
	var b strings.Builder
	name := ""
	if inv.Client != nil {
		name = inv.Client.FullName()
		if inv.Client.Company != "" {
			name += " · " + inv.Client.Company
		}
	}
	fmt.Fprintf(&b, "\n  %s  %s\n", selectedStyle.Render(inv.Number), StatusStyle(inv.Status).Render(inv.Status))
	fmt.Fprintf(&b, "  %s\n", normalStyle.Render(name))
	fmt.Fprintf(&b, "  %s\n\n", dimStyle.Render("issued "+inv.IssuedAt.Format("2006-01-02")+" · due "+formatDate(inv.DueAt)))

	for i, it := range inv.Items {
		cursor := "  "
		if i == m.itemCursor {
			cursor = accentStyle.Render("▸ ")
		}
		fmt.Fprintf(&b, "  %s%s %s × %s  %s\n", cursor,
			normalStyle.Render(padRight(it.Description, 32)),
			dimStyle.Render(strconv.FormatFloat(it.Quantity, 'f', -1, 64)),
			dimStyle.Render(formatMoney(it.UnitPrice)),
			normalStyle.Render(formatMoney(it.Total())))
	}

	t := inv.Totals()
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(padRight("Total HT", 12)), normalStyle.Render(formatMoney(t.HT)))
	fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(padRight("TVA", 12)), normalStyle.Render(formatMoney(t.VAT)))
	fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render(padRight("Total TTC", 12)), selectedStyle.Render(formatMoney(t.TTC)))
	if inv.Notes != "" {
		b.WriteString("\n  " + dimStyle.Render(inv.Notes) + "\n")
	}

	b.WriteString(m.footer())
	return b.String()
}

func (m invoicesModel) footer() string {
	var b strings.Builder
	b.WriteString("\n")
	switch {
	case m.confirm == "invoice":
		b.WriteString(" " + errStyle.Render("delete this invoice? (y/n)") + "\n")
	case m.confirm == "item":
		b.WriteString(" " + errStyle.Render("remove this line? (y/n)") + "\n")
	case m.statusMsg != "":
		b.WriteString(" " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m invoicesModel) helpKeys() string {
	if m.detail != nil {
		if m.canManage {
			return helpBar("a", "add line", "x", "remove line", "s", "advance", "p", "pdf", "esc", "back")
		}
		return helpBar("p", "pdf", "c", "copy number", "esc", "back")
	}
	if m.canManage {
		return helpBar("enter", "open", "n", "new", "s", "advance", "d", "duplicate", "D", "delete", "p", "pdf", "f", "filter", "/", "search")
	}
	return helpBar("enter", "open", "p", "pdf", "f", "filter", "/", "search")
}

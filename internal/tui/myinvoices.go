package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

// myInvoicesModel is the customer's read-only view of their own invoices.
type myInvoicesModel struct {
	client     *client.Client
	invoices   []domain.Invoice
	pagination domain.Pagination
	page       int
	cursor     int
	open       bool
	loading    bool
	err        string
	statusMsg  string
	width      int
	height     int
}

func newMyInvoicesModel(c *client.Client) myInvoicesModel {
	return myInvoicesModel{client: c, page: 1}
}

func (m myInvoicesModel) Init() tea.Cmd {
	return m.load()
}

func (m myInvoicesModel) load() tea.Cmd {
	c := m.client
	page := m.page
	return func() tea.Msg {
		p, err := c.ListMyInvoices(context.Background(), page, pageSize)
		return invoicesLoadedMsg{page: p, err: err}
	}
}

// outstanding sums what the customer still owes on the loaded page.
func (m myInvoicesModel) outstanding() float64 {
	var total float64
	for _, inv := range m.invoices {
		if inv.Status == domain.InvoiceSent || inv.Status == domain.InvoiceOverdue {
			total += inv.AmountTTC
		}
	}
	return total
}

func (m myInvoicesModel) Update(msg tea.Msg) (myInvoicesModel, tea.Cmd) {
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
		return m.handleKey(msg)
	}
	return m, nil
}

func (m myInvoicesModel) handleKey(msg tea.KeyMsg) (myInvoicesModel, tea.Cmd) {
	if !m.open {
		if cur, ok := moveCursor(m.cursor, len(m.invoices), msg.String()); ok {
			m.cursor = cur
			return m, nil
		}
	}
	switch msg.String() {
	case "enter":
		m.open = len(m.invoices) > 0
	case "esc":
		m.open = false
	case "r":
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
	case "p":
		if m.cursor < len(m.invoices) {
			m.statusMsg = "exporting..."
			return m, exportPDFCmd(m.client, m.invoices[m.cursor])
		}
	case "c":
		if m.cursor < len(m.invoices) {
			return m, copyCmd(m.invoices[m.cursor].Number)
		}
	}
	return m, nil
}

func (m myInvoicesModel) View() string {
	var b strings.Builder
	b.WriteString(" " + dimStyle.Render("outstanding ") + selectedStyle.Render(formatMoney(m.outstanding())) + "\n")

	if m.loading && len(m.invoices) == 0 {
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	}
	if m.err != "" {
		b.WriteString(" " + dimStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.invoices) == 0 {
		b.WriteString("\n " + dimStyle.Render("no invoices yet") + "\n")
	}

	for i, inv := range m.invoices {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = accentStyle.Render("▸ ")
			style = selectedStyle
		}
		fmt.Fprintf(&b, " %s%s  %s  %14s  %s\n", cursor,
			style.Render(padRight(inv.Number, 12)),
			StatusStyle(inv.Status).Render(padRight(inv.Status, 10)),
			normalStyle.Render(formatMoney(inv.AmountTTC)),
			dimStyle.Render("due "+formatDate(inv.DueAt)))
		if i == m.cursor && m.open {
			for _, it := range inv.Items {
				fmt.Fprintf(&b, "       %s  %s\n", dimStyle.Render(padRight(it.Description, 32)), normalStyle.Render(formatMoney(it.Total())))
			}
			t := inv.Totals()
			fmt.Fprintf(&b, "       %s\n", dimStyle.Render(fmt.Sprintf("HT %s · TVA %s · TTC %s", formatMoney(t.HT), formatMoney(t.VAT), formatMoney(t.TTC))))
		}
	}
	if m.statusMsg != "" {
		b.WriteString("\n " + accentStyle.Render(m.statusMsg) + "\n")
	}
	return b.String()
}

func (m myInvoicesModel) helpKeys() string {
	return helpBar("enter", "details", "p", "pdf", "c", "copy number", "r", "reload")
}

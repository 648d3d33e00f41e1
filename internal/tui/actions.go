package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/internal/browser"
	"github.com/naveenspark/folio/pkg/client"
	"github.com/naveenspark/folio/pkg/domain"
)

// actionDoneMsg reports the outcome of a mutation started from a screen.
// reload asks the screen to fetch its list again.
type actionDoneMsg struct {
	note   string
	err    error
	reload bool
}

type copyResultMsg struct{ err error }

// pdfExportedMsg carries the path of an exported invoice.
type pdfExportedMsg struct {
	path string
	err  error
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{err: clipboard.WriteAll(text)}
	}
}

// act runs fn and turns its error into an actionDoneMsg.
func act(note string, reload bool, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{note: note, reload: reload}
	}
}

// exportDir is where exported PDFs are written.
var exportDir = os.TempDir

// openFile shows an exported file; replaced in tests.
var openFile = browser.OpenFile

// exportPDFCmd downloads an invoice PDF, writes it next to other exports
// and opens it in the default viewer.
func exportPDFCmd(c *client.Client, inv domain.Invoice) tea.Cmd {
	return func() tea.Msg {
		data, err := c.ExportInvoicePDF(context.Background(), inv.ID.String())
		if err != nil {
			return pdfExportedMsg{err: err}
		}
		name := inv.Number
		if name == "" {
			name = inv.ID.String()
		}
		path := filepath.Join(exportDir(), "folio-"+safeFileName(name)+".pdf")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return pdfExportedMsg{err: fmt.Errorf("write pdf: %w", err)}
		}
		if err := openFile(path); err != nil {
			return pdfExportedMsg{path: path, err: fmt.Errorf("open pdf: %w", err)}
		}
		return pdfExportedMsg{path: path}
	}
}

func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, s)
}

// errText shortens errors for the status line.
func errText(err error) string {
	var he *client.HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	return err.Error()
}

package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/pkg/client"
)

// formField is one labelled text input. key matches the JSON field name the
// server uses in validation errors.
type formField struct {
	key         string
	label       string
	value       string
	placeholder string
	secret      bool
}

// formResult tells the owning screen what a key press did to the form.
type formResult int

const (
	formEditing formResult = iota
	formSubmitted
	formCancelled
)

// form is a vertical list of inputs shared by the create/edit dialogs and
// the login screen. tab/shift+tab move, enter on the last field or ctrl+s
// submits, esc cancels.
type form struct {
	title     string
	fields    []formField
	focus     int
	err       string
	fieldErrs map[string]string
	busy      bool
}

func newForm(title string, fields ...formField) form {
	return form{title: title, fields: fields}
}

func (f form) value(key string) string {
	for _, fld := range f.fields {
		if fld.key == key {
			return strings.TrimSpace(fld.value)
		}
	}
	return ""
}

func (f form) values() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, fld := range f.fields {
		out[fld.key] = strings.TrimSpace(fld.value)
	}
	return out
}

func (f form) update(msg tea.KeyMsg) (form, formResult) {
	if f.busy {
		if msg.String() == "esc" {
			return f, formCancelled
		}
		return f, formEditing
	}
	switch msg.String() {
	case "esc":
		return f, formCancelled
	case "ctrl+s":
		return f, formSubmitted
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
	case "shift+tab", "up":
		f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
	case "enter":
		if f.focus == len(f.fields)-1 {
			return f, formSubmitted
		}
		f.focus++
	default:
		f.fields[f.focus].value = editKey(f.fields[f.focus].value, msg)
	}
	return f, formEditing
}

// setError splits err into per-field messages when it carries them and a
// form-level line otherwise.
func (f *form) setError(err error) {
	f.busy = false
	f.fieldErrs = nil
	f.err = ""
	if err == nil {
		return
	}
	var fields []client.FieldError
	var ve *client.ValidationError
	var he *client.HTTPError
	switch {
	case errors.As(err, &ve):
		fields = ve.Fields
	case errors.As(err, &he):
		fields = he.Fields
		f.err = he.Message
	}
	if len(fields) == 0 {
		f.err = err.Error()
		return
	}
	f.fieldErrs = make(map[string]string, len(fields))
	for _, fe := range fields {
		f.fieldErrs[fe.Field] = fe.Message
	}
}

func (f form) view(width int) string {
	var b strings.Builder
	b.WriteString("\n  " + sectionHeaderStyle.Render(f.title) + "\n\n")

	labelW := 0
	for _, fld := range f.fields {
		if len(fld.label) > labelW {
			labelW = len(fld.label)
		}
	}
	inputW := width - labelW - 10
	if inputW < 10 {
		inputW = 10
	}

	for i, fld := range f.fields {
		shown := fld.value
		if fld.secret {
			shown = strings.Repeat("•", len([]rune(fld.value)))
		}
		shown = truncStr(shown, inputW)
		label := fmt.Sprintf("%-*s", labelW, fld.label)

		var line string
		if i == f.focus {
			cursor := accentStyle.Render("█")
			line = "  " + inputPromptStyle.Render("> ") + selectedStyle.Render(label) + "  " + chatComposingStyle.Render(shown) + cursor
		} else {
			val := normalStyle.Render(shown)
			if fld.value == "" && fld.placeholder != "" {
				val = inputPlaceholderStyle.Render(fld.placeholder)
			}
			line = "    " + dimStyle.Render(label) + "  " + val
		}
		b.WriteString(line + "\n")
		if msg, ok := f.fieldErrs[fld.key]; ok {
			b.WriteString("    " + strings.Repeat(" ", labelW+2) + errStyle.Render(msg) + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case f.busy:
		b.WriteString("  " + dimStyle.Render("saving...") + "\n")
	case f.err != "":
		b.WriteString("  " + errStyle.Render(f.err) + "\n")
	}
	b.WriteString("\n  " + helpBar("tab", "next field", "ctrl+s", "submit", "esc", "cancel") + "\n")
	return b.String()
}

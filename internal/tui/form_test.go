package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/naveenspark/folio/pkg/client"
)

func newTestForm() form {
	return newForm("Test",
		formField{key: "email", label: "Email"},
		formField{key: "password", label: "Password", secret: true},
	)
}

func TestFormNavigationAndSubmit(t *testing.T) {
	f := newTestForm()
	var res formResult
	for _, r := range "ana@x.io" {
		f, res = f.update(key(string(r)))
	}
	if res != formEditing || f.value("email") != "ana@x.io" {
		t.Fatalf("email = %q, res = %v", f.value("email"), res)
	}
	f, _ = f.update(key("tab"))
	if f.focus != 1 {
		t.Fatalf("focus = %d, want 1", f.focus)
	}
	f, _ = f.update(key("s"))
	f, res = f.update(key("enter"))
	if res != formSubmitted {
		t.Errorf("enter on last field: res = %v, want submitted", res)
	}
	if _, res = f.update(key("ctrl+s")); res != formSubmitted {
		t.Error("ctrl+s should submit")
	}
	if _, res = f.update(key("esc")); res != formCancelled {
		t.Error("esc should cancel")
	}
}

func TestFormSecretMasked(t *testing.T) {
	f := newTestForm()
	f.fields[1].value = "hunter2"
	if strings.Contains(f.view(80), "hunter2") {
		t.Error("secret value rendered in clear")
	}
}

func TestFormSetError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantField string
		wantLine  string
	}{
		{"local validation", &client.ValidationError{Fields: []client.FieldError{{Field: "email", Message: "invalid email"}}}, "email", ""},
		{"server validation", &client.HTTPError{StatusCode: 422, Message: "validation failed", Fields: []client.FieldError{{Field: "password", Message: "too short"}}}, "password", "validation failed"},
		{"plain", errors.New("network down"), "", "network down"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestForm()
			f.busy = true
			f.setError(tc.err)
			if f.busy {
				t.Error("setError should clear busy")
			}
			if tc.wantField != "" && f.fieldErrs[tc.wantField] == "" {
				t.Errorf("fieldErrs = %v, want entry for %q", f.fieldErrs, tc.wantField)
			}
			if f.err != tc.wantLine {
				t.Errorf("err = %q, want %q", f.err, tc.wantLine)
			}
		})
	}
}

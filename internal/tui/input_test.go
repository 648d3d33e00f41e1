package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestEditRuneAddCharacters(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"append to empty", "", "a", "a"},
		{"append letter", "hel", "l", "hell"},
		{"append digit", "F-2026-", "1", "F-2026-1"},
		{"append space", "hello", " ", "hello "},
		{"append accent", "H", "ô", "Hô"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editRune(tc.start, tc.key)
			if got != tc.want {
				t.Errorf("editRune(%q, %q) = %q, want %q", tc.start, tc.key, got, tc.want)
			}
		})
	}
}

func TestEditRuneBackspaceMultibyte(t *testing.T) {
	got := editRune("Hôtel de la Lune é", "backspace")
	if got != "Hôtel de la Lune " {
		t.Errorf("editRune(multi-byte, backspace) = %q, want %q", got, "Hôtel de la Lune ")
	}
	if got := editRune("", "backspace"); got != "" {
		t.Errorf("editRune(empty, backspace) = %q, want empty", got)
	}
}

func TestEditRuneIgnoresNonPrintableKeys(t *testing.T) {
	for _, key := range []string{"enter", "esc", "up", "down", "ctrl+c", "ctrl+s", "tab", "shift+tab", "f1"} {
		t.Run(key, func(t *testing.T) {
			if got := editRune("hello", key); got != "hello" {
				t.Errorf("editRune(%q, %q) = %q, want unchanged", "hello", key, got)
			}
		})
	}
}

func TestEditKeyPaste(t *testing.T) {
	tests := []struct {
		name  string
		start string
		msg   tea.KeyMsg
		want  string
	}{
		{"paste into empty", "", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2 nuits, chambre double")}, "2 nuits, chambre double"},
		{"space", "a", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, "a "},
		{"backspace", "abc", tea.KeyMsg{Type: tea.KeyBackspace}, "ab"},
		{"enter ignored", "abc", tea.KeyMsg{Type: tea.KeyEnter}, "abc"},
		{"paste clamped at limit", strings.Repeat("a", maxInputLen-3), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("abcdef")}, strings.Repeat("a", maxInputLen-3) + "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := editKey(tc.start, tc.msg); got != tc.want {
				t.Errorf("editKey(%q) = %q, want %q", tc.start, truncStr(got, 40), truncStr(tc.want, 40))
			}
		})
	}
}

func TestEditRuneMaxInputLen(t *testing.T) {
	atLimit := strings.Repeat("a", maxInputLen)
	if got := editRune(atLimit, "b"); got != atLimit {
		t.Errorf("editRune at limit grew to %d runes", len([]rune(got)))
	}
	below := strings.Repeat("a", maxInputLen-1)
	if got := editRune(below, "b"); got != below+"b" {
		t.Errorf("editRune below limit did not append")
	}
}

func TestTruncateToHeight(t *testing.T) {
	input := "line1\nline2\nline3\nline4\nline5\n"
	result := truncateToHeight(input, 3)
	if strings.Count(result, "\n") > 3 {
		t.Errorf("truncateToHeight(5 lines, 3) = %q", result)
	}
	if strings.Contains(result, "line4") {
		t.Errorf("truncateToHeight result should not contain line4: %q", result)
	}
	if got := truncateToHeight(input, 0); got != input {
		t.Errorf("truncateToHeight(s, 0) = %q, want unchanged", got)
	}
}

func TestRenderChatInput(t *testing.T) {
	if got := renderChatInput("Ana", "", "Type a message", false, 0); !strings.Contains(got, "Type a message") {
		t.Errorf("unfocused empty input should show placeholder: %q", got)
	}
	if got := renderChatInput("Ana", "bonjour", "Type a message", true, 0); !strings.Contains(got, "bonjour") || !strings.Contains(got, "Ana") {
		t.Errorf("focused input should show name and text: %q", got)
	}
}

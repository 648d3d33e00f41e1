package tui

import (
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// pageSize is the default number of items fetched per API call.
const pageSize = 50

// maxInputLen is the maximum number of runes allowed in chat and form inputs.
const maxInputLen = 2000

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	case "space":
		key = " "
	}
	if utf8.RuneCountInString(key) == 1 {
		return insertText(text, key)
	}
	return text
}

// insertText appends s to text, clamping the result to maxInputLen runes.
func insertText(text, s string) string {
	room := maxInputLen - utf8.RuneCountInString(text)
	if room <= 0 {
		return text
	}
	runes := []rune(s)
	if len(runes) > room {
		runes = runes[:room]
	}
	return text + string(runes)
}

// editKey applies a key press to text. Pasted text arrives as one KeyRunes
// message and is inserted whole.
func editKey(text string, msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyRunes:
		return insertText(text, string(msg.Runes))
	case tea.KeySpace:
		return insertText(text, " ")
	case tea.KeyBackspace:
		return editRune(text, "backspace")
	}
	return text
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// renderChatInput renders the inline composer of the chat screen with a
// blinking cursor and a placeholder when empty.
func renderChatInput(name, input, placeholder string, focused bool, animFrame int) string {
	sep := chatSepStyle.Render(" · ")
	namePart := chatSelfNameStyle.Render(name)
	if !focused {
		if input == "" {
			return "  " + namePart + sep + inputPlaceholderStyle.Render(placeholder)
		}
		return "  " + namePart + sep + dimStyle.Render(input)
	}
	cursor := " "
	if (animFrame/4)%2 == 0 {
		cursor = accentStyle.Render("█")
	}
	if input == "" {
		return "  " + namePart + sep + cursor
	}
	return "  " + namePart + sep + chatComposingStyle.Render(input) + cursor
}

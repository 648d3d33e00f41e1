package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/folio/pkg/domain"
)

// Shimmer animation for the FOLIO logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "F O L I O" as a flowing wave of brass light.
// Deep bronze (#3a2a14) -> bright brass (#e8b84a).
func renderShimmerLogo(frame int) string {
	const text = "FOLIO"
	n := len(text)

	var out string
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(58 + b*(232-58))
		g := clampByte(42 + b*(184-42))
		bl := clampByte(20 + b*(74-20))

		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)
		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
		out += s.Render(string(text[i]))

		if i < n-1 {
			out += "  "
		}
	}

	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e8b84a"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ade80"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060"))

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#111118")).
			Background(lipgloss.Color("#e06060")).
			Bold(true)

	toastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#111118")).
			Background(lipgloss.Color("#e8b84a"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e8b84a")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	// Chat
	chatSelfNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e4e4ec"))

	chatNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60a0e0"))

	chatAssistantStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#c084e0")).
				Italic(true)

	chatTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	chatComposingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#c0c4d0"))

	chatSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#404858"))

	presenceDotStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#4ade80"))

	unreadBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#111118")).
				Background(lipgloss.Color("#e8b84a")).
				Bold(true)

	statusColors = map[string]lipgloss.Color{
		domain.InvoiceDraft:     lipgloss.Color("#8890a0"),
		domain.InvoiceSent:      lipgloss.Color("#60a0e0"),
		domain.InvoicePaid:      lipgloss.Color("#4ade80"),
		domain.InvoiceOverdue:   lipgloss.Color("#e06060"),
		domain.InvoiceCancelled: lipgloss.Color("#505868"),

		domain.RequestPending:  lipgloss.Color("#e8b84a"),
		domain.RequestApproved: lipgloss.Color("#4ade80"),
		domain.RequestRejected: lipgloss.Color("#e06060"),

		domain.ConversationActive: lipgloss.Color("#4ade80"),
		domain.ConversationClosed: lipgloss.Color("#505868"),
	}

	roleColors = map[string]lipgloss.Color{
		domain.RoleAdmin:      lipgloss.Color("#e06060"),
		domain.RoleCommercial: lipgloss.Color("#60a0e0"),
		domain.RoleComptable:  lipgloss.Color("#c084e0"),
	}
)

// StatusStyle colors invoice, request and conversation statuses.
func StatusStyle(status string) lipgloss.Style {
	if c, ok := statusColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return dimStyle
}

// RoleBadge renders a staff role as a short colored tag, e.g. "[admin]".
func RoleBadge(role string) string {
	if role == "" {
		return ""
	}
	c, ok := roleColors[role]
	if !ok {
		c = lipgloss.Color("#8890a0")
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render("[" + role + "]")
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

func helpBar(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, helpEntry(pairs[i], pairs[i+1]))
	}
	return strings.Join(parts, "  ")
}

// helpView renders the help overlay.
func helpView() string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#e8b84a")).
		Bold(true).
		Render("F O L I O")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	commands := []struct{ cmd, desc string }{
		{"folio", "Open the terminal front-end"},
		{"folio login", "Sign in and store the session"},
		{"folio logout", "Clear the stored session"},
		{"folio whoami", "Show the signed-in identity"},
		{"folio devserver", "Run the in-memory back-end"},
		{"folio version", "Show version"},
	}
	keys := []struct{ key, desc string }{
		{"tab / 1-6", "Switch screens"},
		{"j / k", "Move the cursor"},
		{"r", "Reload the current screen"},
		{"L", "Log out"},
		{"q", "Quit"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n", title)
	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Keys"))
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", k.key)), descStyle.Render(k.desc))
	}
	return b.String()
}

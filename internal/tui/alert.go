package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/folio/pkg/domain"
)

const toastTTL = 4 * time.Second

// Alerter turns incoming notifications into toasts. It satisfies
// inbox.Alerter and never blocks the engine: when the UI is behind, the
// alert is dropped.
type Alerter struct {
	ch chan domain.Notification
}

func NewAlerter() *Alerter {
	return &Alerter{ch: make(chan domain.Notification, 8)}
}

// Alert queues n for display.
func (a *Alerter) Alert(n domain.Notification) error {
	select {
	case a.ch <- n:
	default:
	}
	return nil
}

type alertMsg struct{ n domain.Notification }

type toastExpiredMsg struct{ id int }

func waitAlert(a *Alerter) tea.Cmd {
	if a == nil {
		return nil
	}
	return func() tea.Msg {
		return alertMsg{n: <-a.ch}
	}
}

func expireToast(id int) tea.Cmd {
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

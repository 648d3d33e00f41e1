package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/naveenspark/folio/pkg/domain"
)

// pollAssistant refreshes the assistant flag every AssistantInterval until
// stop closes. The refresh on connect comes from onAuthenticated.
func (d *Desk) pollAssistant(gen uint64, stop <-chan struct{}) {
	t := time.NewTicker(d.opts.AssistantInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			d.refreshAssistant(gen)
		}
	}
}

// scheduleAssistantLocked refreshes the flag AssistantDelay after an
// assistant-authored message.
func (d *Desk) scheduleAssistantLocked() {
	if d.assistantTimer != nil {
		d.assistantTimer.Stop()
	}
	gen := d.gen
	d.assistantTimer = time.AfterFunc(d.opts.AssistantDelay, func() {
		d.refreshAssistant(gen)
	})
}

func (d *Desk) refreshAssistant(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.id == nil || !domain.IsCustomer(d.id) {
		d.mu.Unlock()
		return
	}
	convID := ""
	if d.st.Current != nil {
		convID = d.st.Current.ID.String()
	}
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := d.api.AssistantStatus(ctx, convID)
	if err != nil {
		d.log.Debug("assistant status unavailable", zap.Error(err))
		return
	}
	d.apply(gen, func(st *State) { st.AssistantActive = status.Active })
}

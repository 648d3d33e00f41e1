package chat

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/naveenspark/folio/pkg/domain"
)

// typing:start goes out at most once per second.
func newTypingLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Second), 1)
}

// HandleTyping reports local keystrokes. It announces typing:start and
// (re)arms the idle timer that announces typing:stop.
func (d *Desk) HandleTyping() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.st.Current == nil || !d.connectedLocked() {
		return
	}
	ref := conversationRef{ConversationID: d.st.Current.ID.String()}
	if d.typingLim.Allow() {
		_ = d.emitLocked(EmitTypingStart, ref)
	}
	if d.typingOut != nil {
		d.typingOut.Stop()
	}
	gen := d.gen
	var t *time.Timer
	t = time.AfterFunc(d.opts.TypingIdle, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if gen != d.gen || d.typingOut != t {
			return
		}
		d.typingOut = nil
		_ = d.emitLocked(EmitTypingStop, ref)
	})
	d.typingOut = t
}

// StopTyping announces typing:stop right away.
func (d *Desk) StopTyping() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.typingOut == nil {
		return
	}
	d.typingOut.Stop()
	d.typingOut = nil
	if d.st.Current != nil {
		_ = d.emitLocked(EmitTypingStop, conversationRef{ConversationID: d.st.Current.ID.String()})
	}
}

// remoteTypingLocked shows p as typing until a stop arrives or TypingExpiry
// passes without another start.
func (d *Desk) remoteTypingLocked(p domain.Participant) {
	key := p.Key()
	if old, ok := d.typing[key]; ok {
		old.timer.Stop()
	}
	entry := &remoteTyping{who: p}
	gen := d.gen
	entry.timer = time.AfterFunc(d.opts.TypingExpiry, func() {
		d.mu.Lock()
		if gen != d.gen || d.typing[key] != entry {
			d.mu.Unlock()
			return
		}
		delete(d.typing, key)
		d.st.Typing = typingList(d.typing)
		d.mu.Unlock()
		d.notify()
	})
	d.typing[key] = entry
	d.st.Typing = typingList(d.typing)
}

func (d *Desk) remoteStopLocked(key domain.ParticipantKey) {
	if t, ok := d.typing[key]; ok {
		t.timer.Stop()
		delete(d.typing, key)
		d.st.Typing = typingList(d.typing)
	}
}

func (d *Desk) clearTypingLocked() {
	for k, t := range d.typing {
		t.timer.Stop()
		delete(d.typing, k)
	}
	d.st.Typing = nil
}

// stopTimersLocked drops both local and remote typing state.
func (d *Desk) stopTimersLocked() {
	d.clearTypingLocked()
	if d.typingOut != nil {
		d.typingOut.Stop()
		d.typingOut = nil
	}
	d.typingLim = newTypingLimiter()
}

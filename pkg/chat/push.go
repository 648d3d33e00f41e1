package chat

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/pkg/domain"
	"github.com/naveenspark/folio/pkg/live"
)

// Server-to-client events on the chat namespace.
const (
	EventJoined              = "conversation:joined"
	EventMessage             = "message:new"
	EventUserJoined          = "user:joined"
	EventUserLeft            = "user:left"
	EventTypingStart         = "typing:start"
	EventTypingStop          = "typing:stop"
	EventConversationStatus  = "conversation:status"
	EventConversationNew     = "conversation:new"
	EventConversationUpdated = "conversation:updated"
	EventError               = "error"
)

type joinedPayload struct {
	Conversation domain.Conversation  `json:"conversation"`
	Participants []domain.Participant `json:"participants"`
}

type presencePayload struct {
	ConversationID string `json:"conversationId"`
	domain.Participant
}

type statusPayload struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Status         string    `json:"status"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (d *Desk) handlers() map[string]live.Handler {
	return map[string]live.Handler{
		live.EventAuthenticated:  d.onAuthenticated,
		live.EventAuthError:      d.guard(d.onAuthError),
		EventJoined:              d.guard(d.onJoined),
		EventMessage:             d.onMessage,
		EventUserJoined:          d.guard(d.onUserJoined),
		EventUserLeft:            d.guard(d.onUserLeft),
		EventTypingStart:         d.guard(d.onTypingStart),
		EventTypingStop:          d.guard(d.onTypingStop),
		EventConversationStatus:  d.guard(d.onStatus),
		EventConversationNew:     d.guard(d.onConversation),
		EventConversationUpdated: d.guard(d.onConversation),
		EventError:               d.guard(d.onError),
	}
}

// guard runs fn under the lock, only for the current generation.
func (d *Desk) guard(fn func(data json.RawMessage) error) live.Handler {
	return func(desc live.Descriptor, data json.RawMessage) {
		d.mu.Lock()
		if desc.Generation != d.gen {
			d.mu.Unlock()
			d.log.Debug("dropping event from closed session", zap.Uint64("generation", desc.Generation))
			return
		}
		err := fn(data)
		d.mu.Unlock()
		if err != nil {
			d.log.Warn("bad push payload", zap.Error(err))
			return
		}
		d.notify()
	}
}

// onAuthenticated rejoins the current conversation after a reconnect and
// refreshes the assistant flag.
func (d *Desk) onAuthenticated(desc live.Descriptor, _ json.RawMessage) {
	d.mu.Lock()
	if desc.Generation != d.gen {
		d.mu.Unlock()
		return
	}
	if d.st.Current != nil {
		_ = d.emitLocked(EmitJoin, conversationRef{ConversationID: d.st.Current.ID.String()})
	}
	customer := d.id != nil && domain.IsCustomer(d.id)
	d.mu.Unlock()

	if customer {
		go d.refreshAssistant(desc.Generation)
	}
}

func (d *Desk) onAuthError(_ json.RawMessage) error {
	d.setErrLocked("chat: authentication rejected")
	return nil
}

func (d *Desk) onJoined(data json.RawMessage) error {
	var p joinedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if d.st.Current == nil || d.st.Current.ID != p.Conversation.ID {
		return nil
	}
	upsertConversation(&d.st, p.Conversation)
	if d.id != nil {
		recomputeUnread(&d.st, d.id.SenderType())
	}
	if p.Participants != nil {
		d.st.Participants = append([]domain.Participant(nil), p.Participants...)
	}
	return nil
}

func (d *Desk) onMessage(desc live.Descriptor, data json.RawMessage) {
	var m domain.ChatMessage
	if err := json.Unmarshal(data, &m); err != nil {
		d.log.Warn("bad message:new payload", zap.Error(err))
		return
	}
	d.mu.Lock()
	if desc.Generation != d.gen || d.id == nil {
		d.mu.Unlock()
		return
	}
	mine := d.id.SenderType()
	if d.st.Current != nil && d.st.Current.ID == m.ConversationID {
		appendMessage(&d.st, m)
		d.remoteStopLocked(domain.ParticipantKey{UserID: m.SenderID, UserType: m.SenderType})
	}
	touchConversation(&d.st, m, mine)
	recomputeUnread(&d.st, mine)
	if m.FromAssistant() && domain.IsCustomer(d.id) {
		d.scheduleAssistantLocked()
	}
	d.mu.Unlock()
	d.notify()
}

func (d *Desk) inCurrent(convID string) bool {
	return d.st.Current != nil && d.st.Current.ID.String() == convID
}

func (d *Desk) isSelf(p domain.Participant) bool {
	return d.id != nil && p.UserID == d.id.UserID() && p.UserType == d.id.SenderType()
}

func (d *Desk) onUserJoined(data json.RawMessage) error {
	var p presencePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !d.inCurrent(p.ConversationID) {
		return nil
	}
	p.Participant.Online = true
	upsertParticipant(&d.st, p.Participant)
	return nil
}

func (d *Desk) onUserLeft(data json.RawMessage) error {
	var p presencePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !d.inCurrent(p.ConversationID) {
		return nil
	}
	p.Participant.Online = false
	upsertParticipant(&d.st, p.Participant)
	d.remoteStopLocked(p.Key())
	return nil
}

func (d *Desk) onTypingStart(data json.RawMessage) error {
	var p presencePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !d.inCurrent(p.ConversationID) || d.isSelf(p.Participant) {
		return nil
	}
	d.remoteTypingLocked(p.Participant)
	return nil
}

func (d *Desk) onTypingStop(data json.RawMessage) error {
	var p presencePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !d.inCurrent(p.ConversationID) {
		return nil
	}
	d.remoteStopLocked(p.Key())
	return nil
}

func (d *Desk) onStatus(data json.RawMessage) error {
	var p statusPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	setStatus(&d.st, p.ConversationID, p.Status)
	return nil
}

func (d *Desk) onConversation(data json.RawMessage) error {
	var c domain.Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	upsertConversation(&d.st, c)
	if d.id != nil {
		recomputeUnread(&d.st, d.id.SenderType())
	}
	return nil
}

func (d *Desk) onError(data json.RawMessage) error {
	var p errorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Message == "" {
		p.Message = "chat: server error"
	}
	d.setErrLocked(p.Message)
	return nil
}

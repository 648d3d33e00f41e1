package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/pkg/domain"
)

// Client-to-server events on the chat namespace.
const (
	EmitJoin        = "conversation:join"
	EmitLeave       = "conversation:leave"
	EmitSend        = "message:send"
	EmitTypingStart = "typing:start"
	EmitTypingStop  = "typing:stop"
)

type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

type sendPayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// LoadConversations fetches one page of conversations. Page 1 replaces the
// list, later pages append.
func (d *Desk) LoadConversations(ctx context.Context, page int, search, status string) error {
	id, gen := d.current()
	if id == nil {
		return ErrNoIdentity
	}
	if page < 1 {
		page = 1
	}
	d.apply(gen, func(st *State) { st.Loading = true })

	p, err := d.api.ListConversations(ctx, page, d.opts.PageSize, search, status)
	if err != nil {
		d.apply(gen, func(st *State) { st.Loading = false })
		return d.fail("chat.LoadConversations", err)
	}
	d.apply(gen, func(st *State) {
		st.Loading = false
		mergeConversations(st, page, p.Items)
		st.Pagination = p.Pagination
		recomputeUnread(st, id.SenderType())
	})
	d.mu.Lock()
	if gen == d.gen {
		d.last = query{search: search, status: status}
	}
	d.mu.Unlock()
	return nil
}

// CreateConversation opens a new conversation. Customers only; staff get
// ErrStaffCannotCreate without any request being sent.
func (d *Desk) CreateConversation(ctx context.Context, subject string) (*domain.Conversation, error) {
	id, gen := d.current()
	if id == nil {
		return nil, ErrNoIdentity
	}
	if !domain.IsCustomer(id) {
		return nil, d.fail("chat.CreateConversation", ErrStaffCannotCreate)
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = domain.DefaultConversationSubject
	}

	conv, err := d.api.CreateConversation(ctx, subject)
	if err != nil {
		return nil, d.fail("chat.CreateConversation", err)
	}
	d.apply(gen, func(st *State) {
		upsertConversation(st, *conv)
		recomputeUnread(st, id.SenderType())
	})
	return conv, nil
}

// StartChat joins the customer's most recent active conversation, opening
// one first when none exists.
func (d *Desk) StartChat(ctx context.Context) (*domain.Conversation, error) {
	id, _ := d.current()
	if id == nil {
		return nil, ErrNoIdentity
	}
	if !domain.IsCustomer(id) {
		return nil, d.fail("chat.StartChat", ErrStaffCannotCreate)
	}
	if err := d.LoadConversations(ctx, 1, "", domain.ConversationActive); err != nil {
		return nil, err
	}

	conv, ok := mostRecentActive(d.Snapshot().Conversations)
	if !ok {
		created, err := d.CreateConversation(ctx, domain.DefaultConversationSubject)
		if err != nil {
			return nil, err
		}
		conv = *created
	}
	if err := d.JoinConversation(ctx, conv.ID); err != nil {
		return nil, err
	}
	return &conv, nil
}

// JoinConversation makes id the current conversation: it loads the
// conversation and its first page of messages, then announces the join.
func (d *Desk) JoinConversation(ctx context.Context, convID uuid.UUID) error {
	d.mu.Lock()
	if d.id == nil {
		d.mu.Unlock()
		return ErrNoIdentity
	}
	if d.st.Current != nil && d.st.Current.ID != convID {
		d.leaveLocked()
	}
	gen := d.gen
	d.st.Loading = true
	d.mu.Unlock()
	d.notify()

	detail, err := d.api.GetConversation(ctx, convID.String())
	if err != nil {
		d.apply(gen, func(st *State) { st.Loading = false })
		return d.fail("chat.JoinConversation", err)
	}
	msgs, err := d.api.ListMessages(ctx, convID.String(), 1, d.opts.MessagePageSize)
	if err != nil {
		d.apply(gen, func(st *State) { st.Loading = false })
		return d.fail("chat.JoinConversation", err)
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return nil
	}
	d.st.Loading = false
	conv := detail.Conversation
	d.st.Current = &conv
	setMessages(&d.st, msgs.Items)
	d.st.Participants = append([]domain.Participant(nil), detail.Participants...)
	d.clearTypingLocked()
	upsertConversation(&d.st, conv)
	if err := d.emitLocked(EmitJoin, conversationRef{ConversationID: convID.String()}); err != nil {
		d.log.Debug("join not announced", zap.Error(err))
	}
	customer := domain.IsCustomer(d.id)
	d.mu.Unlock()
	d.notify()

	if customer {
		d.refreshAssistant(gen)
	}
	return nil
}

// LeaveConversation announces the leave when connected and clears the
// transcript, participants and typing indicators.
func (d *Desk) LeaveConversation() {
	d.mu.Lock()
	d.leaveLocked()
	d.mu.Unlock()
	d.notify()
}

func (d *Desk) leaveLocked() {
	if d.st.Current == nil {
		return
	}
	ref := conversationRef{ConversationID: d.st.Current.ID.String()}
	if d.connectedLocked() {
		if d.typingOut != nil {
			_ = d.emitLocked(EmitTypingStop, ref)
		}
		_ = d.emitLocked(EmitLeave, ref)
	}
	d.st.Current = nil
	d.st.Messages = nil
	d.st.Participants = nil
	d.stopTimersLocked()
}

// SendMessage sends text to the current conversation without waiting for
// the server; the message comes back as a push event.
func (d *Desk) SendMessage(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connectedLocked() {
		return ErrNotConnected
	}
	if d.st.Current == nil {
		return ErrNoConversation
	}
	if !d.st.Current.Active() {
		return ErrConversationClosed
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	ref := conversationRef{ConversationID: d.st.Current.ID.String()}
	if err := d.emitLocked(EmitSend, sendPayload{ConversationID: ref.ConversationID, Content: text}); err != nil {
		return err
	}
	if d.typingOut != nil {
		d.typingOut.Stop()
		d.typingOut = nil
		_ = d.emitLocked(EmitTypingStop, ref)
	}
	return nil
}

// CloseConversation closes a conversation and reloads the list. Closing the
// current conversation also leaves it.
func (d *Desk) CloseConversation(ctx context.Context, convID uuid.UUID) error {
	return d.setConversationStatus(ctx, convID, true)
}

// ReopenConversation reopens a closed conversation and reloads the list.
func (d *Desk) ReopenConversation(ctx context.Context, convID uuid.UUID) error {
	return d.setConversationStatus(ctx, convID, false)
}

func (d *Desk) setConversationStatus(ctx context.Context, convID uuid.UUID, closing bool) error {
	id, _ := d.current()
	if id == nil {
		return ErrNoIdentity
	}
	op := "chat.ReopenConversation"
	if closing {
		op = "chat.CloseConversation"
	}
	if !domain.IsStaff(id) {
		return d.fail(op, ErrStaffOnly)
	}

	var err error
	if closing {
		err = d.api.CloseConversation(ctx, convID.String())
	} else {
		err = d.api.ReopenConversation(ctx, convID.String())
	}
	if err != nil {
		return d.fail(op, err)
	}

	d.mu.Lock()
	if closing && d.st.Current != nil && d.st.Current.ID == convID {
		d.leaveLocked()
	}
	last := d.last
	d.mu.Unlock()
	d.notify()

	return d.LoadConversations(ctx, 1, last.search, last.status)
}

package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naveenspark/folio/pkg/chat"
	"github.com/naveenspark/folio/pkg/domain"
)

const assistantID = "assistant"

type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

type sendRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

type presenceEvent struct {
	ConversationID string `json:"conversationId"`
	domain.Participant
}

type statusEvent struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Status         string    `json:"status"`
}

func participantOf(a *account) domain.Participant {
	return domain.Participant{UserID: a.ID, UserType: a.senderType(), Name: a.name(), Online: true}
}

// canSee reports whether a may read conv.
func canSee(a *account, conv *domain.Conversation) bool {
	return a.UserType == domain.UserTypeStaff || conv.ClientID == a.ClientID
}

// participants lists the distinct accounts present in room.
func (s *Server) participants(room uuid.UUID) []domain.Participant {
	seen := make(map[domain.ParticipantKey]bool)
	out := []domain.Participant{}
	for _, c := range s.chat.Members(room) {
		p := participantOf(c.acct)
		if !seen[p.Key()] {
			seen[p.Key()] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// sidePresent reports whether anyone with senderType is in room.
func (s *Server) sidePresent(room uuid.UUID, senderType string) bool {
	for _, c := range s.chat.Members(room) {
		if c.acct.senderType() == senderType {
			return true
		}
	}
	return false
}

// watchers are the chat connections told about conversation list changes:
// every staff member plus the owning customer.
func (s *Server) watchers(conv domain.Conversation) []string {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var keys []string
	for _, a := range s.db.staffAccounts() {
		keys = append(keys, a.key())
	}
	if a := s.db.accountForClient(conv.ClientID); a != nil {
		keys = append(keys, a.key())
	}
	return keys
}

func (s *Server) publishConversation(event string, conv domain.Conversation) {
	for _, key := range s.watchers(conv) {
		if err := s.chat.SendEvent(key, event, conv); err != nil {
			s.log.Warn("fakeapi: publish conversation", zap.Error(err))
			return
		}
	}
}

// --- REST ---

func (s *Server) listConversations(c *gin.Context) {
	a := actor(c)
	status, q := c.Query("status"), c.Query("search")
	s.db.mu.Lock()
	var out []domain.Conversation
	for _, conv := range s.db.conversations {
		if !canSee(a, conv) || (status != "" && conv.Status != status) {
			continue
		}
		if matches(q, conv.Subject, conv.ClientName, conv.LastMessage) {
			out = append(out, *conv)
		}
	}
	s.db.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity().After(out[j].LastActivity()) })
	ok(c, paginate(out, intQuery(c, "page", 1), intQuery(c, "limit", 20)))
}

func (s *Server) createConversation(c *gin.Context) {
	var req struct {
		Subject string `json:"subject"`
	}
	_ = c.ShouldBindJSON(&req)
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = domain.DefaultConversationSubject
	}
	a := actor(c)
	s.db.mu.Lock()
	name := a.name()
	if cl, found := s.db.clients[a.ClientID]; found {
		name = cl.FullName()
	}
	conv := &domain.Conversation{
		ID: uuid.New(), Subject: subject, Status: domain.ConversationActive,
		ClientID: a.ClientID, ClientName: name, CreatedAt: time.Now().UTC(),
	}
	s.db.conversations[conv.ID] = conv
	out := *conv
	s.db.mu.Unlock()

	s.publishConversation(chat.EventConversationNew, out)
	created(c, out)
}

// visibleConversation resolves :id for the caller. The caller holds db.mu.
func (s *Server) visibleConversation(c *gin.Context) *domain.Conversation {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "conversation not found")
		return nil
	}
	conv, found := s.db.conversations[id]
	if !found || !canSee(actor(c), conv) {
		fail(c, http.StatusNotFound, "conversation not found")
		return nil
	}
	return conv
}

func (s *Server) getConversation(c *gin.Context) {
	s.db.mu.Lock()
	conv := s.visibleConversation(c)
	if conv == nil {
		s.db.mu.Unlock()
		return
	}
	out := *conv
	s.db.mu.Unlock()
	ok(c, gin.H{"conversation": out, "participants": s.participants(out.ID)})
}

// listMessages pages from the newest end: page 1 holds the latest messages,
// each page in ascending order.
func (s *Server) listMessages(c *gin.Context) {
	s.db.mu.Lock()
	conv := s.visibleConversation(c)
	if conv == nil {
		s.db.mu.Unlock()
		return
	}
	msgs := append([]domain.ChatMessage(nil), s.db.messages[conv.ID]...)
	s.db.mu.Unlock()

	page, limit := intQuery(c, "page", 1), intQuery(c, "limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	total := len(msgs)
	end := total - (page-1)*limit
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	ok(c, domain.Page[domain.ChatMessage]{
		Items:      msgs[start:end],
		Pagination: domain.Pagination{Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit},
	})
}

func (s *Server) closeConversation(c *gin.Context) {
	s.setConversationStatus(c, domain.ConversationClosed)
}

func (s *Server) reopenConversation(c *gin.Context) {
	s.setConversationStatus(c, domain.ConversationActive)
}

func (s *Server) setConversationStatus(c *gin.Context, status string) {
	s.db.mu.Lock()
	conv := s.visibleConversation(c)
	if conv == nil {
		s.db.mu.Unlock()
		return
	}
	conv.Status = status
	out := *conv
	s.db.mu.Unlock()

	_ = s.chat.Broadcast(out.ID, chat.EventConversationStatus, statusEvent{ConversationID: out.ID, Status: status}, nil)
	s.publishConversation(chat.EventConversationUpdated, out)
	ok(c, out)
}

func (s *Server) chatStats(c *gin.Context) {
	s.db.mu.Lock()
	var st domain.ChatStats
	for _, conv := range s.db.conversations {
		if conv.Active() {
			st.Active++
		} else {
			st.Closed++
		}
		st.UnreadTotal += conv.UnreadStaff
	}
	s.db.mu.Unlock()
	ok(c, st)
}

func (s *Server) assistantStatus(c *gin.Context) {
	if !s.opts.Assistant {
		ok(c, domain.AssistantStatus{Active: false, Reason: "disabled"})
		return
	}
	if id, err := uuid.Parse(c.Query("conversation_id")); err == nil && s.sidePresent(id, domain.SenderStaff) {
		ok(c, domain.AssistantStatus{Active: false, Reason: "staff present"})
		return
	}
	ok(c, domain.AssistantStatus{Active: true})
}

func (s *Server) assistantStats(c *gin.Context) {
	s.db.mu.Lock()
	st := domain.AssistantStats{Messages: s.db.assistMsgs, Handoffs: s.db.handoffs}
	for id := range s.db.conversations {
		for _, m := range s.db.messages[id] {
			if m.FromAssistant() {
				st.Conversations++
				break
			}
		}
	}
	s.db.mu.Unlock()
	ok(c, st)
}

// --- live events ---

func (s *Server) onChatEvent(c *Client, event string, data json.RawMessage) {
	var err error
	switch event {
	case chat.EmitJoin:
		err = s.onJoin(c, data)
	case chat.EmitLeave:
		s.leaveRoom(c)
	case chat.EmitSend:
		err = s.onSend(c, data)
	case chat.EmitTypingStart, chat.EmitTypingStop:
		err = s.onTyping(c, event, data)
	default:
		s.log.Debug("fakeapi: unknown chat event", zap.String("event", event))
	}
	if err != nil {
		b, _ := frame(chat.EventError, messagePayload{Message: err.Error()})
		c.enqueue(b)
	}
}

type chatError string

func (e chatError) Error() string { return string(e) }

const (
	errUnknownConversation chatError = "conversation not found"
	errNotJoined           chatError = "join the conversation first"
	errClosed              chatError = "conversation is closed"
	errEmpty               chatError = "message is empty"
)

func (s *Server) conversationFor(c *Client, data json.RawMessage) (domain.Conversation, error) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return domain.Conversation{}, errUnknownConversation
	}
	id, err := uuid.Parse(ref.ConversationID)
	if err != nil {
		return domain.Conversation{}, errUnknownConversation
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	conv, found := s.db.conversations[id]
	if !found || !canSee(c.acct, conv) {
		return domain.Conversation{}, errUnknownConversation
	}
	return *conv, nil
}

func (s *Server) onJoin(c *Client, data json.RawMessage) error {
	conv, err := s.conversationFor(c, data)
	if err != nil {
		return err
	}
	if prev := s.chat.Join(c, conv.ID); prev != uuid.Nil && prev != conv.ID {
		s.announceLeave(c, prev)
	}

	s.db.mu.Lock()
	stored := s.db.conversations[conv.ID]
	if c.acct.senderType() == domain.SenderStaff {
		stored.UnreadStaff = 0
	} else {
		stored.UnreadClient = 0
	}
	conv = *stored
	s.db.mu.Unlock()

	b, err := frame(chat.EventJoined, gin.H{"conversation": conv, "participants": s.participants(conv.ID)})
	if err != nil {
		return err
	}
	c.enqueue(b)
	return s.chat.Broadcast(conv.ID, chat.EventUserJoined, presenceEvent{ConversationID: conv.ID.String(), Participant: participantOf(c.acct)}, c)
}

// leaveRoom takes c out of its conversation and tells the others.
func (s *Server) leaveRoom(c *Client) {
	if prev := s.chat.Leave(c); prev != uuid.Nil {
		s.announceLeave(c, prev)
	}
}

func (s *Server) announceLeave(c *Client, room uuid.UUID) {
	p := participantOf(c.acct)
	p.Online = false
	_ = s.chat.Broadcast(room, chat.EventUserLeft, presenceEvent{ConversationID: room.String(), Participant: p}, c)
}

func (s *Server) onTyping(c *Client, event string, data json.RawMessage) error {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return errUnknownConversation
	}
	room := s.chat.Room(c)
	if room == uuid.Nil || room.String() != ref.ConversationID {
		return nil
	}
	return s.chat.Broadcast(room, event, presenceEvent{ConversationID: ref.ConversationID, Participant: participantOf(c.acct)}, c)
}

func (s *Server) onSend(c *Client, data json.RawMessage) error {
	var req sendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errEmpty
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return errEmpty
	}
	conv, err := s.conversationFor(c, data)
	if err != nil {
		return err
	}
	if s.chat.Room(c) != conv.ID {
		return errNotJoined
	}
	if !conv.Active() {
		return errClosed
	}

	msg := domain.ChatMessage{
		ID: uuid.New(), ConversationID: conv.ID, SenderID: c.acct.ID, SenderType: c.acct.senderType(),
		SenderName: c.acct.name(), Content: content, Kind: domain.MessageText, CreatedAt: time.Now().UTC(),
	}
	updated := s.recordMessage(msg)
	if err := s.chat.Broadcast(conv.ID, chat.EventMessage, msg, nil); err != nil {
		return err
	}
	s.publishConversation(chat.EventConversationUpdated, updated)

	switch msg.SenderType {
	case domain.SenderCustomer:
		if s.opts.Assistant && !s.sidePresent(conv.ID, domain.SenderStaff) {
			time.AfterFunc(s.opts.AssistantDelay, func() { s.assistantReply(conv.ID, content) })
		}
	case domain.SenderStaff:
		s.noticeCustomer(updated, msg)
	}
	return nil
}

// recordMessage appends msg and bumps the unread counter of the side that is
// not in the room.
func (s *Server) recordMessage(msg domain.ChatMessage) domain.Conversation {
	customerHere := s.sidePresent(msg.ConversationID, domain.SenderCustomer)
	staffHere := s.sidePresent(msg.ConversationID, domain.SenderStaff)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	conv := s.db.conversations[msg.ConversationID]
	s.db.messages[conv.ID] = append(s.db.messages[conv.ID], msg)
	at := msg.CreatedAt
	conv.LastMessage, conv.LastMessageAt = msg.Content, &at
	switch msg.SenderType {
	case domain.SenderCustomer:
		if !staffHere {
			conv.UnreadStaff++
		}
	default:
		if !customerHere {
			conv.UnreadClient++
		}
	}
	if msg.FromAssistant() {
		s.db.assistMsgs++
	}
	return *conv
}

func (s *Server) noticeCustomer(conv domain.Conversation, msg domain.ChatMessage) {
	if s.sidePresent(conv.ID, domain.SenderCustomer) {
		return
	}
	s.db.mu.Lock()
	a := s.db.accountForClient(conv.ClientID)
	s.db.mu.Unlock()
	if a == nil {
		return
	}
	id := conv.ID
	s.deliverNotification(a.key(), &domain.Notification{
		Title: "Nouveau message", Message: msg.SenderName + " : " + msg.Content,
		Type: domain.NotificationChatMessage, Data: &domain.NotificationData{ConversationID: &id},
	})
}

// assistantReply answers a customer unless staff joined in the meantime.
// Questions about a human hand off to staff.
func (s *Server) assistantReply(convID uuid.UUID, question string) {
	if s.sidePresent(convID, domain.SenderStaff) {
		return
	}
	s.db.mu.Lock()
	conv, found := s.db.conversations[convID]
	active := found && conv.Active()
	s.db.mu.Unlock()
	if !active {
		return
	}

	answer := "Merci pour votre message. Un membre de l'équipe va vous répondre rapidement."
	lower := strings.ToLower(question)
	if strings.Contains(lower, "facture") || strings.Contains(lower, "invoice") {
		answer = "Vos factures sont disponibles dans l'onglet Mes factures, avec l'export PDF."
	}
	if strings.Contains(lower, "humain") || strings.Contains(lower, "conseiller") {
		answer = "Je transmets votre demande à un conseiller."
		s.db.mu.Lock()
		s.db.handoffs++
		s.db.mu.Unlock()
	}

	msg := domain.ChatMessage{
		ID: uuid.New(), ConversationID: convID, SenderID: assistantID, SenderType: domain.SenderAssistant,
		SenderName: "Assistant", Content: answer, Kind: domain.MessageText, CreatedAt: time.Now().UTC(),
	}
	updated := s.recordMessage(msg)
	_ = s.chat.Broadcast(convID, chat.EventMessage, msg, nil)
	s.publishConversation(chat.EventConversationUpdated, updated)
}

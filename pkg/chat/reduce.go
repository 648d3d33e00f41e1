package chat

import (
	"sort"

	"github.com/google/uuid"

	"github.com/naveenspark/folio/pkg/domain"
)

func convIndex(cs []domain.Conversation, id uuid.UUID) int {
	for i := range cs {
		if cs[i].ID == id {
			return i
		}
	}
	return -1
}

// mergeConversations replaces the list for page 1 and appends otherwise,
// keeping IDs unique.
func mergeConversations(st *State, page int, items []domain.Conversation) {
	if page <= 1 {
		st.Conversations = nil
	}
	for _, c := range items {
		if i := convIndex(st.Conversations, c.ID); i >= 0 {
			st.Conversations[i] = c
			continue
		}
		st.Conversations = append(st.Conversations, c)
	}
}

// upsertConversation replaces an existing entry or puts a new one on top.
func upsertConversation(st *State, c domain.Conversation) {
	if i := convIndex(st.Conversations, c.ID); i >= 0 {
		st.Conversations[i] = c
	} else {
		st.Conversations = append([]domain.Conversation{c}, st.Conversations...)
	}
	if st.Current != nil && st.Current.ID == c.ID {
		cur := c
		st.Current = &cur
	}
}

func setStatus(st *State, id uuid.UUID, status string) {
	if i := convIndex(st.Conversations, id); i >= 0 {
		st.Conversations[i].Status = status
	}
	if st.Current != nil && st.Current.ID == id {
		st.Current.Status = status
	}
}

func recomputeUnread(st *State, senderType string) {
	total := 0
	for _, c := range st.Conversations {
		total += c.UnreadFor(senderType)
	}
	st.TotalUnread = total
}

// mostRecentActive returns the active conversation with the latest activity.
func mostRecentActive(cs []domain.Conversation) (domain.Conversation, bool) {
	var best domain.Conversation
	found := false
	for _, c := range cs {
		if !c.Active() {
			continue
		}
		if !found || c.LastActivity().After(best.LastActivity()) {
			best = c
			found = true
		}
	}
	return best, found
}

func msgIndex(ms []domain.ChatMessage, id uuid.UUID) int {
	for i := range ms {
		if ms[i].ID == id {
			return i
		}
	}
	return -1
}

// appendMessage adds m to the transcript unless it is already there.
func appendMessage(st *State, m domain.ChatMessage) bool {
	if msgIndex(st.Messages, m.ID) >= 0 {
		return false
	}
	st.Messages = append(st.Messages, m)
	sort.SliceStable(st.Messages, func(a, b int) bool {
		return st.Messages[a].CreatedAt.Before(st.Messages[b].CreatedAt)
	})
	return true
}

func setMessages(st *State, ms []domain.ChatMessage) {
	st.Messages = nil
	for _, m := range ms {
		appendMessage(st, m)
	}
}

// touchConversation records m as the latest message in the list entry. The
// unread counter for mine is bumped when m is not from my side and the
// conversation is not the one on screen.
func touchConversation(st *State, m domain.ChatMessage, mine string) {
	i := convIndex(st.Conversations, m.ConversationID)
	if i < 0 {
		return
	}
	at := m.CreatedAt
	st.Conversations[i].LastMessage = m.Content
	st.Conversations[i].LastMessageAt = &at
	viewing := st.Current != nil && st.Current.ID == m.ConversationID
	if viewing || m.SenderType == mine {
		return
	}
	if mine == domain.SenderStaff {
		st.Conversations[i].UnreadStaff++
	} else {
		st.Conversations[i].UnreadClient++
	}
}

func upsertParticipant(st *State, p domain.Participant) {
	for i := range st.Participants {
		if st.Participants[i].Key() == p.Key() {
			if p.Name == "" {
				p.Name = st.Participants[i].Name
			}
			st.Participants[i] = p
			return
		}
	}
	st.Participants = append(st.Participants, p)
}

// typingList renders the typing map in a stable order.
func typingList(m map[domain.ParticipantKey]*remoteTyping) []domain.Participant {
	out := make([]domain.Participant, 0, len(m))
	for _, t := range m {
		out = append(out, t.who)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].UserType != out[b].UserType {
			return out[a].UserType < out[b].UserType
		}
		return out[a].UserID < out[b].UserID
	})
	return out
}

package core

// ConversationStore is the in-memory, ordered log of a session's messages.
// It does not lock; the session controller serializes access.
type ConversationStore struct {
	messages []Message
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

// Append adds m at the end. Role ordering is not checked: a user may send
// several inputs in a row.
func (s *ConversationStore) Append(m Message) {
	s.messages = append(s.messages, m)
}

// Last returns up to n of the most recent messages, oldest first.
func (s *ConversationStore) Last(n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

// All returns a copy of the whole conversation for display.
func (s *ConversationStore) All() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *ConversationStore) Len() int {
	return len(s.messages)
}

// Clear drops every message. Calling it on an empty store is a no-op.
func (s *ConversationStore) Clear() {
	s.messages = nil
}

package types

// ConversationState is the snapshot of a conversation handed to the scheduler
// for a single decision. Callers must not append to the slices while a
// decision is in flight; use Snapshot to detach a copy.
type ConversationState struct {
	ConversationID string    `json:"conversation_id"`
	Agents         []Agent   `json:"agents"`
	Messages       []Message `json:"messages"`
}

// Snapshot returns a deep copy of the state.
func (s ConversationState) Snapshot() ConversationState {
	out := ConversationState{ConversationID: s.ConversationID}
	if s.Agents != nil {
		out.Agents = append(make([]Agent, 0, len(s.Agents)), s.Agents...)
	}
	if s.Messages != nil {
		out.Messages = append(make([]Message, 0, len(s.Messages)), s.Messages...)
	}
	return out
}

// AgentByID looks up an agent of the roster.
func (s ConversationState) AgentByID(id string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return Agent{}, false
}

// LastMessages returns the last n messages (all of them when n exceeds the
// length, nil when n <= 0). The result shares the backing array.
func LastMessages(messages []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if n >= len(messages) {
		return messages
	}
	return messages[len(messages)-n:]
}

package types

import "time"

// Role represents the role of a message participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SpeakerUser is the speaker id used for messages written by the human user.
const SpeakerUser = "user"

// Message represents one entry of a group conversation.
// Speaker is an agent id or SpeakerUser.
type Message struct {
	Speaker   string    `json:"speaker"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{
		Speaker:   SpeakerUser,
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAgentMessage creates a new assistant message spoken by the given agent.
func NewAgentMessage(agentID, content string) Message {
	return Message{
		Speaker:   agentID,
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

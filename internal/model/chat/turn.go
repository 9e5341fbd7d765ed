package chat

import "time"

// Role identifies which side of the conversation produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the two known sides.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message in a session's history. Immutable once appended;
// assistant turns additionally record the emotion classified for the user
// message they answer.
type Turn struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	Emotion    string    `json:"emotion,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

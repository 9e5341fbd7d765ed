package chat

// ChatMessage is one role-labeled entry in an outbound generation request.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ChatRequest packages ordered history for the generation capability.
// Messages preserve the session's turn order exactly; the final entry is the
// user message awaiting a reply.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// Query returns the trailing user message the model should answer, if any.
func (r ChatRequest) Query() (string, bool) {
	if len(r.Messages) == 0 {
		return "", false
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return "", false
	}
	return last.Text, true
}

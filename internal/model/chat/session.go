package chat

import "time"

// Session captures one conversation with the companion. The generation model
// identifier is fixed when the session is created or reset; changing the
// configured model never retroactively affects a live session.
type Session struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

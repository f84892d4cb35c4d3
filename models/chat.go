package models

// Chat message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn stored in a session.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}

// ChatHistory is the persisted session record, keyed by session ID.
type ChatHistory struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

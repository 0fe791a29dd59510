package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultNameLength is how many characters of the first message become the
// conversation name when none is given
const DefaultNameLength = 30

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type Message struct {
	ID        string    `json:"id" firestore:"id"`
	Role      Role      `json:"role" firestore:"role"`
	Content   string    `json:"content" firestore:"content"`
	Model     string    `json:"model,omitempty" firestore:"model,omitempty"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// Conversation is an append-only chat log owned by one user
type Conversation struct {
	ID        string    `json:"id" firestore:"id"`
	Owner     string    `json:"owner" firestore:"owner"`
	Name      string    `json:"name" firestore:"name"`
	Messages  []Message `json:"messages" firestore:"messages"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Summary is the listing view of a conversation
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Collection returns the per-user conversation collection path
func Collection(email string) string {
	return "users/" + email + "/conversations"
}

// DefaultName derives a conversation name from its first message
func DefaultName(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= DefaultNameLength {
		return content
	}
	return string([]rune(content)[:DefaultNameLength])
}

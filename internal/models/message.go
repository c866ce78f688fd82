package models

import "fmt"

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single chat turn.
type Message struct {
	Role    Role   `json:"role" validate:"required"`
	Content string `json:"content"`
}

// ValidateHistory checks that every message carries a known role.
func ValidateHistory(history []Message) error {
	for i, m := range history {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d: invalid role %q (use system, user or assistant)", i, m.Role)
		}
	}
	return nil
}

package domain

// Role identifies the author of a ChatMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ValidRole reports whether r is one of the three chat roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage is the provider-agnostic chat message shape used by the handler
// and the provider adapters. Order within a slice is conversation order.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DispatchMeta describes which model produced a reply.
type DispatchMeta struct {
	ModelID string `json:"modelId"`
}

// DispatchResult is the uniform success shape returned by every adapter.
type DispatchResult struct {
	Text string       `json:"text"`
	Meta DispatchMeta `json:"meta"`
}

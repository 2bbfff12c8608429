package usecase

import (
	"fmt"
	"strings"

	"byom-relay/internal/domain"
)

const conversationHeader = "Conversation so far:"

// ConversationTurn is one line of a flattened transcript supplied by the caller.
type ConversationTurn struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// HeaderCredentials are the request-scoped provider hints carried with a call.
type HeaderCredentials struct {
	Provider string
	Model    string
	Secret   string
	Endpoint string
}

func (h HeaderCredentials) empty() bool {
	return strings.TrimSpace(h.Provider) == "" &&
		strings.TrimSpace(h.Secret) == "" &&
		strings.TrimSpace(h.Endpoint) == ""
}

type ChatInput struct {
	Prompt       string
	Messages     []domain.ChatMessage
	Conversation []ConversationTurn
	UserID       string
	Headers      HeaderCredentials
	// Override is a config already chosen by the caller. When set it wins
	// over every other source and must be valid.
	Override *domain.ProviderConfig
}

// NormalizeInput flattens the three input shapes into one ordered sequence:
// the conversation digest, then explicit messages, then the prompt.
func NormalizeInput(in ChatInput) ([]domain.ChatMessage, error) {
	out := make([]domain.ChatMessage, 0, len(in.Messages)+2)

	if len(in.Conversation) > 0 {
		lines := make([]string, 0, len(in.Conversation)+1)
		lines = append(lines, conversationHeader)
		for _, turn := range in.Conversation {
			lines = append(lines, turn.Author+": "+turn.Text)
		}
		out = append(out, domain.ChatMessage{Role: domain.RoleUser, Content: strings.Join(lines, "\n")})
	}

	for i, m := range in.Messages {
		if !domain.ValidRole(m.Role) {
			return nil, newError(ErrorInvalidInput, "unknown_message_role", fmt.Errorf("messages[%d]: unknown role %q", i, m.Role))
		}
		out = append(out, m)
	}

	if strings.TrimSpace(in.Prompt) != "" {
		out = append(out, domain.ChatMessage{Role: domain.RoleUser, Content: in.Prompt})
	}

	if len(out) == 0 {
		return nil, newError(ErrorMissingInput, "no_prompt_messages_or_conversation", nil)
	}
	return out, nil
}

package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"byom-relay/internal/domain"
)

func TestNormalizeInput_OrderAndShape(t *testing.T) {
	got, err := NormalizeInput(ChatInput{
		Conversation: []ConversationTurn{{Author: "alice", Text: "hi"}, {Author: "bob", Text: "yo"}},
		Messages:     []domain.ChatMessage{{Role: domain.RoleAssistant, Content: "earlier reply"}},
		Prompt:       "what next?",
	})
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "Conversation so far:\nalice: hi\nbob: yo"},
		{Role: domain.RoleAssistant, Content: "earlier reply"},
		{Role: domain.RoleUser, Content: "what next?"},
	}, got)
}

func TestNormalizeInput_PromptOnly(t *testing.T) {
	got, err := NormalizeInput(ChatInput{Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, []domain.ChatMessage{{Role: domain.RoleUser, Content: "hello"}}, got)
}

func TestNormalizeInput_BlankPromptIgnored(t *testing.T) {
	got, err := NormalizeInput(ChatInput{
		Prompt:   "   ",
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "x"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestNormalizeInput_MessagesVerbatim(t *testing.T) {
	in := []domain.ChatMessage{{Role: domain.RoleSystem, Content: "  keep spacing  "}}
	got, err := NormalizeInput(ChatInput{Messages: in})
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestNormalizeInput_Deterministic(t *testing.T) {
	in := ChatInput{
		Conversation: []ConversationTurn{{Author: "a", Text: "b"}},
		Prompt:       "p",
	}
	first, err := NormalizeInput(in)
	require.NoError(t, err)
	second, err := NormalizeInput(in)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestNormalizeInput_UnknownRole(t *testing.T) {
	_, err := NormalizeInput(ChatInput{Messages: []domain.ChatMessage{{Role: "tool", Content: "x"}}})
	require.Equal(t, ErrorInvalidInput, CodeOf(err))
	require.Contains(t, err.Error(), `unknown role "tool"`)
}

func TestNormalizeInput_MissingInput(t *testing.T) {
	for name, in := range map[string]ChatInput{
		"nothing":     {},
		"blank":       {Prompt: " \n"},
		"empty lists": {Messages: []domain.ChatMessage{}, Conversation: []ConversationTurn{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeInput(in)
			require.Equal(t, ErrorMissingInput, CodeOf(err))
		})
	}
}

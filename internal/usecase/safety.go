package usecase

import (
	"unicode/utf8"

	"byom-relay/internal/domain"
)

const (
	DefaultMaxMessages = 100
	DefaultMaxChars    = 8000
)

// ApplySafetyCaps keeps the most recent maxMessages messages, then drops from
// the oldest end until the total content length is at most maxChars. The final
// message is always kept, even when it alone exceeds the budget. Lengths are
// counted in runes. The input slice is not modified.
func ApplySafetyCaps(messages []domain.ChatMessage, maxMessages, maxChars int) []domain.ChatMessage {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	start := 0
	if len(messages) > maxMessages {
		start = len(messages) - maxMessages
	}

	total := 0
	for _, m := range messages[start:] {
		total += utf8.RuneCountInString(m.Content)
	}
	for total > maxChars && len(messages)-start > 1 {
		total -= utf8.RuneCountInString(messages[start].Content)
		start++
	}

	out := make([]domain.ChatMessage, len(messages)-start)
	copy(out, messages[start:])
	return out
}

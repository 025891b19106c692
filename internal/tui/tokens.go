package tui

import (
	"fmt"
	"unicode/utf8"
)

// estimateTokens approximates the tokenizer at four characters per token.
func estimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// promptStats is the counter shown under the prompt box.
func promptStats(text string) string {
	return fmt.Sprintf("%d chars  ~%d tokens", utf8.RuneCountInString(text), estimateTokens(text))
}

// Package budget provides token budget estimation and prompt trimming for the
// chat service. Because the service supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose). This deliberately
// under-estimates token counts to leave headroom for model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving room
	// for the output.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimSnippets drops retrieved snippets from the end of the slice until the
// estimated token count of the question plus the remaining snippets fits
// within maxTokens. Snippets arrive ranked best-first, so the least relevant
// ones go first. The question itself is never trimmed; if the question alone
// exceeds the budget, all snippets are dropped and an empty slice is
// returned.
func TrimSnippets(snippets []string, question string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	questionTokens := Estimate(question)

	total := questionTokens
	for _, s := range snippets {
		total += Estimate(s)
	}
	for len(snippets) > 0 && total > maxTokens {
		last := snippets[len(snippets)-1]
		total -= Estimate(last)
		snippets = snippets[:len(snippets)-1]
	}
	return snippets
}

// TrimHistory removes the oldest messages from history until the total
// estimated token count of fixed + history fits within maxTokens. fixed
// contains messages that must not be trimmed (the composed prompt with its
// retrieved context). history contains prior conversation turns that may be
// dropped oldest-first.
//
// Returns the trimmed history slice. If even an empty history exceeds the
// budget, the empty slice is returned (fixed messages are never dropped here —
// callers should warn separately if fixed alone exceeds the budget).
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)

	// History is typically short; linear scan from the front (dropping
	// oldest) is clear and correct.
	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}

package rag

import (
	"strings"
	"testing"
)

func Test_ComposePrompt_WithContext(t *testing.T) {
	t.Parallel()

	got := ComposePrompt([]string{"Refunds take 5 days.", "Shipping is free."}, "How long do refunds take?")

	for _, want := range []string{
		"**BACKGROUND INFORMATION:**",
		"Refunds take 5 days.",
		"Shipping is free.",
		"**INSTRUCTIONS:**",
		"**USER QUESTION:** How long do refunds take?",
		"**AI RESPONSE:**",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}

	// Context must appear before the question.
	if strings.Index(got, "Refunds take 5 days.") > strings.Index(got, "**USER QUESTION:**") {
		t.Error("background section must precede the user question")
	}
}

func Test_ComposePrompt_EmptyContextPassthrough(t *testing.T) {
	t.Parallel()

	question := "What is the capital of France?"
	got := ComposePrompt(nil, question)

	if got != question {
		t.Errorf("want bare question passthrough, got %q", got)
	}
	if strings.Contains(got, "BACKGROUND") {
		t.Error("no background section allowed when nothing was retrieved")
	}
}

func Test_ComposePrompt_SnippetsSeparated(t *testing.T) {
	t.Parallel()

	got := ComposePrompt([]string{"one", "two"}, "q")
	if !strings.Contains(got, "one\n\n---\n\ntwo") {
		t.Errorf("snippets not separated as expected:\n%s", got)
	}
}

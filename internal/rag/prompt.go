package rag

import (
	"fmt"
	"strings"
)

// snippetSep separates retrieved chunks inside the background section.
const snippetSep = "\n\n---\n\n"

// promptInstructions directs the model to prefer the background section,
// fall back to general knowledge when it is irrelevant, and admit when an
// answer is absent from the background rather than inventing one.
const promptInstructions = `**INSTRUCTIONS:**
Based on the BACKGROUND INFORMATION provided above (if any), answer the following user question.
- If the user's question can be directly answered by the BACKGROUND INFORMATION, use only that information.
- If the BACKGROUND INFORMATION does not contain the answer, or if the question is general and not related to the provided context, answer as a general-purpose AI.
- If you are asked to provide information that is not in the BACKGROUND INFORMATION, clearly state that the information is not available in the provided documents.`

// ComposePrompt assembles the final generation prompt from the retrieved
// chunk texts and the user's question. With no retrieved context the bare
// question passes through unchanged — equivalent to direct chat.
func ComposePrompt(retrieved []string, question string) string {
	if len(retrieved) == 0 {
		return question
	}

	var sb strings.Builder
	sb.WriteString("**BACKGROUND INFORMATION:**\n")
	sb.WriteString(strings.Join(retrieved, snippetSep))
	sb.WriteString("\n\n---\n\n")
	sb.WriteString(promptInstructions)
	fmt.Fprintf(&sb, "\n\n**USER QUESTION:** %s\n\n**AI RESPONSE:**", question)
	return sb.String()
}

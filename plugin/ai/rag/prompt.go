package rag

import "strings"

// defaultAnswerTemplate is used when the caller supplies no template.
// Placeholders: {query}, {context}, {calculation_summary}.
const defaultAnswerTemplate = `You are a personal life assistant answering from the user's own records.

User question: {query}

Relevant records:
{context}

{calculation_summary}

Answer the question using only the records above. Be concise and concrete.
Answer in the same language as the question.`

// calculationSummaryBlock wraps a calculation summary for the prompt.
const calculationSummaryBlock = "Computed figures:\n{summary}"

// answerSystemPrompt frames every generation turn.
const answerSystemPrompt = "You answer questions about the user's own life records. " +
	"Use only the records and figures provided; say so when they are not enough."

// BuildPrompt fills an answer template. An empty template selects the
// built-in default. When no calculation summary is given the placeholder
// is removed, not left dangling.
func BuildPrompt(template, query, contextBlock, calculationSummary string) string {
	if strings.TrimSpace(template) == "" {
		template = defaultAnswerTemplate
	}

	prompt := strings.ReplaceAll(template, "{query}", query)
	prompt = strings.ReplaceAll(prompt, "{context}", contextBlock)

	if strings.TrimSpace(calculationSummary) == "" {
		prompt = strings.ReplaceAll(prompt, "{calculation_summary}", "")
	} else {
		block := strings.ReplaceAll(calculationSummaryBlock, "{summary}", calculationSummary)
		prompt = strings.ReplaceAll(prompt, "{calculation_summary}", block)
	}

	// Collapse the blank lines a removed placeholder leaves behind.
	for strings.Contains(prompt, "\n\n\n") {
		prompt = strings.ReplaceAll(prompt, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(prompt)
}

// BuildContextBlock joins result chunks into a bounded context block.
// Results are added in order until the character budget would be exceeded.
func BuildContextBlock(results []*SearchResult, budget int) string {
	if budget <= 0 {
		budget = 2000
	}
	var sb strings.Builder
	for i, r := range results {
		entry := "- " + strings.TrimSpace(r.ChunkText) + "\n"
		if sb.Len()+len(entry) > budget && i > 0 {
			break
		}
		sb.WriteString(entry)
	}
	return strings.TrimSpace(sb.String())
}

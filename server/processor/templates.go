package processor

import "github.com/jeffreyouni/life-butler/plugin/ai/router"

// Answer templates per generation type. Placeholders are filled by the
// RAG prompt assembler; {calculation_summary} is dropped when unused.
var generationTemplates = map[router.GenerationType]string{
	router.GenFactual: `Answer the question directly from the records. State facts only.

Question: {query}

Records:
{context}

{calculation_summary}

Answer in the language of the question.`,

	router.GenAnalytical: `Analyze the records and explain what they show about the question. Point out patterns and likely causes.

Question: {query}

Records:
{context}

{calculation_summary}

Answer in the language of the question.`,

	router.GenAdvisory: `Based on the records, give practical, specific advice for the question. Lead with the most impactful suggestion.

Question: {query}

Records:
{context}

{calculation_summary}

Answer in the language of the question.`,

	router.GenNarrative: `Tell the story the records suggest, in a warm personal tone, and address the question honestly.

Question: {query}

Records:
{context}

{calculation_summary}

Answer in the language of the question.`,

	router.GenSummary: `Summarize what the records say about the question in a few short bullet points.

Question: {query}

Records:
{context}

{calculation_summary}

Answer in the language of the question.`,
}

// templateFor returns the template for a generation type; unknown types
// fall back to the pipeline's built-in default.
func templateFor(gen router.GenerationType) string {
	return generationTemplates[gen]
}

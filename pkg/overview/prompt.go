package overview

import (
	"fmt"
	"strings"

	"github.com/skimsearch/skim/pkg/corpus"
)

// maxSnippetRunes caps how much of each page's text goes into the prompt.
const maxSnippetRunes = 3000

const promptInstructions = `INSTRUCTIONS:
Assume that you are the Google AI Overview generator, which is a feature integrated into Google Search that provides AI-generated summaries of search results. Please answer the following query in one paragraph based on the HTMLs provided. For each factual sentence, append inline citation(s)
like [1] or [2][5]. Avoid markdown headings, bullet lists, disclaimers.
`

// BuildPrompt assembles the Gemini prompt: the query, then the numbered
// source snippets in ranked order, then the fixed instruction block. The
// source numbering matches the citation numbering shown to the user.
func BuildPrompt(query string, pages []corpus.Page) string {
	numbered := make([]string, 0, len(pages))
	for i, p := range pages {
		snippet := strings.Join(strings.Fields(p.Text), " ")
		if runes := []rune(snippet); len(runes) > maxSnippetRunes {
			snippet = string(runes[:maxSnippetRunes]) + "…"
		}

		title := p.Title
		if title == "" {
			title = p.Name
		}
		if title == "" {
			title = fmt.Sprintf("Source %d", i+1)
		}

		numbered = append(numbered, fmt.Sprintf("[%d] %s\n%s", i+1, title, snippet))
	}
	sources := strings.Join(numbered, "\n\n")

	return fmt.Sprintf("QUERY:\n%s\n\nSOURCES:\n%s\n\n%s", query, sources, promptInstructions)
}

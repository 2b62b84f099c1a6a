// Package overview generates the summary paragraph shown above the search
// results. It prefers the Gemini API when a key is configured and always
// falls back to a local deterministic generator, so every request gets an
// overview no matter what the AI path does.
package overview

import (
	"fmt"
	"net/url"

	"github.com/skimsearch/skim/pkg/corpus"
)

// Source tags which generator produced an overview.
type Source string

const (
	SourceAI        Source = "ai"
	SourceHeuristic Source = "heuristic"
)

// Citation is one numbered source under the overview. Href points at the
// click-tracking redirect so result visits are logged.
type Citation struct {
	Index int    `json:"idx"`
	Title string `json:"title"`
	Href  string `json:"href"`
}

// Overview is the generated summary for one request. It is rendered and
// discarded; only the event log keeps a copy.
type Overview struct {
	Text      string     `json:"text"`
	Source    Source     `json:"source"`
	Citations []Citation `json:"citations"`
}

// buildCitations numbers the ranked source pages and routes their links
// through /out so clicks are recorded.
func buildCitations(query string, pages []corpus.Page) []Citation {
	citations := make([]Citation, 0, len(pages))
	for i, p := range pages {
		title := p.Title
		if title == "" {
			title = p.Name
		}
		if title == "" {
			title = fmt.Sprintf("Source %d", i+1)
		}

		values := url.Values{}
		values.Set("dir", p.Dir)
		values.Set("name", p.Name)
		values.Set("q", query)

		citations = append(citations, Citation{
			Index: i + 1,
			Title: title,
			Href:  "/out?" + values.Encode(),
		})
	}
	return citations
}

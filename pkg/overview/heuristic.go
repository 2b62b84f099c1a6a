package overview

import (
	"fmt"
	"strings"

	"github.com/skimsearch/skim/pkg/corpus"
)

// maxHeuristicParts caps how many sources the stitched sentence mentions.
const maxHeuristicParts = 4

// Heuristic produces the fallback overview: a stitched sentence naming the
// leading sources with their citation numbers. It uses only local data, never
// fails, and is deterministic for identical inputs.
func Heuristic(pages []corpus.Page) string {
	var parts []string
	for i, p := range pages {
		title := p.Title
		if title == "" {
			title = "source"
		}
		// Saved titles often carry a " | Site Name" suffix; keep the lead.
		title = strings.Split(title, " | ")[0]
		parts = append(parts, fmt.Sprintf("%s [%d]", title, i+1))
		if len(parts) >= maxHeuristicParts {
			break
		}
	}

	if len(parts) == 0 {
		return "No relevant content found."
	}
	return strings.Join(parts, "; ") + "."
}

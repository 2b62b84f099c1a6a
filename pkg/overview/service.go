package overview

import (
	"context"
	"regexp"
	"strings"

	"github.com/skimsearch/skim/pkg/corpus"
	"github.com/skimsearch/skim/pkg/log"
)

// maxSources caps how many ranked pages feed the prompt and citations.
const maxSources = 8

var paragraphBreaks = regexp.MustCompile(`\n{2,}`)

// Service decides, per request, whether the overview comes from the AI
// client or the heuristic generator. It never returns an error: every
// failure on the AI path routes to the heuristic.
type Service struct {
	generator Generator // nil when no API key is configured
	logger    *log.Logger
}

// NewService wires the orchestrator. Pass a nil generator when no API key is
// configured; every request then takes the heuristic path.
func NewService(generator Generator) *Service {
	return &Service{
		generator: generator,
		logger:    log.ForComponent("overview"),
	}
}

// Generate produces the overview for a query over the ranked result pages.
// Decision order: explicit override, key presence, then the AI attempt with
// heuristic fallback on any failure. The returned Source always names the
// generator that actually produced the text.
func (s *Service) Generate(ctx context.Context, query string, ranked []corpus.Page, disableAI bool) Overview {
	if len(ranked) > maxSources {
		ranked = ranked[:maxSources]
	}
	citations := buildCitations(query, ranked)

	if disableAI {
		s.logger.Debugf("override flag set, using heuristic for %q", query)
		return Overview{Text: Heuristic(ranked), Source: SourceHeuristic, Citations: citations}
	}

	if s.generator == nil {
		s.logger.Debugf("no API key configured, using heuristic for %q", query)
		return Overview{Text: Heuristic(ranked), Source: SourceHeuristic, Citations: citations}
	}

	text, err := s.generator.Generate(ctx, BuildPrompt(query, ranked))
	if err != nil {
		s.logger.Warnf("AI overview failed for %q, falling back to heuristic: %v", query, err)
		return Overview{Text: Heuristic(ranked), Source: SourceHeuristic, Citations: citations}
	}

	text = collapseParagraph(text)
	if text == "" {
		s.logger.Warnf("AI overview empty for %q, falling back to heuristic", query)
		return Overview{Text: Heuristic(ranked), Source: SourceHeuristic, Citations: citations}
	}

	return Overview{Text: text, Source: SourceAI, Citations: citations}
}

// collapseParagraph flattens the response into a single paragraph: blank-line
// runs become spaces and the result is trimmed.
func collapseParagraph(text string) string {
	text = strings.TrimSpace(text)
	return paragraphBreaks.ReplaceAllString(text, " ")
}

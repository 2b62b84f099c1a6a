// Package search ranks corpus pages against a query for both the results
// page and the overview prompt. The primary ranking comes from the FTS5
// index; a deterministic term-frequency fallback keeps results flowing when
// a query trips FTS5 syntax (quotes, slashes, operators).
package search

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/skimsearch/skim/pkg/corpus"
	"github.com/skimsearch/skim/pkg/storage"
)

// Params represents all parameters for one results-page request.
type Params struct {
	// Query is the search term. Can be empty (renders the bare search page).
	Query string

	// DisableAI is the explicit override: ai=0 forces the heuristic overview
	// regardless of key configuration.
	DisableAI bool

	// Limit is the maximum number of results. Defaults to 10.
	Limit int

	// Page is the 1-based page number for result pagination.
	Page int
}

// ParseParams parses HTTP query parameters with sensible defaults.
func ParseParams(queryParams url.Values) Params {
	params := Params{
		Limit: 10,
		Page:  1,
	}

	params.Query = strings.TrimSpace(queryParams.Get("q"))
	params.DisableAI = queryParams.Get("ai") == "0"

	if limitStr := queryParams.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			params.Limit = parsed
		}
	}
	if pageStr := queryParams.Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			params.Page = parsed
		}
	}

	return params
}

// Service executes ranked searches over one group's corpus directory.
type Service struct {
	index *storage.Index
}

func NewService(index *storage.Index) *Service {
	return &Service{index: index}
}

// Search returns pages from dir ranked against the query. FTS errors
// (typically user-supplied FTS5 syntax) degrade to the term-frequency
// ranking over the full directory instead of failing the request.
func (s *Service) Search(dir string, params Params) ([]storage.ScoredPage, error) {
	offset := (params.Page - 1) * params.Limit
	fetch := params.Limit * params.Page

	results, err := s.index.Search(dir, params.Query, fetch)
	if err != nil {
		pages, listErr := s.index.Pages(dir, 0)
		if listErr != nil {
			return nil, listErr
		}
		results = RankByTermFrequency(pages, params.Query, fetch)
	}

	if offset >= len(results) {
		return nil, nil
	}
	return results[offset:], nil
}

var wordRe = regexp.MustCompile(`\b\w+\b`)

// TermFrequencyScore counts how often the query's words (longer than two
// characters) occur in text, case-insensitively. Deterministic by
// construction.
func TermFrequencyScore(text, query string) int {
	if text == "" || query == "" {
		return 0
	}
	var words []string
	for _, w := range wordRe.FindAllString(query, -1) {
		if len(w) > 2 {
			words = append(words, strings.ToLower(w))
		}
	}
	if len(words) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	score := 0
	for _, w := range words {
		score += strings.Count(lower, w)
	}
	return score
}

// RankByTermFrequency orders pages by descending TermFrequencyScore, breaking
// ties by name so the order is stable, and keeps at most max entries
// (max <= 0 keeps everything).
func RankByTermFrequency(pages []corpus.Page, query string, max int) []storage.ScoredPage {
	scored := make([]storage.ScoredPage, len(pages))
	for i, p := range pages {
		scored[i] = storage.ScoredPage{
			Page: p,
			// Negated so lower ranks sort first, matching bm25 semantics.
			Rank: -float64(TermFrequencyScore(p.Text, query)),
		}
	}
	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].Rank != scored[b].Rank {
			return scored[a].Rank < scored[b].Rank
		}
		return scored[a].Name < scored[b].Name
	})
	if max > 0 && len(scored) > max {
		scored = scored[:max]
	}
	return scored
}

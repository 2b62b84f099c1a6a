package api

import (
	"github.com/skimsearch/skim/pkg/overview"
)

// SearchResult is one ranked page in a JSON search response.
type SearchResult struct {
	Name  string  `json:"name"`
	Title string  `json:"title"`
	Text  string  `json:"text,omitempty"`
	Rank  float64 `json:"rank"`
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Group   int            `json:"group"`
	Dir     string         `json:"dir"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

type OverviewRequest struct {
	Query     string `json:"q"`
	DisableAI bool   `json:"disable_ai,omitempty"`
}

type OverviewResponse struct {
	Query    string            `json:"query"`
	Overview overview.Overview `json:"overview"`
	Group    int               `json:"group"`
	Dir      string            `json:"dir"`
}

type StatsResponse struct {
	Dirs       map[string]int `json:"dirs"`
	TotalPages int            `json:"total_pages"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

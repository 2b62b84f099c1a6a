package api

import (
	"encoding/json"
	"net/http"

	"github.com/skimsearch/skim/pkg/search"
	"github.com/skimsearch/skim/pkg/version"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := search.ParseParams(r.URL.Query())
	if params.Query == "" {
		s.writeError(w, http.StatusBadRequest, "missing query", "q parameter is required")
		return
	}

	result, err := s.GenerateOverview(r.Context(), Participant(r), search.Params{
		Query:     params.Query,
		DisableAI: true,
		Limit:     params.Limit,
	})
	if err != nil {
		s.logger.Errorf("search failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "search failed", err.Error())
		return
	}

	results := make([]SearchResult, len(result.Results))
	for i, sp := range result.Results {
		results[i] = SearchResult{
			Name:  sp.Name,
			Title: sp.Title,
			Rank:  sp.Rank,
		}
	}

	s.writeJSON(w, http.StatusOK, SearchResponse{
		Query:   params.Query,
		Group:   result.Group,
		Dir:     result.Dir,
		Results: results,
		Count:   len(results),
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	var req OverviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "missing query", "q field is required")
		return
	}

	result, err := s.GenerateOverview(r.Context(), Participant(r), search.Params{
		Query:     req.Query,
		DisableAI: req.DisableAI,
	})
	if err != nil {
		s.logger.Errorf("overview failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "overview failed", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, OverviewResponse{
		Query:    req.Query,
		Overview: result.Overview,
		Group:    result.Group,
		Dir:      result.Dir,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	dirs := make(map[string]int)
	total := 0
	for _, dir := range s.corpusDirs {
		count, err := s.index.PageCount(dir)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "stats failed", err.Error())
			return
		}
		dirs[dir] = count
		total += count
	}

	s.writeJSON(w, http.StatusOK, StatsResponse{
		Dirs:       dirs,
		TotalPages: total,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.BuildVersion(),
	})
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/skimsearch/skim/pkg/corpus"
	"github.com/skimsearch/skim/pkg/eventlog"
	"github.com/skimsearch/skim/pkg/log"
	"github.com/skimsearch/skim/pkg/overview"
	"github.com/skimsearch/skim/pkg/realtime"
	"github.com/skimsearch/skim/pkg/search"
	"github.com/skimsearch/skim/pkg/storage"
)

// ParticipantCookie identifies the study participant and selects their
// corpus group.
const ParticipantCookie = "participant_id"

// candidateLimit is how many pages are pulled from the index per query before
// the top sources are selected for the prompt.
const candidateLimit = 80

// promptSources is how many ranked pages are handed to the overview service.
const promptSources = 8

// AdminAuthFunc reports whether the request carries admin access. The web
// layer owns the cookie scheme; the API layer only needs the verdict (for the
// live-tail WebSocket).
type AdminAuthFunc func(*http.Request) bool

type Server struct {
	index      *storage.Index
	searcher   *search.Service
	overviews  *overview.Service
	events     *eventlog.Log
	hub        *realtime.Hub
	corpusDirs []string
	adminAuth  AdminAuthFunc
	logger     *log.Logger
}

func NewServer(index *storage.Index, overviews *overview.Service, events *eventlog.Log, hub *realtime.Hub, corpusDirs []string, adminAuth AdminAuthFunc) *Server {
	return &Server{
		index:      index,
		searcher:   search.NewService(index),
		overviews:  overviews,
		events:     events,
		hub:        hub,
		corpusDirs: corpusDirs,
		adminAuth:  adminAuth,
		logger:     log.ForComponent("api"),
	}
}

// Participant extracts the participant ID cookie, empty when unset.
func Participant(r *http.Request) string {
	cookie, err := r.Cookie(ParticipantCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// OverviewResult bundles everything one results-page render needs.
type OverviewResult struct {
	Overview overview.Overview
	Results  []storage.ScoredPage
	Group    int
	Dir      string
}

// GenerateOverview runs the full per-request pipeline: group selection,
// ranked search, overview orchestration and event recording. Shared between
// the JSON API and the HTML results page.
func (s *Server) GenerateOverview(ctx context.Context, participant string, params search.Params) (*OverviewResult, error) {
	group := corpus.GroupFor(participant)
	dir := corpus.DirForGroup(s.corpusDirs, group)

	candidates, err := s.searcher.Search(dir, search.Params{Query: params.Query, Limit: candidateLimit, Page: 1})
	if err != nil {
		return nil, err
	}

	sources := candidates
	if len(sources) > promptSources {
		sources = sources[:promptSources]
	}
	pages := make([]corpus.Page, len(sources))
	names := make([]string, len(sources))
	for i, sp := range sources {
		pages[i] = sp.Page
		names[i] = sp.Name
	}

	ov := s.overviews.Generate(ctx, params.Query, pages, params.DisableAI)

	if err := s.events.RecordEvent(eventlog.Event{
		Participant: participant,
		Kind:        "query",
		Query:       params.Query,
		Target:      targetDescription(len(candidates), dir),
		Sources:     names,
		Overview:    ov.Text,
		Group:       group,
	}); err != nil {
		s.logger.Warnf("recording overview event: %v", err)
	}

	results := candidates
	if params.Limit > 0 && len(results) > params.Limit {
		results = results[:params.Limit]
	}

	return &OverviewResult{
		Overview: ov,
		Results:  results,
		Group:    group,
		Dir:      dir,
	}, nil
}

func targetDescription(candidates int, dir string) string {
	if candidates == 1 {
		return "1 candidate from " + dir
	}
	return strconv.Itoa(candidates) + " candidates from " + dir
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

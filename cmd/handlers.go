package cmd

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/skimsearch/skim/pkg/api"
	"github.com/skimsearch/skim/pkg/corpus"
	"github.com/skimsearch/skim/pkg/eventlog"
	"github.com/skimsearch/skim/pkg/overview"
	"github.com/skimsearch/skim/pkg/render"
	"github.com/skimsearch/skim/pkg/search"
	"github.com/skimsearch/skim/pkg/version"
)

const (
	participantCookieAge = 90 * 24 * 60 * 60 // seconds
	snippetLength        = 280
	maxWebResults        = 50
)

type homeData struct {
	Title       string
	Participant string
	Error       string
	Version     string
}

type resultView struct {
	Title   string
	Name    string
	Snippet string
	ViewURL string
}

type resultsData struct {
	Title       string
	Query       string
	Participant string
	Overview    overview.Overview
	AIDisabled  bool
	ToggleURL   string
	Results     []resultView
	Error       string
	Version     string
}

type submittedData struct {
	Title       string
	Query       string
	Participant string
	WordCount   int
	Version     string
}

// handleHome serves the participant gate or the search page
func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	// Queries against the root go straight to the results page
	query := r.URL.Query().Get("q")
	if query != "" {
		http.Redirect(w, r, "/results?"+r.URL.RawQuery, http.StatusFound)
		return
	}

	participant := api.Participant(r)
	if participant == "" {
		s.renderPage(w, "gate", homeData{
			Title:   "Welcome",
			Version: version.APIVersion(),
		})
		return
	}

	s.renderPage(w, "home", homeData{
		Title:       "Search",
		Participant: participant,
		Version:     version.APIVersion(),
	})
}

// handleParticipant stores the participant ID and assigns the corpus group
func (s *WebServer) handleParticipant(w http.ResponseWriter, r *http.Request) {
	participant := strings.TrimSpace(r.FormValue("participant_id"))
	if participant == "" {
		w.WriteHeader(http.StatusBadRequest)
		s.renderPage(w, "gate", homeData{
			Title:   "Welcome",
			Error:   "Please enter your participant ID.",
			Version: version.APIVersion(),
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     api.ParticipantCookie,
		Value:    participant,
		Path:     "/",
		MaxAge:   participantCookieAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if err := s.events.RecordEvent(eventlog.Event{
		Participant: participant,
		Kind:        "participant",
		Group:       corpus.GroupFor(participant),
	}); err != nil {
		s.logger.Warnf("recording participant event: %v", err)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// handleResults renders ranked results plus the overview box
func (s *WebServer) handleResults(w http.ResponseWriter, r *http.Request) {
	participant := api.Participant(r)
	if participant == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	params := search.ParseParams(r.URL.Query())
	if params.Query == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if params.Limit > maxWebResults {
		params.Limit = maxWebResults
	}

	data := resultsData{
		Title:       params.Query + " - Skim",
		Query:       params.Query,
		Participant: participant,
		AIDisabled:  params.DisableAI,
		ToggleURL:   toggleURL(params),
		Version:     version.APIVersion(),
	}

	result, err := s.apiServer.GenerateOverview(r.Context(), participant, params)
	if err != nil {
		s.logger.Errorf("results for %q: %v", params.Query, err)
		data.Error = "Search failed. Please try a different query."
		s.renderPage(w, "results", data)
		return
	}

	data.Overview = result.Overview
	data.Results = make([]resultView, len(result.Results))
	for i, page := range result.Results {
		data.Results[i] = resultView{
			Title:   page.Title,
			Name:    page.Name,
			Snippet: render.Truncate(page.Text, snippetLength),
			ViewURL: outURL(result.Dir, page.Name, params.Query),
		}
	}

	s.renderPage(w, "results", data)
}

// handlePage serves one corpus HTML file. Only files directly inside a
// configured corpus directory are reachable.
func (s *WebServer) handlePage(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	name := r.URL.Query().Get("name")

	if !s.dirAllowed(dir) || !validPageName(name) {
		http.NotFound(w, r)
		return
	}

	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(content); err != nil {
		s.logger.Warnf("writing page %s/%s: %v", dir, name, err)
	}
}

// handleOut records the click and forwards to the page
func (s *WebServer) handleOut(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	name := r.URL.Query().Get("name")
	query := r.URL.Query().Get("q")

	if !s.dirAllowed(dir) || !validPageName(name) {
		http.NotFound(w, r)
		return
	}

	participant := api.Participant(r)
	if err := s.events.RecordEvent(eventlog.Event{
		Participant: participant,
		Kind:        "click",
		Query:       query,
		Target:      dir + "/" + name,
		Group:       corpus.GroupFor(participant),
	}); err != nil {
		s.logger.Warnf("recording click event: %v", err)
	}

	values := url.Values{}
	values.Set("dir", dir)
	values.Set("name", name)
	http.Redirect(w, r, "/page?"+values.Encode(), http.StatusFound)
}

// handleSubmit stores a written answer
func (s *WebServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	participant := api.Participant(r)
	if participant == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	query := strings.TrimSpace(r.FormValue("q"))
	text := strings.TrimSpace(r.FormValue("text"))

	if err := s.events.RecordSubmission(participant, query, text); err != nil {
		s.logger.Errorf("recording submission: %v", err)
		http.Error(w, "Failed to store submission", http.StatusInternalServerError)
		return
	}

	s.renderPage(w, "submitted", submittedData{
		Title:       "Answer submitted",
		Query:       query,
		Participant: participant,
		WordCount:   len(strings.Fields(text)),
		Version:     version.APIVersion(),
	})
}

func (s *WebServer) dirAllowed(dir string) bool {
	for _, d := range s.config.CorpusDirs {
		if d == dir {
			return true
		}
	}
	return false
}

// validPageName rejects anything but a bare .html filename.
func validPageName(name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), ".html")
}

func outURL(dir, name, query string) string {
	values := url.Values{}
	values.Set("dir", dir)
	values.Set("name", name)
	values.Set("q", query)
	return "/out?" + values.Encode()
}

// toggleURL flips the ai flag on the current results URL.
func toggleURL(params search.Params) string {
	values := url.Values{}
	values.Set("q", params.Query)
	if !params.DisableAI {
		values.Set("ai", "0")
	}
	return "/results?" + values.Encode()
}

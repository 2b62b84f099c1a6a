package cmd

import (
	"crypto/subtle"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/skimsearch/skim/pkg/version"
)

const (
	adminCookie     = "admin_session"
	adminSessionTTL = 24 * time.Hour
)

// sessionStore holds granted admin sessions. Tokens live in memory only, so
// restarting the server logs every admin out.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]time.Time)}
}

// Grant issues a new session token.
func (s *sessionStore) Grant() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = time.Now().Add(adminSessionTTL)
	s.mu.Unlock()
	return token
}

// Valid reports whether token identifies a live session. Expired tokens are
// dropped on sight.
func (s *sessionStore) Valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}

func (s *sessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

type adminData struct {
	Title         string
	Participant   string
	Error         string
	EventCount    int
	SubmissionCnt int
	Listeners     int
	AIEnabled     bool
	Version       string
}

type adminTableData struct {
	Title       string
	Participant string
	Header      []string
	Rows        [][]string
	CSVPath     string
	Clear       string
	Version     string
}

func (s *WebServer) isAdmin(r *http.Request) bool {
	cookie, err := r.Cookie(adminCookie)
	if err != nil {
		return false
	}
	return s.sessions.Valid(cookie.Value)
}

// requireAdmin redirects unauthenticated requests to the login page.
func (s *WebServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(r) {
			http.Redirect(w, r, "/admin", http.StatusFound)
			return
		}
		next(w, r)
	}
}

// handleAdmin serves the login form or the dashboard
func (s *WebServer) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r) {
		s.renderPage(w, "admin_login", adminData{
			Title:   "Admin login",
			Version: version.APIVersion(),
		})
		return
	}

	data := adminData{
		Title:     "Admin",
		Listeners: s.hub.Size(),
		AIEnabled: s.config.HasAPIKey(),
		Version:   version.APIVersion(),
	}
	if rows, err := s.events.ReadEvents(); err == nil && len(rows) > 0 {
		data.EventCount = len(rows) - 1
	}
	if rows, err := s.events.ReadSubmissions(); err == nil && len(rows) > 0 {
		data.SubmissionCnt = len(rows) - 1
	}

	s.renderPage(w, "admin_home", data)
}

func (s *WebServer) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	password := r.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.config.AdminPassword)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		s.renderPage(w, "admin_login", adminData{
			Title:   "Admin login",
			Error:   "Wrong password.",
			Version: version.APIVersion(),
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    s.sessions.Grant(),
		Path:     "/",
		MaxAge:   int(adminSessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (s *WebServer) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(adminCookie); err == nil {
		s.sessions.Revoke(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// handleAdminEvents renders the interaction log table
func (s *WebServer) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	s.renderLogTable(w, "Events", s.events.ReadEvents, "/admin/events.csv", "/admin/events/clear")
}

// handleAdminSubmissions renders the submissions table
func (s *WebServer) handleAdminSubmissions(w http.ResponseWriter, r *http.Request) {
	s.renderLogTable(w, "Submissions", s.events.ReadSubmissions, "/admin/submissions.csv", "/admin/submissions/clear")
}

func (s *WebServer) renderLogTable(w http.ResponseWriter, title string, read func() ([][]string, error), csvPath, clearPath string) {
	rows, err := read()
	if err != nil {
		s.logger.Errorf("reading %s log: %v", title, err)
		http.Error(w, "Failed to read log", http.StatusInternalServerError)
		return
	}

	data := adminTableData{
		Title:   title,
		CSVPath: csvPath,
		Clear:   clearPath,
		Version: version.APIVersion(),
	}
	if len(rows) > 0 {
		data.Header = rows[0]
		// Most recent first.
		body := rows[1:]
		data.Rows = make([][]string, len(body))
		for i, row := range body {
			data.Rows[len(body)-1-i] = row
		}
	}

	s.renderPage(w, "admin_table", data)
}

// handleEventsCSV streams the raw event log, gzip-compressed with ?gz=1
func (s *WebServer) handleEventsCSV(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, s.events.EventsPath(), "events.csv")
}

// handleSubmissionsCSV streams the raw submissions log
func (s *WebServer) handleSubmissionsCSV(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, s.events.SubmissionsPath(), "submissions.csv")
}

func (s *WebServer) serveCSV(w http.ResponseWriter, r *http.Request, path, filename string) {
	file, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = file.Close() }()

	if r.URL.Query().Get("gz") == "1" {
		w.Header().Set("Content-Type", "application/gzip")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.gz"`)

		gz := gzip.NewWriter(w)
		if _, err := io.Copy(gz, file); err != nil {
			s.logger.Warnf("compressing %s: %v", filename, err)
			return
		}
		if err := gz.Close(); err != nil {
			s.logger.Warnf("flushing gzip for %s: %v", filename, err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := io.Copy(w, file); err != nil {
		s.logger.Warnf("streaming %s: %v", filename, err)
	}
}

func (s *WebServer) handleClearEvents(w http.ResponseWriter, r *http.Request) {
	if err := s.events.ClearEvents(); err != nil {
		s.logger.Errorf("clearing events: %v", err)
		http.Error(w, "Failed to clear events", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/events", http.StatusFound)
}

func (s *WebServer) handleClearSubmissions(w http.ResponseWriter, r *http.Request) {
	if err := s.events.ClearSubmissions(); err != nil {
		s.logger.Errorf("clearing submissions: %v", err)
		http.Error(w, "Failed to clear submissions", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/submissions", http.StatusFound)
}

// handleAdminLive serves the live event tail page
func (s *WebServer) handleAdminLive(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "admin_live", adminData{
		Title:     "Live events",
		Listeners: s.hub.Size(),
		Version:   version.APIVersion(),
	})
}

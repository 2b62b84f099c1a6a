package cmd

import (
	"context"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/skimsearch/skim/pkg/api"
	"github.com/skimsearch/skim/pkg/config"
	"github.com/skimsearch/skim/pkg/eventlog"
	"github.com/skimsearch/skim/pkg/log"
	"github.com/skimsearch/skim/pkg/overview"
	"github.com/skimsearch/skim/pkg/realtime"
	"github.com/skimsearch/skim/pkg/render"
)

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func writeCorpusFile(t *testing.T, dir, name, title, body string) {
	t.Helper()
	content := "<html><head><title>" + title + "</title></head><body><p>" + body + "</p></body></html>"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing corpus file: %v", err)
	}
}

func setupTestWebServer(t *testing.T, gen overview.Generator) (*WebServer, *httptest.Server) {
	t.Helper()
	tempDir := t.TempDir()

	dir1 := filepath.Join(tempDir, "webpages")
	dir2 := filepath.Join(tempDir, "webpages2")
	for _, d := range []string{dir1, dir2} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	writeCorpusFile(t, dir1, "solar.html", "Solar Power Basics", "solar panels convert sunlight into electricity")
	writeCorpusFile(t, dir1, "wind.html", "Wind Energy", "wind turbines generate power from moving air")
	writeCorpusFile(t, dir2, "hydro.html", "Hydro Plants", "dams use falling water to spin turbines")

	cfg := &config.Config{
		Host:          "127.0.0.1",
		Port:          0,
		StorageDir:    filepath.Join(tempDir, "storage"),
		LogsDir:       filepath.Join(tempDir, "logs"),
		AdminPassword: "gour",
		CorpusDirs:    []string{dir1, dir2},
	}

	index, err := openIndex(cfg)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	for _, d := range cfg.CorpusDirs {
		if _, err := indexCorpusDir(index, d); err != nil {
			t.Fatalf("index %s: %v", d, err)
		}
	}

	hub := realtime.NewHub(8)
	events, err := eventlog.New(cfg.LogsDir, hub)
	if err != nil {
		t.Fatalf("new eventlog: %v", err)
	}

	templates, err := template.New("web").Funcs(render.GetTemplateFuncs()).ParseFS(webFS, "web/templates/*.html")
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	ws := &WebServer{
		config:    cfg,
		index:     index,
		events:    events,
		hub:       hub,
		sessions:  newSessionStore(),
		templates: templates,
		logger:    log.ForComponent("web"),
	}
	ws.apiServer = api.NewServer(index, overview.NewService(gen), events, hub, cfg.CorpusDirs, ws.isAdmin)

	mux := http.NewServeMux()
	ws.registerRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ws, ts
}

// noRedirectClient returns responses as-is so tests can assert on 302s.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func getWithCookies(t *testing.T, rawURL string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func postForm(t *testing.T, rawURL string, form url.Values, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest("POST", rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func participantCookie(id string) *http.Cookie {
	return &http.Cookie{Name: api.ParticipantCookie, Value: id}
}

func TestHomeShowsGateWithoutParticipant(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)

	resp := getWithCookies(t, ts.URL+"/")
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `name="participant_id"`) {
		t.Error("expected participant gate form")
	}
}

func TestHomeShowsSearchWithParticipant(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)

	resp := getWithCookies(t, ts.URL+"/", participantCookie("subject1"))
	body := readBody(t, resp)

	if !strings.Contains(body, `action="/results"`) {
		t.Error("expected search form on home page")
	}
	if strings.Contains(body, `name="participant_id"`) {
		t.Error("gate form should not render for returning participants")
	}
}

func TestParticipantPostSetsCookieAndLogs(t *testing.T) {
	ws, ts := setupTestWebServer(t, nil)

	resp := postForm(t, ts.URL+"/participant", url.Values{"participant_id": {"subject1"}})
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == api.ParticipantCookie && c.Value == "subject1" {
			found = true
		}
	}
	if !found {
		t.Error("expected participant cookie to be set")
	}

	rows, err := ws.events.ReadEvents()
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(rows) != 2 || rows[1][3] != "participant" {
		t.Errorf("expected a participant event row, got %v", rows)
	}
}

func TestParticipantPostRejectsEmpty(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)

	resp := postForm(t, ts.URL+"/participant", url.Values{"participant_id": {"   "}})
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestResultsRequiresParticipant(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)

	resp := getWithCookies(t, ts.URL+"/results?q=solar")
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect to gate, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func TestResultsPageWithAI(t *testing.T) {
	gen := &fakeGenerator{reply: "Solar panels turn sunlight into electricity [1]."}
	_, ts := setupTestWebServer(t, gen)

	resp := getWithCookies(t, ts.URL+"/results?q=solar", participantCookie("subject1"))
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gen.calls != 1 {
		t.Errorf("expected one generator call, got %d", gen.calls)
	}
	if !strings.Contains(body, "AI overview") {
		t.Error("expected AI overview badge")
	}
	if !strings.Contains(body, "Solar panels turn sunlight into electricity") {
		t.Error("expected generated overview text")
	}
	if !strings.Contains(body, "solar.html") {
		t.Error("expected ranked result for solar.html")
	}
	if !strings.Contains(body, "Disable AI overview") {
		t.Error("expected toggle link to disable AI")
	}
}

func TestResultsPageAIOverride(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be used"}
	_, ts := setupTestWebServer(t, gen)

	resp := getWithCookies(t, ts.URL+"/results?q=solar&ai=0", participantCookie("subject1"))
	body := readBody(t, resp)

	if gen.calls != 0 {
		t.Errorf("expected no generator calls with ai=0, got %d", gen.calls)
	}
	if strings.Contains(body, "should not be used") {
		t.Error("AI text must not appear when disabled")
	}
	if !strings.Contains(body, "Enable AI overview") {
		t.Error("expected toggle link to re-enable AI")
	}
}

func TestResultsParticipantGroupSelectsCorpus(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)

	// Even trailing digit lands in the second corpus directory.
	resp := getWithCookies(t, ts.URL+"/results?q=water", participantCookie("subject2"))
	body := readBody(t, resp)

	if !strings.Contains(body, "hydro.html") {
		t.Error("expected results from the second corpus directory")
	}
	if strings.Contains(body, "solar.html") {
		t.Error("did not expect results from the first corpus directory")
	}
}

func TestPageServing(t *testing.T) {
	ws, ts := setupTestWebServer(t, nil)
	dir := ws.config.CorpusDirs[0]

	resp := getWithCookies(t, ts.URL+"/page?"+url.Values{"dir": {dir}, "name": {"solar.html"}}.Encode())
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Solar Power Basics") {
		t.Error("expected corpus page content")
	}
}

func TestPageServingRejectsBadRequests(t *testing.T) {
	ws, ts := setupTestWebServer(t, nil)
	dir := ws.config.CorpusDirs[0]

	cases := []struct {
		name   string
		values url.Values
	}{
		{"unknown dir", url.Values{"dir": {"/etc"}, "name": {"passwd.html"}}},
		{"traversal", url.Values{"dir": {dir}, "name": {"../secrets.html"}}},
		{"non-html", url.Values{"dir": {dir}, "name": {"notes.txt"}}},
		{"missing file", url.Values{"dir": {dir}, "name": {"nope.html"}}},
		{"empty name", url.Values{"dir": {dir}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := getWithCookies(t, ts.URL+"/page?"+tc.values.Encode())
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("expected 404, got %d", resp.StatusCode)
			}
		})
	}
}

func TestOutRecordsClickAndRedirects(t *testing.T) {
	ws, ts := setupTestWebServer(t, nil)
	dir := ws.config.CorpusDirs[0]

	values := url.Values{"dir": {dir}, "name": {"solar.html"}, "q": {"solar"}}
	resp := getWithCookies(t, ts.URL+"/out?"+values.Encode(), participantCookie("subject1"))
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/page?") || !strings.Contains(loc, "solar.html") {
		t.Errorf("expected redirect to /page, got %q", loc)
	}

	rows, err := ws.events.ReadEvents()
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one click event, got %d rows", len(rows))
	}
	if rows[1][3] != "click" || rows[1][4] != "solar" {
		t.Errorf("unexpected click row: %v", rows[1])
	}
}

func TestSubmitRecordsAnswer(t *testing.T) {
	ws, ts := setupTestWebServer(t, nil)

	form := url.Values{"q": {"solar"}, "text": {"solar panels are efficient and clean"}}
	resp := postForm(t, ts.URL+"/submit", form, participantCookie("subject1"))
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "6 words") {
		t.Error("expected word count in confirmation page")
	}

	rows, err := ws.events.ReadSubmissions()
	if err != nil {
		t.Fatalf("read submissions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one submission row, got %d", len(rows))
	}
	if rows[1][2] != "subject1" || rows[1][4] != "6" {
		t.Errorf("unexpected submission row: %v", rows[1])
	}
}

func adminLogin(t *testing.T, ts *httptest.Server, password string) (*http.Response, *http.Cookie) {
	t.Helper()
	resp := postForm(t, ts.URL+"/admin/login", url.Values{"password": {password}})
	for _, c := range resp.Cookies() {
		if c.Name == adminCookie {
			return resp, c
		}
	}
	return resp, nil
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)

	resp, cookie := adminLogin(t, ts, "wrong")
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if cookie != nil {
		t.Error("no session cookie should be issued for a wrong password")
	}
}

func TestAdminLoginGrantsSession(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)

	resp, cookie := adminLogin(t, ts, "gour")
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 after login, got %d", resp.StatusCode)
	}
	if cookie == nil {
		t.Fatal("expected admin session cookie")
	}

	events := getWithCookies(t, ts.URL+"/admin/events", cookie)
	body := readBody(t, events)
	if events.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on events page, got %d", events.StatusCode)
	}
	if !strings.Contains(body, "Download CSV") {
		t.Error("expected events table page")
	}
}

func TestAdminPagesRedirectWithoutSession(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)

	for _, path := range []string{"/admin/events", "/admin/submissions", "/admin/live", "/admin/events.csv"} {
		resp := getWithCookies(t, ts.URL+path)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Errorf("%s: expected redirect to login, got %d", path, resp.StatusCode)
		}
	}
}

func TestAdminCSVDownloadGzip(t *testing.T) {
	ws, ts := setupTestWebServer(t, nil)
	_, cookie := adminLogin(t, ts, "gour")
	if cookie == nil {
		t.Fatal("login failed")
	}

	if err := ws.events.RecordEvent(eventlog.Event{Participant: "subject1", Kind: "click", Query: "solar"}); err != nil {
		t.Fatalf("record event: %v", err)
	}

	resp := getWithCookies(t, ts.URL+"/admin/events.csv?gz=1", cookie)
	defer func() { _ = resp.Body.Close() }()

	if got := resp.Header.Get("Content-Type"); got != "application/gzip" {
		t.Errorf("expected application/gzip, got %q", got)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	content, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !strings.Contains(string(content), "solar") {
		t.Error("expected event row in compressed CSV")
	}
}

func TestAdminClearEvents(t *testing.T) {
	ws, ts := setupTestWebServer(t, nil)
	_, cookie := adminLogin(t, ts, "gour")
	if cookie == nil {
		t.Fatal("login failed")
	}

	if err := ws.events.RecordEvent(eventlog.Event{Participant: "subject1", Kind: "click"}); err != nil {
		t.Fatalf("record event: %v", err)
	}

	resp := postForm(t, ts.URL+"/admin/events/clear", url.Values{}, cookie)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after clear, got %d", resp.StatusCode)
	}

	rows, err := ws.events.ReadEvents()
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected only the header after clear, got %d rows", len(rows))
	}
}

func TestAdminLogout(t *testing.T) {
	_, ts := setupTestWebServer(t, nil)
	_, cookie := adminLogin(t, ts, "gour")
	if cookie == nil {
		t.Fatal("login failed")
	}

	resp := postForm(t, ts.URL+"/admin/logout", url.Values{}, cookie)
	_ = resp.Body.Close()

	after := getWithCookies(t, ts.URL+"/admin/events", cookie)
	_ = after.Body.Close()
	if after.StatusCode != http.StatusFound {
		t.Errorf("expected redirect after logout, got %d", after.StatusCode)
	}
}

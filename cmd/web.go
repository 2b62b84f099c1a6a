package cmd

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/skimsearch/skim/pkg/api"
	"github.com/skimsearch/skim/pkg/config"
	"github.com/skimsearch/skim/pkg/eventlog"
	"github.com/skimsearch/skim/pkg/log"
	"github.com/skimsearch/skim/pkg/overview"
	"github.com/skimsearch/skim/pkg/realtime"
	"github.com/skimsearch/skim/pkg/render"
	"github.com/skimsearch/skim/pkg/storage"
)

//go:embed web/templates/* web/static/*
var webFS embed.FS

const hubBufferSize = 32

// WebCommand creates the web command with both API and HTML interface
func WebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start web server with search pages, AI overviews and admin logs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides config)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reindex corpus directories when their files change",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return startWebServer(ctx, c.String("config"), c.String("host"), c.String("port"), c.Bool("watch"))
		},
	}
}

// WebServer holds the server configuration and dependencies
type WebServer struct {
	config    *config.Config
	index     *storage.Index
	apiServer *api.Server
	events    *eventlog.Log
	hub       *realtime.Hub
	sessions  *sessionStore
	templates *template.Template
	logger    *log.Logger
}

// startWebServer starts the web server with both API and HTML interface
func startWebServer(ctx context.Context, configPath, host, port string, watch bool) error {
	logger := log.ForComponent("web")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if host != "" {
		cfg.Host = host
	}
	if port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", port, err)
		}
		cfg.Port = parsed
	}

	index, err := openIndex(cfg)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer func() {
		if err := index.Close(); err != nil {
			logger.Warnf("failed to close index: %v", err)
		}
	}()

	if err := indexIfEmpty(index, cfg, logger); err != nil {
		return err
	}

	hub := realtime.NewHub(hubBufferSize)
	events, err := eventlog.New(cfg.LogsDir, hub)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	if err := events.EnsureFiles(); err != nil {
		return fmt.Errorf("preparing event log files: %w", err)
	}

	var generator overview.Generator
	if cfg.HasAPIKey() {
		client, err := overview.NewGeminiClient(ctx, cfg.AI)
		if err != nil {
			logger.Warnf("Gemini client unavailable, falling back to heuristic overviews: %v", err)
		} else {
			generator = client
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warnf("failed to close Gemini client: %v", err)
				}
			}()
		}
	} else {
		logger.Infof("no API key configured, overviews use the heuristic generator")
	}

	templates, err := template.New("web").Funcs(render.GetTemplateFuncs()).ParseFS(webFS, "web/templates/*.html")
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}

	webServer := &WebServer{
		config:    cfg,
		index:     index,
		events:    events,
		hub:       hub,
		sessions:  newSessionStore(),
		templates: templates,
		logger:    logger,
	}
	webServer.apiServer = api.NewServer(index, overview.NewService(generator), events, hub, cfg.CorpusDirs, webServer.isAdmin)

	mux := http.NewServeMux()
	webServer.registerRoutes(mux)

	handler := api.CorsMiddleware(mux)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	if watch {
		watcher, err := watchCorpus(index, cfg.CorpusDirs, logger)
		if err != nil {
			return fmt.Errorf("starting corpus watcher: %w", err)
		}
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("failed to close corpus watcher: %v", err)
			}
		}()
	}

	go func() {
		logger.Infof("Starting web server on http://%s", cfg.Addr())
		logger.Infof("Available endpoints:")
		logger.Infof("  Web UI:")
		logger.Infof("    GET  /                - Search page (participant gate on first visit)")
		logger.Infof("    GET  /results         - Search results with AI overview")
		logger.Infof("    GET  /page            - Serve a corpus page")
		logger.Infof("    GET  /out             - Click-tracking redirect")
		logger.Infof("    POST /submit          - Submit a written answer")
		logger.Infof("    GET  /admin           - Admin log pages")
		logger.Infof("  API:")
		logger.Infof("    GET  /api/search      - Ranked search results")
		logger.Infof("    POST /api/overview    - Generate an overview")
		logger.Infof("    GET  /api/stats       - Index statistics")
		logger.Infof("    GET  /api/events/ws   - Live event stream (admin)")
		logger.Infof("    GET  /health          - Health check")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Server failed to start: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down web server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// registerRoutes attaches the JSON API, the search pages and the admin
// surface to mux.
func (s *WebServer) registerRoutes(mux *http.ServeMux) {
	// API routes
	s.apiServer.RegisterRoutes(mux)

	// Search pages
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("POST /participant", s.handleParticipant)
	mux.HandleFunc("GET /results", s.handleResults)
	mux.HandleFunc("GET /page", s.handlePage)
	mux.HandleFunc("GET /out", s.handleOut)
	mux.HandleFunc("POST /submit", s.handleSubmit)

	// Admin surface
	mux.HandleFunc("GET /admin", s.handleAdmin)
	mux.HandleFunc("POST /admin/login", s.handleAdminLogin)
	mux.HandleFunc("POST /admin/logout", s.handleAdminLogout)
	mux.HandleFunc("GET /admin/events", s.requireAdmin(s.handleAdminEvents))
	mux.HandleFunc("GET /admin/submissions", s.requireAdmin(s.handleAdminSubmissions))
	mux.HandleFunc("GET /admin/events.csv", s.requireAdmin(s.handleEventsCSV))
	mux.HandleFunc("GET /admin/submissions.csv", s.requireAdmin(s.handleSubmissionsCSV))
	mux.HandleFunc("POST /admin/events/clear", s.requireAdmin(s.handleClearEvents))
	mux.HandleFunc("POST /admin/submissions/clear", s.requireAdmin(s.handleClearSubmissions))
	mux.HandleFunc("GET /admin/live", s.requireAdmin(s.handleAdminLive))

	// Static assets
	mux.HandleFunc("/static/", s.handleStatic)
}

// indexIfEmpty builds the index on first start so the server is usable
// without a separate index run.
func indexIfEmpty(index *storage.Index, cfg *config.Config, logger *log.Logger) error {
	total := 0
	for _, dir := range cfg.CorpusDirs {
		count, err := index.PageCount(dir)
		if err != nil {
			return fmt.Errorf("checking index: %w", err)
		}
		total += count
	}
	if total > 0 {
		return nil
	}

	for _, dir := range cfg.CorpusDirs {
		count, err := indexCorpusDir(index, dir)
		if err != nil {
			logger.Warnf("skipping corpus directory %s: %v", dir, err)
			continue
		}
		logger.Infof("Indexed %d pages from %s", count, dir)
	}
	return nil
}

// renderPage executes a named template, degrading to a plain 500 on failure.
func (s *WebServer) renderPage(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Errorf("rendering %s: %v", name, err)
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
	}
}

// handleStatic serves static assets from embedded files
func (s *WebServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	filePath := "web/static/" + strings.TrimPrefix(path, "/static/")

	content, err := webFS.ReadFile(filePath)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(path, ".css") {
		w.Header().Set("Content-Type", "text/css")
	} else if strings.HasSuffix(path, ".js") {
		w.Header().Set("Content-Type", "application/javascript")
	} else if strings.HasSuffix(path, ".ico") {
		w.Header().Set("Content-Type", "image/x-icon")
	} else if strings.HasSuffix(path, ".png") {
		w.Header().Set("Content-Type", "image/png")
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")

	if _, err := w.Write(content); err != nil {
		s.logger.Warnf("writing static content: %v", err)
	}
}

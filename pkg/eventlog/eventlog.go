// Package eventlog persists study events and submissions as CSV files under
// the configured logs directory. Writes are best-effort: the admin pages read
// these files back, and every appended event is also broadcast on the
// realtime hub for live tailing.
package eventlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skimsearch/skim/pkg/realtime"
)

const (
	eventsFile      = "events.csv"
	submissionsFile = "submissions.csv"
)

// Field caps keep a single pathological request from bloating the log.
const (
	maxQueryLen    = 4000
	maxTargetLen   = 4000
	maxSourcesLen  = 8000
	maxOverviewLen = 16000
	maxTextLen     = 65000
)

var eventsHeader = []string{"timestamp", "id", "participant", "type", "query", "target", "sources", "overview", "group"}
var submissionsHeader = []string{"timestamp", "id", "participant", "query", "word_count", "text"}

// Event is one recorded study event (overview render, result click,
// submission marker).
type Event struct {
	Participant string
	Kind        string
	Query       string
	Target      string
	Sources     []string
	Overview    string
	Group       int
}

// Log appends and reads the CSV logs. Safe for concurrent use.
type Log struct {
	dir string
	hub *realtime.Hub
	mu  sync.Mutex

	now func() time.Time
}

// New creates the logs directory if needed. hub may be nil when no live
// listeners are wanted (CLI usage, tests).
func New(dir string, hub *realtime.Hub) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs directory %s: %w", dir, err)
	}
	return &Log{dir: dir, hub: hub, now: time.Now}, nil
}

// EventsPath returns the events CSV location (for downloads).
func (l *Log) EventsPath() string {
	return filepath.Join(l.dir, eventsFile)
}

// SubmissionsPath returns the submissions CSV location (for downloads).
func (l *Log) SubmissionsPath() string {
	return filepath.Join(l.dir, submissionsFile)
}

// RecordEvent appends one event row and broadcasts it to live listeners.
func (l *Log) RecordEvent(ev Event) error {
	ts := l.now()
	id := uuid.New().String()

	sources := make([]string, 0, len(ev.Sources))
	for i, s := range ev.Sources {
		sources = append(sources, fmt.Sprintf("%d:%s", i+1, s))
	}
	sourcesStr := strings.Join(sources, ";")

	row := []string{
		ts.Format("2006-01-02 15:04:05"),
		id,
		clean(ev.Participant, 200),
		clean(ev.Kind, 64),
		clean(ev.Query, maxQueryLen),
		clean(ev.Target, maxTargetLen),
		clean(sourcesStr, maxSourcesLen),
		clean(ev.Overview, maxOverviewLen),
		strconv.Itoa(ev.Group),
	}

	if err := l.append(l.EventsPath(), eventsHeader, row); err != nil {
		return err
	}

	if l.hub != nil {
		l.hub.Broadcast(realtime.LogEvent{
			ID:          id,
			Timestamp:   ts,
			Participant: ev.Participant,
			Kind:        ev.Kind,
			Query:       ev.Query,
			Target:      ev.Target,
			Sources:     sourcesStr,
			Overview:    ev.Overview,
			Group:       ev.Group,
		})
	}
	return nil
}

// RecordSubmission appends one submission row. The word count is derived
// here so the admin page never recomputes it.
func (l *Log) RecordSubmission(participant, query, text string) error {
	row := []string{
		l.now().Format("2006-01-02 15:04:05"),
		uuid.New().String(),
		clean(participant, 200),
		clean(query, maxQueryLen),
		strconv.Itoa(len(strings.Fields(text))),
		clean(text, maxTextLen),
	}
	return l.append(l.SubmissionsPath(), submissionsHeader, row)
}

// ReadEvents returns every row of the events log, header included. A missing
// file yields just the header.
func (l *Log) ReadEvents() ([][]string, error) {
	return l.read(l.EventsPath(), eventsHeader)
}

// ReadSubmissions returns every row of the submissions log, header included.
func (l *Log) ReadSubmissions() ([][]string, error) {
	return l.read(l.SubmissionsPath(), submissionsHeader)
}

// ClearEvents truncates the events log back to its header row.
func (l *Log) ClearEvents() error {
	return l.writeHeader(l.EventsPath(), eventsHeader)
}

// ClearSubmissions truncates the submissions log back to its header row.
func (l *Log) ClearSubmissions() error {
	return l.writeHeader(l.SubmissionsPath(), submissionsHeader)
}

// EnsureFiles writes header-only files where none exist yet, so downloads of
// an untouched deployment still return valid CSV.
func (l *Log) EnsureFiles() error {
	for _, f := range []struct {
		path   string
		header []string
	}{
		{l.EventsPath(), eventsHeader},
		{l.SubmissionsPath(), submissionsHeader},
	} {
		if _, err := os.Stat(f.path); os.IsNotExist(err) {
			if err := l.writeHeader(f.path, f.header); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Log) append(path string, header, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeHeaderLocked(path, header); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close %s: %v\n", path, err)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing row to %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

func (l *Log) read(path string, header []string) ([][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return [][]string{header}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close %s: %v\n", path, err)
		}
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		rows = [][]string{header}
	}
	return rows, nil
}

func (l *Log) writeHeader(path string, header []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return writeHeaderLocked(path, header)
}

func writeHeaderLocked(path string, header []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close %s: %v\n", path, err)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

// clean flattens newlines and caps the field length so rows stay one line.
func clean(s string, limit int) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}

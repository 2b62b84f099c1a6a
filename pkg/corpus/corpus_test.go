package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePage(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadDirExtractsTitleAndText(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "cats.html", `<html>
<head><title>All About Cats</title><style>body { color: red }</style></head>
<body>
<script>var hidden = "nope";</script>
<h1>Cats</h1>
<p>Cats are small carnivorous mammals.</p>
</body></html>`)

	pages, err := LoadDir(dir, 0)
	if err != nil {
		t.Fatalf("loading dir: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}

	p := pages[0]
	if p.Title != "All About Cats" {
		t.Errorf("unexpected title: %q", p.Title)
	}
	if p.Name != "cats.html" {
		t.Errorf("unexpected name: %q", p.Name)
	}
	if p.Dir != filepath.Base(dir) {
		t.Errorf("unexpected dir: %q", p.Dir)
	}
	if !strings.Contains(p.Text, "small carnivorous mammals") {
		t.Errorf("expected body text, got: %q", p.Text)
	}
	if strings.Contains(p.Text, "hidden") || strings.Contains(p.Text, "color: red") {
		t.Errorf("script/style content leaked into text: %q", p.Text)
	}
}

func TestLoadDirTitleFallbacks(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "h1only.html", `<html><body><h1>Heading Only</h1></body></html>`)
	writePage(t, dir, "untitled.html", `<html><body><p>no markers here</p></body></html>`)

	pages, err := LoadDir(dir, 0)
	if err != nil {
		t.Fatalf("loading dir: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}

	// Sorted by file name: h1only.html first.
	if pages[0].Title != "Heading Only" {
		t.Errorf("expected h1 fallback, got %q", pages[0].Title)
	}
	if pages[1].Title != "untitled.html" {
		t.Errorf("expected file name fallback, got %q", pages[1].Title)
	}
}

func TestLoadDirLimit(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "a.html", `<html><title>A</title></html>`)
	writePage(t, dir, "b.html", `<html><title>B</title></html>`)
	writePage(t, dir, "c.html", `<html><title>C</title></html>`)

	pages, err := LoadDir(dir, 2)
	if err != nil {
		t.Fatalf("loading dir: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected limit of 2 pages, got %d", len(pages))
	}
	if pages[0].Name != "a.html" || pages[1].Name != "b.html" {
		t.Errorf("expected stable name ordering, got %v, %v", pages[0].Name, pages[1].Name)
	}
}

func TestGroupFor(t *testing.T) {
	cases := []struct {
		id   string
		want int
	}{
		{"participant1", 1},
		{"participant2", 2},
		{"abc", 1},
		{"", 1},
		{"p7x", 1},
		{"p8x", 2},
		{"90", 2},
		{"09", 1},
	}
	for _, tc := range cases {
		if got := GroupFor(tc.id); got != tc.want {
			t.Errorf("GroupFor(%q) = %d, want %d", tc.id, got, tc.want)
		}
	}
}

func TestDirForGroup(t *testing.T) {
	dirs := []string{"webpages", "webpages2"}
	if got := DirForGroup(dirs, 1); got != "webpages" {
		t.Errorf("group 1: got %q", got)
	}
	if got := DirForGroup(dirs, 2); got != "webpages2" {
		t.Errorf("group 2: got %q", got)
	}
	if got := DirForGroup(dirs, 5); got != "webpages" {
		t.Errorf("out of range should clamp: got %q", got)
	}
	if got := DirForGroup(nil, 1); got != "" {
		t.Errorf("empty dirs: got %q", got)
	}
}

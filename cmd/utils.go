package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/skimsearch/skim/pkg/config"
	"github.com/skimsearch/skim/pkg/corpus"
	"github.com/skimsearch/skim/pkg/storage"
)

const indexFilename = "index.db"

// openIndex opens (creating if needed) the page index under the configured
// storage directory.
func openIndex(cfg *config.Config) (*storage.Index, error) {
	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return storage.OpenIndex(filepath.Join(cfg.StorageDir, indexFilename))
}

// indexCorpusDir loads every HTML page under dir and replaces the
// directory's rows in the index. The configured directory string doubles as
// the index key, so lookups and page serving agree on it. Returns the number
// of pages indexed.
func indexCorpusDir(index *storage.Index, dir string) (int, error) {
	pages, err := corpus.LoadDir(dir, 0)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", dir, err)
	}

	if err := index.ReindexDir(dir, pages); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", dir, err)
	}
	return len(pages), nil
}

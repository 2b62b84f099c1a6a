package cmd

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skimsearch/skim/pkg/log"
	"github.com/skimsearch/skim/pkg/storage"
)

const reindexDebounce = 2 * time.Second

// watchCorpus reindexes a corpus directory whenever its HTML files change.
// Events are debounced so bulk copies trigger a single reindex per directory.
func watchCorpus(index *storage.Index, dirs []string, logger *log.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := make(map[string]bool)
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warnf("failed to watch corpus directory %s: %v", dir, err)
			continue
		}
		watched[dir] = true
		logger.Infof("Watching corpus directory for changes: %s", dir)
	}

	go func() {
		pending := make(map[string]bool)
		timer := time.NewTimer(reindexDebounce)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				if !strings.HasSuffix(strings.ToLower(event.Name), ".html") {
					continue
				}
				dir := filepath.Dir(event.Name)
				if !watched[dir] {
					continue
				}
				pending[dir] = true
				// Editors often use atomic writes; wait for the dust to settle.
				timer.Reset(reindexDebounce)

			case <-timer.C:
				for dir := range pending {
					count, err := indexCorpusDir(index, dir)
					if err != nil {
						logger.Warnf("reindexing %s: %v", dir, err)
						continue
					}
					logger.Infof("Reindexed %d pages from %s", count, dir)
				}
				pending = make(map[string]bool)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("corpus watcher error: %v", err)
			}
		}
	}()

	return watcher, nil
}

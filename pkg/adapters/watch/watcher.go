// Package watch feeds file-system change events into the ingestion adapter.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/services"
)

// ignoredNames are directory and file names never worth reporting.
var ignoredNames = []string{".git", "node_modules", "__pycache__", ".idea", "*.swp", "*.tmp"}

// Watcher watches one or more root directories and forwards debounced change
// events to the ingestion adapter. Rapid successive writes to the same path
// collapse into a single event per debounce window.
type Watcher struct {
	roots    []string
	adapter  services.IngestAdapter
	debounce time.Duration
	logger   *zap.Logger

	fsw      *fsnotify.Watcher
	events   chan models.ChangeEvent
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher over the given roots. Events settle for debounce
// before being handed to the adapter.
func New(roots []string, adapter services.IngestAdapter, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		roots:    roots,
		adapter:  adapter,
		debounce: debounce,
		logger:   logger.Named("watcher"),
		fsw:      fsw,
		events:   make(chan models.ChangeEvent, 256),
		done:     make(chan struct{}),
	}, nil
}

// Start registers the roots recursively and begins forwarding events. It
// returns once watching is established; delivery happens on background
// goroutines until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			return err
		}
	}
	go w.collect(ctx)
	go w.deliver(ctx)
	w.logger.Info("Watching for file changes",
		zap.Strings("roots", w.roots),
		zap.Duration("debounce", w.debounce))
	return nil
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if ignored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range ignoredNames {
		if base == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// collect translates raw fsnotify events into change events.
func (w *Watcher) collect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(event.Name)
					continue
				}
			}
			change := models.ChangeEvent{
				Path:       event.Name,
				ChangeType: changeType(event.Op),
				Timestamp:  time.Now().UTC(),
			}
			select {
			case w.events <- change:
			default:
				w.logger.Warn("Event buffer full, dropping change", zap.String("path", event.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watch error", zap.Error(err))
		}
	}
}

func changeType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return models.ChangeCreated
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return models.ChangeDeleted
	default:
		return models.ChangeModified
	}
}

// deliver batches events per debounce window, keeps the newest event per
// path, and hands each survivor to the ingestion adapter.
func (w *Watcher) deliver(ctx context.Context) {
	var batch []models.ChangeEvent
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		for _, event := range Deduplicate(batch) {
			if err := w.adapter.HandleChangeEvent(ctx, event); err != nil {
				w.logger.Error("Failed to ingest change event",
					zap.String("path", event.Path),
					zap.Error(err))
			}
		}
		batch = batch[:0]
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event := <-w.events:
			batch = append(batch, event)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// Deduplicate keeps the newest event per path, preserving first-seen order.
func Deduplicate(events []models.ChangeEvent) []models.ChangeEvent {
	seen := make(map[string]int, len(events))
	result := make([]models.ChangeEvent, 0, len(events))
	for _, event := range events {
		if idx, ok := seen[event.Path]; ok {
			result[idx] = event
			continue
		}
		seen[event.Path] = len(result)
		result = append(result, event)
	}
	return result
}

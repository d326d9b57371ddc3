package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher watches the config file for changes and fires a callback after
// the file has been stable for a debounce window. The parent directory is
// watched rather than the file itself so editor and installer atomic
// renames are still seen.
type Watcher struct {
	watcher   *fsnotify.Watcher
	path      string
	onChange  func()
	logger    zerolog.Logger
	debounce  time.Duration
	timerMu   sync.Mutex
	timer     *time.Timer
	stopCh    chan struct{}
	stopOnce  sync.Once
	waitGroup sync.WaitGroup
}

// NewWatcher creates a config file watcher. onChange runs on the watcher
// goroutine after each debounced change.
func NewWatcher(path string, onChange func(), logger zerolog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if onChange == nil {
		return nil, fmt.Errorf("change callback is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsw,
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logger.With().Str("component", "config-watcher").Logger(),
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return w, nil
}

// Start begins watching in a background goroutine
func (w *Watcher) Start() {
	w.waitGroup.Add(1)
	go w.loop()

	w.logger.Info().Str("path", w.path).Msg("Watching config file for changes")
}

// Stop stops the watcher and cancels any pending debounce
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
	w.waitGroup.Wait()

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()
}

func (w *Watcher) loop() {
	defer w.waitGroup.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Config watcher error")
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	relevant := event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Rename == fsnotify.Rename
	if !relevant {
		return
	}

	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.logger.Info().Str("path", w.path).Msg("Config file changed")
		w.onChange()
	})
}

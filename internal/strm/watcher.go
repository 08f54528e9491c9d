// This file implements a file system watcher for the movie library.
// It uses OS-level file system events to detect manual changes under the
// STRM base directory and triggers a reconciliation pass.

package strm

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the STRM base directory and reconciles the library when
// files are added, modified, or deleted out from under the server.
type Watcher struct {
	svc           *Service
	watcher       *fsnotify.Watcher
	pending       bool
	mu            sync.Mutex
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewWatcher creates a watcher over the service's base directory.
func NewWatcher(svc *Service) *Watcher {
	return &Watcher{
		svc:           svc,
		debounceDelay: 2 * time.Second, // Wait 2 seconds after last change before syncing
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the STRM directory tree for changes.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := os.MkdirAll(w.svc.basePath, 0o755); err != nil {
		watcher.Close()
		return err
	}
	err = filepath.WalkDir(w.svc.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Only watch directories (files are watched via their parent directory)
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return err
	}

	log.Printf("File watcher started for movie library: %s", w.svc.basePath)
	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) processEvents() {
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
			log.Printf("File watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Chmod events fire when folders are merely opened or read; they never
	// mean the library changed.
	if event.Op == fsnotify.Chmod {
		return
	}
	relevant := event.Op&fsnotify.Create != 0 ||
		event.Op&fsnotify.Write != 0 ||
		event.Op&fsnotify.Remove != 0 ||
		event.Op&fsnotify.Rename != 0
	if !relevant {
		return
	}

	info, err := os.Stat(event.Name)
	isDir := err == nil && info.IsDir()

	if event.Op&fsnotify.Create != 0 && isDir {
		// New folders must be added to the watch list to see their files.
		w.watcher.Add(event.Name)
		w.scheduleSync()
		return
	}
	if !isDir && !strings.EqualFold(filepath.Ext(event.Name), ".strm") {
		return
	}
	w.scheduleSync()
}

func (w *Watcher) scheduleSync() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.runSync)
}

func (w *Watcher) runSync() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	log.Printf("File watcher detected library changes, reconciling STRM files")
	go func() {
		if _, err := w.svc.SyncFilesystem(false); err != nil {
			log.Printf("STRM reconciliation error: %v", err)
		}
	}()
}

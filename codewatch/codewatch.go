// Package codewatch provides a diagnostic observer over the actor host's
// code directory. It never influences loading decisions — the loader
// always re-resolves actor code from disk on every start_actor — it only
// logs realm/actor discovery so an operator can see what the host would
// be able to load.
package codewatch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher logs create/write/remove events under a code directory.
type Watcher struct {
	root string
	log  zerolog.Logger

	fsWatcher *fsnotify.Watcher
	wg        sync.WaitGroup
	done      chan struct{}
}

// New creates a watcher rooted at codeDirectory. It does not start
// watching until Start is called.
func New(codeDirectory string, log zerolog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:      codeDirectory,
		log:       log,
		fsWatcher: fsWatcher,
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the code directory and every realm subdirectory
// that exists at call time. New realm directories created later are not
// auto-added; that is a known limitation of the diagnostic, not the
// loader, which always stats the filesystem directly.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.root); err != nil {
		return err
	}
	entries, err := filepathGlobDirs(w.root)
	if err == nil {
		for _, d := range entries {
			_ = w.fsWatcher.Add(d)
		}
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("code directory watch error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		rel = event.Name
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	var realm, actorName string
	switch len(parts) {
	case 1:
		realm = parts[0]
	default:
		realm = parts[0]
		actorName = strings.TrimSuffix(parts[len(parts)-1], filepath.Ext(parts[len(parts)-1]))
	}

	w.log.Debug().
		Str("event", event.Op.String()).
		Str("realm", realm).
		Str("actor_name", actorName).
		Str("path", event.Name).
		Msg("code directory changed")
}

func filepathGlobDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

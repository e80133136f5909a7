// Package watch reports files appearing in a directory tree of sessions.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FileWatcher watches a root directory and its immediate subdirectories for
// newly written files with a given suffix. New subdirectories are picked up
// as they are created.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	suffix  string
	logger  *logrus.Entry
}

// New starts watching root and every directory directly under it.
func New(root, suffix string, logger *logrus.Entry) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &FileWatcher{watcher: watcher, root: root, suffix: suffix, logger: logger}
	entries, err := os.ReadDir(root)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				w.addDir(filepath.Join(root, e.Name()))
			}
		}
	}
	return w, nil
}

func (w *FileWatcher) addDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.WithError(err).Debugf("Cannot watch %s", dir)
	}
}

// Run calls onFile with the path of every new matching file until ctx is
// done. It closes the watcher on return.
func (w *FileWatcher) Run(ctx context.Context, onFile func(path string)) error {
	defer w.watcher.Close()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if filepath.Dir(event.Name) == filepath.Clean(w.root) {
					w.addDir(event.Name)
				}
				continue
			}
			if strings.HasSuffix(event.Name, w.suffix) {
				onFile(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}

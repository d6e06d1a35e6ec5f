package scene

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/logger"
)

// Watcher reports when scene files change on disk. Parent directories are
// watched rather than the files, so editors that save by rename still
// trigger a reload.
type Watcher struct {
	fs      *fsnotify.Watcher
	files   map[string]struct{}
	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	log     *zap.Logger
}

// NewWatcher starts watching the given files.
func NewWatcher(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		fs:      fw,
		files:   make(map[string]struct{}),
		changes: make(chan string, 1),
		done:    make(chan struct{}),
		log:     logger.Named("scene.watcher"),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changes delivers the path of a modified file. Bursts of events are
// coalesced; the channel is closed by Close.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
		close(w.changes)
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, tracked := w.files[abs]; !tracked {
				continue
			}
			w.log.Debug("scene file changed", zap.String("path", abs), zap.Stringer("op", event.Op))
			select {
			case w.changes <- abs:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

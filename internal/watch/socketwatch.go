// Package watch monitors the daemon's rendezvous point on disk: the
// bound Unix socket file. An operator `rm`, a stray cleanup cron job,
// or a misconfigured tmp-reaper can unlink the socket file out from
// under a running listener; the listener keeps accepting on its
// still-valid descriptor but nothing can ever connect to it again, so
// this is worth detecting and logging loudly.
package watch

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/advem/ipsc-go/internal/logging"
)

// SocketWatcher notifies onRemoved when the watched socket path is
// removed or renamed away.
type SocketWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	log     logging.Logger
	done    chan struct{}
}

// NewSocketWatcher watches the directory containing path and filters
// events down to path itself, since fsnotify (like inotify) only
// supports watching directories, not individual files that may not
// exist yet at watch-registration time.
func NewSocketWatcher(path string, log logging.Logger, onRemoved func()) (*SocketWatcher, error) {
	if log == nil {
		log = logging.Nop{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	sw := &SocketWatcher{watcher: w, path: path, log: log, done: make(chan struct{})}
	go sw.run(onRemoved)
	return sw, nil
}

func (sw *SocketWatcher) run(onRemoved func()) {
	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != sw.path {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				sw.log.Errorf("watch: socket file %s disappeared out from under the listener", sw.path)
				if onRemoved != nil {
					onRemoved()
				}
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.log.Warnf("watch: fsnotify error: %v", err)
		case <-sw.done:
			return
		}
	}
}

// Stop releases the underlying watch.
func (sw *SocketWatcher) Stop() {
	close(sw.done)
	sw.watcher.Close()
}

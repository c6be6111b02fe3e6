package source

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jmurray2011/parrot/internal/logging"
)

// Watcher turns filesystem activity in a log directory into wake-up signals.
// One Watcher serves every subscriber so the number of inotify handles stays
// constant no matter how many sessions are connected. Signals carry no data:
// subscribers still resolve and read on their own.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	log     logging.Logger

	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int

	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher starts watching dir.
func NewWatcher(dir string, log logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.NopLogger{}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:     dir,
		watcher: fw,
		log:     log,
		subs:    make(map[int]chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Subscribe returns a channel that receives a value after directory activity,
// and a function that cancels the subscription. Signals coalesce: a slow
// subscriber sees at most one pending wake-up.
func (w *Watcher) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = ch
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (w *Watcher) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Close stops watching. Pending subscriptions simply stop receiving signals.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.broadcast()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Transient watcher errors only cost an early wake-up
			w.log.Debug("directory watcher error", "dir", w.dir, "err", err)
		}
	}
}

func (w *Watcher) broadcast() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

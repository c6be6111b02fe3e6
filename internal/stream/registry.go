package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jmurray2011/parrot/internal/logging"
)

// ErrSessionLimit is returned by Open when max sessions are already active.
var ErrSessionLimit = errors.New("session limit reached")

// DefaultMaxSessions caps concurrent sessions when the registry is given no
// positive limit.
const DefaultMaxSessions = 256

// Stats is a snapshot of registry counters.
type Stats struct {
	Active  int   `json:"active"`
	Opened  int64 `json:"opened"`
	Ticks   int64 `json:"ticks"`
	Emitted int64 `json:"emitted"`
}

// Registry counts and caps sessions process-wide. It only tracks sessions;
// it never shares engine state between them.
type Registry struct {
	reader      Reader
	maxSessions int
	log         logging.Logger
	metrics     *Metrics

	mu       sync.Mutex
	sessions map[string]*Session

	opened  atomic.Int64
	ticks   atomic.Int64
	emitted atomic.Int64
}

// NewRegistry creates a registry whose sessions poll reader.
func NewRegistry(reader Reader, maxSessions int, log logging.Logger, metrics *Metrics) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Registry{
		reader:      reader,
		maxSessions: maxSessions,
		log:         log,
		metrics:     metrics,
		sessions:    make(map[string]*Session),
	}
}

// Open registers a new session. The session is removed when ctx is done or
// when its Run returns, whichever comes first.
func (r *Registry) Open(ctx context.Context, opts Options) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.maxSessions {
		return nil, ErrSessionLimit
	}

	s := NewSession(r.reader, opts)
	s.log = r.log
	s.metrics = r.metrics
	s.onTick = func(lines int) {
		r.ticks.Add(1)
		r.emitted.Add(int64(lines))
	}
	s.onClose = func() { r.deregister(s.ID) }

	r.sessions[s.ID] = s
	r.opened.Add(1)
	r.metrics.sessionOpened()

	go func() {
		<-ctx.Done()
		r.deregister(s.ID)
	}()

	return s, nil
}

// Get returns the active session with id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Active returns the number of open sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Active:  r.Active(),
		Opened:  r.opened.Load(),
		Ticks:   r.ticks.Load(),
		Emitted: r.emitted.Load(),
	}
}

func (r *Registry) deregister(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		r.metrics.sessionClosed()
	}
}

// Package stream runs the long-lived per-client read loops behind the
// streaming transports.
package stream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	perrors "github.com/jmurray2011/parrot/internal/errors"
	"github.com/jmurray2011/parrot/internal/logging"
	"github.com/jmurray2011/parrot/internal/tail"
)

// State is a session lifecycle state.
type State int32

const (
	StateStarting State = iota
	StatePolling
	StateEmitting
	StateIdle
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateEmitting:
		return "emitting"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Mode selects what a tick reports.
type Mode string

const (
	// ModeTail re-reports the current last lines on every tick, whether or
	// not they changed.
	ModeTail Mode = "tail"

	// ModeFollow reports only complete lines appended since the previous
	// tick, restarting on rotation or truncation.
	ModeFollow Mode = "follow"
)

// ParseMode validates a mode name. Empty selects ModeTail.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeTail:
		return ModeTail, nil
	case ModeFollow:
		return ModeFollow, nil
	default:
		return "", perrors.InvalidArgument("mode", s, "must be tail or follow")
	}
}

// Reader is the engine surface a session polls.
type Reader interface {
	Tail(override, filter string, maxLines int) ([]string, error)
	Follow(cur *tail.Cursor, override, filter string) ([]string, error)
}

// Event is one line delivered to a client.
type Event struct {
	Line string
	// Observed is when the tick that produced the line ran.
	Observed time.Time
}

// Options configures a session.
type Options struct {
	// Peer identifies the client in logs.
	Peer string

	// Interval is the pacing wait between ticks.
	Interval time.Duration

	// Override replaces the configured log name for this session only.
	Override string

	Filter string
	Mode   Mode

	// Lines is the tail window per tick (tail mode) or the seed window
	// (follow mode). Zero means 1.
	Lines int

	// Wake, when set, ends a pacing wait early, but never before
	// MinInterval has passed.
	Wake <-chan struct{}

	// MinInterval is the shortest wait a Wake signal can cut a tick down
	// to. Zero means DefaultMinInterval.
	MinInterval time.Duration
}

// DefaultInterval is the pacing wait used when Options leaves it unset.
const DefaultInterval = 100 * time.Millisecond

// DefaultMinInterval floors woken waits when Options leaves MinInterval unset.
const DefaultMinInterval = 10 * time.Millisecond

// Session is one client's subscription. It shares nothing mutable with other
// sessions; each tick resolves and reads on its own.
type Session struct {
	ID       string
	Peer     string
	Interval time.Duration
	Override string
	Filter   string
	Mode     Mode
	Lines    int
	Wake     <-chan struct{}
	// MinInterval floors waits ended early by Wake.
	MinInterval time.Duration

	reader  Reader
	log     logging.Logger
	metrics *Metrics
	onTick  func(lines int)
	onClose func()

	state   atomic.Int32
	ticks   atomic.Int64
	emitted atomic.Int64
}

// NewSession creates a standalone session polling reader.
func NewSession(reader Reader, opts Options) *Session {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Lines <= 0 {
		opts.Lines = 1
	}
	if opts.Mode == "" {
		opts.Mode = ModeTail
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.MinInterval > opts.Interval {
		opts.MinInterval = opts.Interval
	}
	return &Session{
		ID:       uuid.NewString(),
		Peer:     opts.Peer,
		Interval: opts.Interval,
		Override: opts.Override,
		Filter:   opts.Filter,
		Mode:     opts.Mode,
		Lines:    opts.Lines,
		Wake:     opts.Wake,

		MinInterval: opts.MinInterval,

		reader: reader,
		log:    logging.NopLogger{},
	}
}

// SetLogger sets the session logger.
func (s *Session) SetLogger(log logging.Logger) {
	if log != nil {
		s.log = log
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Ticks returns how many polls completed.
func (s *Session) Ticks() int64 { return s.ticks.Load() }

// Emitted returns how many lines were delivered.
func (s *Session) Emitted() int64 { return s.emitted.Load() }

// Run polls until ctx is done, emit fails, or a tick fails. A failing emit
// means the client went away and, like cancellation, is a normal end: Run
// returns nil. Resolution and read failures end the session and are
// returned.
func (s *Session) Run(ctx context.Context, emit func(Event) error) error {
	s.setState(StateStarting)
	defer s.close()

	log := s.log.WithFields(map[string]interface{}{"session": s.ID, "peer": s.Peer})
	log.Info("session opened", "mode", s.Mode, "interval", s.Interval)

	cursor := &tail.Cursor{Seed: s.Lines}
	for {
		if ctx.Err() != nil {
			log.Info("connection closed", "ticks", s.Ticks())
			return nil
		}

		s.setState(StatePolling)
		lines, err := s.tick(cursor)
		if err != nil {
			s.metrics.sessionError(err)
			log.Warn("session ended", "err", err)
			return err
		}
		s.ticks.Add(1)
		s.metrics.tick()

		if len(lines) > 0 {
			s.setState(StateEmitting)
			now := time.Now()
			for _, line := range lines {
				if ctx.Err() != nil {
					log.Info("connection closed", "ticks", s.Ticks())
					return nil
				}
				if err := emit(Event{Line: line, Observed: now}); err != nil {
					log.Info("connection closed", "ticks", s.Ticks(), "reason", err)
					return nil
				}
				s.emitted.Add(1)
			}
			s.metrics.linesEmitted(len(lines))
		}
		if s.onTick != nil {
			s.onTick(len(lines))
		}

		s.setState(StateIdle)
		if !s.wait(ctx) {
			log.Info("connection closed", "ticks", s.Ticks())
			return nil
		}
	}
}

func (s *Session) tick(cursor *tail.Cursor) ([]string, error) {
	if s.Mode == ModeFollow {
		return s.reader.Follow(cursor, s.Override, s.Filter)
	}
	return s.reader.Tail(s.Override, s.Filter, s.Lines)
}

// wait suspends for the interval, or until a wake-up once MinInterval has
// passed. It reports false when ctx ended first.
func (s *Session) wait(ctx context.Context) bool {
	start := time.Now()
	timer := time.NewTimer(s.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-s.Wake:
	}

	rest := s.MinInterval - time.Since(start)
	if rest <= 0 {
		return true
	}
	floor := time.NewTimer(rest)
	defer floor.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-floor.C:
		return true
	}
}

func (s *Session) close() {
	s.setState(StateClosed)
	if s.onClose != nil {
		s.onClose()
	}
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

package stream

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	perrors "github.com/jmurray2011/parrot/internal/errors"
)

// Metrics holds the prometheus collectors for sessions and bulk reads. A nil
// *Metrics records nothing.
type Metrics struct {
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	Ticks          prometheus.Counter
	LinesEmitted   prometheus.Counter
	SessionErrors  *prometheus.CounterVec
	ReadRequests   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "parrot_sessions_active",
			Help: "Number of streaming sessions currently open",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "parrot_sessions_total",
			Help: "Total number of streaming sessions opened",
		}),
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "parrot_session_ticks_total",
			Help: "Total number of completed session polls",
		}),
		LinesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "parrot_lines_emitted_total",
			Help: "Total number of lines delivered to streaming clients",
		}),
		SessionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parrot_session_errors_total",
			Help: "Sessions ended by a resolution or read failure",
		}, []string{"kind"}),
		ReadRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parrot_read_requests_total",
			Help: "Bulk read requests by outcome",
		}, []string{"status"}),
	}
}

// ErrorKind classifies an engine error for metric labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, perrors.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, perrors.ErrNoMatchingFile):
		return "no_matching_file"
	case errors.Is(err, perrors.ErrFileUnreadable):
		return "file_unreadable"
	default:
		return "other"
	}
}

// ObserveRead records the outcome of a bulk read.
func (m *Metrics) ObserveRead(err error) {
	if m == nil {
		return
	}
	m.ReadRequests.WithLabelValues(ErrorKind(err)).Inc()
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) tick() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

func (m *Metrics) linesEmitted(n int) {
	if m == nil {
		return
	}
	m.LinesEmitted.Add(float64(n))
}

func (m *Metrics) sessionError(err error) {
	if m == nil {
		return
	}
	m.SessionErrors.WithLabelValues(ErrorKind(err)).Inc()
}

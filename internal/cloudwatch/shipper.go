package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/jmurray2011/parrot/internal/logging"
	"github.com/jmurray2011/parrot/internal/stream"
)

// PutLogEvents batch limits.
const (
	MaxBatchEvents = 1000
	MaxBatchBytes  = 1048576

	// eventOverhead is the per-event size CloudWatch adds to the message.
	eventOverhead = 26
)

// LogsAPI is the part of the CloudWatch Logs client the shipper uses.
type LogsAPI interface {
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// Shipper batches log lines and sends them to a CloudWatch Logs stream.
type Shipper struct {
	client LogsAPI
	group  string
	stream string
	log    logging.Logger

	mu      sync.Mutex
	pending []types.InputLogEvent
	bytes   int
	shipped int64
}

// NewShipper creates a shipper for group/stream.
func NewShipper(client LogsAPI, group, streamName string, log logging.Logger) *Shipper {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Shipper{
		client: client,
		group:  group,
		stream: streamName,
		log:    log,
	}
}

// EnsureStream creates the log stream. An existing stream is fine.
func (s *Shipper) EnsureStream(ctx context.Context) error {
	_, err := s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to create log stream %s/%s: %w", s.group, s.stream, err)
	}
	s.log.Info("created log stream", "group", s.group, "stream", s.stream)
	return nil
}

// Add queues one line, flushing first when the batch would overflow. A failed
// flush drops the batch and is logged, as in Run; Add only fails once ctx is
// done. CloudWatch rejects empty messages, so blank lines are skipped.
func (s *Shipper) Add(ctx context.Context, ev stream.Event) error {
	if ev.Line == "" {
		return nil
	}

	size := len(ev.Line) + eventOverhead

	s.mu.Lock()
	full := len(s.pending) >= MaxBatchEvents || s.bytes+size > MaxBatchBytes
	s.mu.Unlock()
	if full {
		if err := s.Flush(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("log shipping failed", "err", err)
		}
	}

	s.mu.Lock()
	s.pending = append(s.pending, types.InputLogEvent{
		Message:   aws.String(ev.Line),
		Timestamp: aws.Int64(ev.Observed.UnixMilli()),
	})
	s.bytes += size
	s.mu.Unlock()
	return nil
}

// Flush sends everything queued. A rejected batch is dropped, not retried.
func (s *Shipper) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.bytes = 0
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	_, err := s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
		LogEvents:     batch,
	})
	if err != nil {
		return fmt.Errorf("failed to put %d log events: %w", len(batch), err)
	}

	s.mu.Lock()
	s.shipped += int64(len(batch))
	s.mu.Unlock()
	s.log.Debug("shipped log events", "count", len(batch))
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (s *Shipper) Run(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The caller's context is gone; give the last batch its own
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return s.Flush(final)
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.log.Warn("log shipping failed", "err", err)
			}
		}
	}
}

// Shipped returns how many events were accepted by CloudWatch.
func (s *Shipper) Shipped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shipped
}

// Pending returns how many events are queued.
func (s *Shipper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

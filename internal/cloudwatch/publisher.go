package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/jmurray2011/parrot/internal/logging"
	"github.com/jmurray2011/parrot/internal/stream"
)

// MetricsAPI is the part of the CloudWatch client the publisher uses.
type MetricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// StatsSource reports session counters.
type StatsSource interface {
	Stats() stream.Stats
}

// Publisher periodically sends session counters to CloudWatch metrics.
// Counters are sent as deltas since the previous publish.
type Publisher struct {
	client    MetricsAPI
	stats     StatsSource
	namespace string
	host      string
	period    time.Duration
	log       logging.Logger

	last stream.Stats
	now  func() time.Time
}

// NewPublisher creates a publisher. Host becomes the metric dimension.
func NewPublisher(client MetricsAPI, stats StatsSource, namespace, host string, period time.Duration, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.NopLogger{}
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Publisher{
		client:    client,
		stats:     stats,
		namespace: namespace,
		host:      host,
		period:    period,
		log:       log,
		now:       time.Now,
	}
}

// Run publishes every period until ctx is done. Failed publishes are logged
// and retried with the next period's data.
func (p *Publisher) Run(ctx context.Context) error {
	p.log.Info("publishing metrics to CloudWatch", "namespace", p.namespace, "period", p.period)

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Publish(ctx); err != nil {
				p.log.Warn("metrics publish failed", "err", err)
			}
		}
	}
}

// Publish sends one set of datums.
func (p *Publisher) Publish(ctx context.Context) error {
	current := p.stats.Stats()
	ts := p.now()
	dims := []types.Dimension{{Name: aws.String("Host"), Value: aws.String(p.host)}}

	datum := func(name string, value float64) types.MetricDatum {
		return types.MetricDatum{
			MetricName: aws.String(name),
			Dimensions: dims,
			Timestamp:  aws.Time(ts),
			Unit:       types.StandardUnitCount,
			Value:      aws.Float64(value),
		}
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.namespace),
		MetricData: []types.MetricDatum{
			datum("ActiveSessions", float64(current.Active)),
			datum("SessionsOpened", float64(current.Opened-p.last.Opened)),
			datum("Ticks", float64(current.Ticks-p.last.Ticks)),
			datum("LinesEmitted", float64(current.Emitted-p.last.Emitted)),
		},
	}

	if _, err := p.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("failed to put metric data: %w", err)
	}
	p.last = current
	return nil
}

package cloudwatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"github.com/jmurray2011/parrot/internal/stream"
)

type fakeMetrics struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeMetrics) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

type fixedStats struct{ stats stream.Stats }

func (f *fixedStats) Stats() stream.Stats { return f.stats }

func values(input *cloudwatch.PutMetricDataInput) map[string]float64 {
	out := make(map[string]float64)
	for _, d := range input.MetricData {
		out[aws.ToString(d.MetricName)] = aws.ToFloat64(d.Value)
	}
	return out
}

func TestPublisher_SendsDeltas(t *testing.T) {
	client := &fakeMetrics{}
	stats := &fixedStats{stream.Stats{Active: 2, Opened: 5, Ticks: 100, Emitted: 90}}
	p := NewPublisher(client, stats, "Parrot", "pi-star", time.Minute, nil)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	if err := p.Publish(context.Background()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	stats.stats = stream.Stats{Active: 1, Opened: 6, Ticks: 160, Emitted: 140}
	if err := p.Publish(context.Background()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(client.inputs) != 2 {
		t.Fatalf("PutMetricData called %d times", len(client.inputs))
	}

	first := values(client.inputs[0])
	if first["ActiveSessions"] != 2 || first["SessionsOpened"] != 5 || first["Ticks"] != 100 || first["LinesEmitted"] != 90 {
		t.Errorf("first publish = %v", first)
	}
	second := values(client.inputs[1])
	if second["ActiveSessions"] != 1 || second["SessionsOpened"] != 1 || second["Ticks"] != 60 || second["LinesEmitted"] != 50 {
		t.Errorf("second publish = %v", second)
	}

	in := client.inputs[0]
	if aws.ToString(in.Namespace) != "Parrot" {
		t.Errorf("namespace = %s", aws.ToString(in.Namespace))
	}
	d := in.MetricData[0]
	if len(d.Dimensions) != 1 || aws.ToString(d.Dimensions[0].Name) != "Host" || aws.ToString(d.Dimensions[0].Value) != "pi-star" {
		t.Errorf("dimensions = %+v", d.Dimensions)
	}
	if !aws.ToTime(d.Timestamp).Equal(fixed) {
		t.Errorf("timestamp = %v", aws.ToTime(d.Timestamp))
	}
}

func TestPublisher_FailureKeepsBaseline(t *testing.T) {
	client := &fakeMetrics{err: errors.New("throttled")}
	stats := &fixedStats{stream.Stats{Opened: 3}}
	p := NewPublisher(client, stats, "Parrot", "h", time.Minute, nil)

	if err := p.Publish(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	client.err = nil
	if err := p.Publish(context.Background()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got := values(client.inputs[0])["SessionsOpened"]; got != 3 {
		t.Errorf("SessionsOpened after failed publish = %v, want 3", got)
	}
}

func TestPublisher_RunStopsOnCancel(t *testing.T) {
	client := &fakeMetrics{}
	p := NewPublisher(client, &fixedStats{}, "Parrot", "h", 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(client.inputs) == 0 {
		t.Error("Run never published")
	}
}

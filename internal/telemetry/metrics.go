package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics counts pipeline outcomes.
type Metrics struct {
	Candidates    metric.Int64Counter
	FetchFailures metric.Int64Counter
	ParseFailures metric.Int64Counter
	Rejected      metric.Int64Counter
	Collected     metric.Int64Counter
	Artifacts     metric.Int64Counter
}

// NewMetrics registers the counters on meter, or on the global meter provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.Candidates, "inboxdigest.candidates", "Candidate UIDs resolved for export"},
		{&m.FetchFailures, "inboxdigest.fetch_failures", "Messages whose source could not be fetched"},
		{&m.ParseFailures, "inboxdigest.parse_failures", "Messages that could not be decoded"},
		{&m.Rejected, "inboxdigest.rejected", "Messages whose sender is not allow-listed"},
		{&m.Collected, "inboxdigest.collected", "Messages exported"},
		{&m.Artifacts, "inboxdigest.artifacts", "Files written by the export"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}
	return m, nil
}

// NopMetrics returns counters that record nothing.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(InstrumentationName))
	return m
}

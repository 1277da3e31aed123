package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/encoding/gzip"
)

const (
	ServiceName = "inboxdigest"
	// InstrumentationName scopes the tracer, meter and log bridge.
	InstrumentationName = "github.com/aaronromeo/inboxdigest"
)

// Mode selects where telemetry goes.
type Mode string

const (
	ModeOff    Mode = ""
	ModeOTLP   Mode = "otlp"
	ModeStdout Mode = "stdout"
)

var ErrUnknownMode = errors.New("unknown telemetry mode")

func ParseMode(value string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(value))); mode {
	case ModeOff, ModeOTLP, ModeStdout:
		return mode, nil
	default:
		return ModeOff, fmt.Errorf("%w: %q", ErrUnknownMode, value)
	}
}

// Enabled reports whether the mode installs SDK providers.
func (m Mode) Enabled() bool {
	return m != ModeOff
}

type setupConfig struct {
	version string
	out     io.Writer
}

type SetupOption func(*setupConfig)

func WithVersion(version string) SetupOption {
	return func(c *setupConfig) {
		c.version = version
	}
}

// WithWriter sets where stdout mode writes log records.
func WithWriter(w io.Writer) SetupOption {
	return func(c *setupConfig) {
		c.out = w
	}
}

// Setup bootstraps the OpenTelemetry pipeline for mode.
// If it does not return an error, make sure to call shutdown for proper cleanup.
//
// ModeOTLP exports traces, metrics and logs to the collector named by the
// standard OTEL_EXPORTER_OTLP_* variables. ModeStdout writes log records only.
// ModeOff leaves the global no-op providers in place.
func Setup(ctx context.Context, mode Mode, opts ...SetupOption) (shutdown func(context.Context) error, err error) {
	cfg := setupConfig{version: "dev", out: os.Stdout}
	for _, opt := range opts {
		opt(&cfg)
	}

	var shutdownFuncs []func(context.Context) error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	// Each registered cleanup will be invoked once.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	if !mode.Enabled() {
		return shutdown, nil
	}

	// handleErr calls shutdown for cleanup and makes sure that all errors are returned.
	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	otel.SetTextMapPropagator(newPropagator())

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", cfg.version),
		))
	if err != nil {
		handleErr(err)
		return
	}

	if mode == ModeOTLP {
		var tracerProvider *trace.TracerProvider
		tracerProvider, err = newTraceProvider(ctx, res)
		if err != nil {
			handleErr(err)
			return
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)

		var meterProvider *metric.MeterProvider
		meterProvider, err = newMeterProvider(ctx, res)
		if err != nil {
			handleErr(err)
			return
		}
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
		otel.SetMeterProvider(meterProvider)
	}

	loggerProvider, err := newLoggerProvider(ctx, mode, res, cfg.out)
	if err != nil {
		handleErr(err)
		return
	}
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	return
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
		xray.Propagator{},
	)
}

func newTraceProvider(ctx context.Context, res *resource.Resource) (*trace.TracerProvider, error) {
	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	)
	if err != nil {
		return nil, err
	}

	traceProvider := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithIDGenerator(xray.NewIDGenerator()),
		trace.WithBatcher(traceExporter,
			trace.WithMaxQueueSize(10_000),
			trace.WithMaxExportBatchSize(10_000),
			trace.WithBatchTimeout(time.Second)),
	)
	return traceProvider, nil
}

func preferDeltaTemporality(kind metric.InstrumentKind) metricdata.Temporality {
	switch kind {
	case metric.InstrumentKindCounter,
		metric.InstrumentKindObservableCounter,
		metric.InstrumentKindHistogram:
		return metricdata.DeltaTemporality
	default:
		return metricdata.CumulativeTemporality
	}
}

func newMeterProvider(ctx context.Context, res *resource.Resource) (*metric.MeterProvider, error) {
	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithCompressor(gzip.Name),
		otlpmetricgrpc.WithTemporalitySelector(preferDeltaTemporality),
	)
	if err != nil {
		return nil, err
	}

	reader := metric.NewPeriodicReader(
		metricExporter,
		metric.WithInterval(15*time.Second),
	)

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(reader),
	), nil
}

func newLoggerProvider(ctx context.Context, mode Mode, res *resource.Resource, out io.Writer) (*log.LoggerProvider, error) {
	var (
		exporter log.Exporter
		err      error
	)
	switch mode {
	case ModeStdout:
		exporter, err = stdoutlog.New(stdoutlog.WithWriter(out))
	default:
		exporter, err = otlploghttp.New(ctx,
			otlploghttp.WithCompression(otlploghttp.GzipCompression),
		)
	}
	if err != nil {
		return nil, err
	}

	return log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(exporter)),
	), nil
}

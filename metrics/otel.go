package metrics

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// OTELProtocol identifies the OTLP transport protocol
type OTELProtocol string

// Supported OTLP transport protocols
const (
	OTELProtocolGRPC OTELProtocol = "grpc"
	OTELProtocolHTTP OTELProtocol = "http"
)

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	Endpoint     string
	Protocol     OTELProtocol
	PushInterval time.Duration
	Insecure     bool
}

// OTELExporter exports metrics to an OpenTelemetry collector
type OTELExporter struct {
	stats            *Stats
	instanceUUID     string
	config           OTELConfig
	meterProvider    *sdkmetric.MeterProvider
	collectionsGauge metric.Int64Gauge
	samplesGauge     metric.Int64Gauge
	skippedGauge     metric.Int64Gauge
	ctx              context.Context
	cancel           context.CancelFunc
}

// createExporter creates the wire exporter for the configured protocol
func createExporter(ctx context.Context, config OTELConfig) (sdkmetric.Exporter, error) {
	switch OTELProtocol(strings.ToLower(string(config.Protocol))) {
	case OTELProtocolGRPC:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(config.Endpoint),
		}
		if config.Insecure {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
			opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	case OTELProtocolHTTP:
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(config.Endpoint),
		}
		if config.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", config.Protocol)
	}
}

// NewOTELExporter creates a new OTEL metrics exporter
func NewOTELExporter(ctx context.Context, infoProvider InfoProvider, instanceUUID string, stats *Stats, config OTELConfig) (*OTELExporter, error) {
	exporter, err := createExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	// Create resource with service information
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("lemon-metrics"),
			semconv.ServiceVersionKey.String(infoProvider.GetVersion()),
			attribute.String("instance.uuid", instanceUUID),
		),
	)
	if err != nil {
		return nil, err
	}

	// Create meter provider with periodic reader
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(config.PushInterval))),
	)

	// Set global meter provider
	otel.SetMeterProvider(meterProvider)

	// Create meter
	meter := meterProvider.Meter("lemon-metrics")

	collectionsGauge, err := meter.Int64Gauge("lemonmetrics_collections_total",
		metric.WithDescription("Number of metric collection attempts by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	samplesGauge, err := meter.Int64Gauge("lemonmetrics_samples_parsed_total",
		metric.WithDescription("Number of samples parsed by classification group"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	skippedGauge, err := meter.Int64Gauge("lemonmetrics_skipped_lines_total",
		metric.WithDescription("Number of unparseable lines skipped during collection"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	exporterCtx, cancel := context.WithCancel(ctx)

	return &OTELExporter{
		stats:            stats,
		instanceUUID:     instanceUUID,
		config:           config,
		meterProvider:    meterProvider,
		collectionsGauge: collectionsGauge,
		samplesGauge:     samplesGauge,
		skippedGauge:     skippedGauge,
		ctx:              exporterCtx,
		cancel:           cancel,
	}, nil
}

// Start begins pushing metrics to the OTEL collector
func (e *OTELExporter) Start() {
	go e.pushMetrics()
}

// pushMetrics periodically records counters read from the stats snapshot
func (e *OTELExporter) pushMetrics() {
	// Record immediately on start
	e.recordMetrics()

	ticker := time.NewTicker(e.config.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.recordMetrics()
		case <-e.ctx.Done():
			return
		}
	}
}

// recordMetrics records the current collection counters
func (e *OTELExporter) recordMetrics() {
	snap := e.stats.Snapshot()

	for result, count := range snap.Collections {
		e.collectionsGauge.Record(e.ctx, count,
			metric.WithAttributes(
				attribute.String("instance_uuid", e.instanceUUID),
				attribute.String("result", result),
			),
		)
	}

	for group, count := range snap.SamplesParsed {
		e.samplesGauge.Record(e.ctx, count,
			metric.WithAttributes(
				attribute.String("instance_uuid", e.instanceUUID),
				attribute.String("group", group),
			),
		)
	}

	e.skippedGauge.Record(e.ctx, snap.SkippedLines,
		metric.WithAttributes(
			attribute.String("instance_uuid", e.instanceUUID),
		),
	)
}

// Shutdown gracefully shuts down the OTEL exporter
func (e *OTELExporter) Shutdown() error {
	e.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.meterProvider.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down OTEL meter provider: %v", err)
		return err
	}

	return nil
}

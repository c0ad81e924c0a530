package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/darkwavepulse/pulse-access/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

type AppMetrics struct {
	sessionIssueCounter    metric.Int64Counter
	sessionVerifyCounter   metric.Int64Counter
	sessionRotationCounter metric.Int64Counter
	sessionSweepCounter    metric.Int64Counter
	vaultOperationCounter  metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("pulse-access")
	issueCounter, err := meter.Int64Counter("session.issue.attempts")
	if err != nil {
		return nil, err
	}
	verifyCounter, err := meter.Int64Counter("session.verify.attempts")
	if err != nil {
		return nil, err
	}
	rotationCounter, err := meter.Int64Counter("session.rotation.events")
	if err != nil {
		return nil, err
	}
	sweepCounter, err := meter.Int64Counter("session.sweep.purged")
	if err != nil {
		return nil, err
	}
	vaultCounter, err := meter.Int64Counter("vault.operations")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = &AppMetrics{
		sessionIssueCounter:    issueCounter,
		sessionVerifyCounter:   verifyCounter,
		sessionRotationCounter: rotationCounter,
		sessionSweepCounter:    sweepCounter,
		vaultOperationCounter:  vaultCounter,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func RecordSessionIssue(tier, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.sessionIssueCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("tier", tier),
			attribute.String("status", status),
		),
	)
}

func RecordSessionVerify(status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.sessionVerifyCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordSessionRotation(trigger string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.sessionRotationCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("trigger", trigger)))
}

func RecordSessionSweep(purged int64) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.sessionSweepCounter.Add(context.Background(), purged)
}

func RecordVaultOperation(op, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.vaultOperationCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("status", status),
		),
	)
}

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the task-level instruments recorded by the server.
type Metrics struct {
	OverdueSweeps metric.Int64Counter
	TasksGauge    metric.Int64ObservableGauge
	OverdueGauge  metric.Int64ObservableGauge
}

// InitMeterProvider configures an OTLP gRPC exporter with a 10 second
// periodic reader and installs the global meter provider.
func InitMeterProvider(ctx context.Context, serviceName, otlpEndpoint, environment string) (*sdkmetric.MeterProvider, error) {
	conn, err := newConn(otlpEndpoint)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := newResource(serviceName, environment)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

// NewMetrics registers the instruments. counts is polled on every
// collection and returns the total and overdue task counts.
func NewMetrics(meter metric.Meter, counts func() (total, overdue int64)) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.OverdueSweeps, err = meter.Int64Counter(
		"tm.sweep.runs",
		metric.WithDescription("Number of overdue sweeps run"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep counter: %w", err)
	}

	m.TasksGauge, err = meter.Int64ObservableGauge(
		"tm.tasks",
		metric.WithDescription("Current number of tasks"),
		metric.WithUnit("{task}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			total, _ := counts()
			o.Observe(total)
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks gauge: %w", err)
	}

	m.OverdueGauge, err = meter.Int64ObservableGauge(
		"tm.tasks.overdue",
		metric.WithDescription("Current number of overdue tasks"),
		metric.WithUnit("{task}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			_, overdue := counts()
			o.Observe(overdue)
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create overdue gauge: %w", err)
	}

	return m, nil
}

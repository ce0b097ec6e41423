// Package telemetry wires OpenTelemetry tracing, metrics and logs to an
// OTLP gRPC collector. When disabled the global no-op providers stay in
// place and the caller keeps its own logger.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config selects the collector and the resource attributes.
type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Environment string
}

// ShutdownFunc flushes and stops every provider Init started.
type ShutdownFunc func(context.Context) error

// Init installs the tracer, meter and logger providers. The returned
// logger bridges to OpenTelemetry; when telemetry is disabled it is
// fallback unchanged and shutdown is a no-op.
func Init(ctx context.Context, cfg Config, fallback *slog.Logger) (*slog.Logger, ShutdownFunc, error) {
	if fallback == nil {
		fallback = slog.Default()
	}
	if !cfg.Enabled {
		return fallback, func(context.Context) error { return nil }, nil
	}
	if cfg.Endpoint == "" {
		return fallback, nil, errors.New("telemetry endpoint is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "tm"
	}

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		// Stop in reverse start order.
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	tp, err := InitTracerProvider(ctx, cfg.ServiceName, cfg.Endpoint, cfg.Environment)
	if err != nil {
		return fallback, nil, err
	}
	shutdowns = append(shutdowns, tp.Shutdown)

	mp, err := InitMeterProvider(ctx, cfg.ServiceName, cfg.Endpoint, cfg.Environment)
	if err != nil {
		_ = shutdown(ctx)
		return fallback, nil, err
	}
	shutdowns = append(shutdowns, mp.Shutdown)

	lp, logger, err := InitLoggerProvider(ctx, cfg.ServiceName, cfg.Endpoint, cfg.Environment)
	if err != nil {
		_ = shutdown(ctx)
		return fallback, nil, err
	}
	shutdowns = append(shutdowns, lp.Shutdown)

	return logger, shutdown, nil
}

func newConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}
	return conn, nil
}

func newResource(serviceName, environment string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Package observe wires optional OpenTelemetry tracing for the gateway.
package observe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Config holds observability configuration
type Config struct {
	// ServiceName is the name reported on spans
	ServiceName string

	// ServiceVersion is the version reported on spans
	ServiceVersion string

	// EnableTracing enables OpenTelemetry tracing with a stdout exporter
	EnableTracing bool
}

// Manager manages the tracer provider lifecycle.
type Manager struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	shutdownOnce   sync.Once
}

// NewManager creates a new observability manager
func NewManager(config *Config) *Manager {
	if config == nil {
		config = &Config{ServiceName: "procgate", ServiceVersion: "0.0.0"}
	}
	return &Manager{config: config}
}

// Initialize sets up the tracer provider when tracing is enabled.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.config.EnableTracing {
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(m.config.ServiceName),
			semconv.ServiceVersion(m.config.ServiceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	m.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(m.tracerProvider)

	slog.Info("OpenTelemetry tracing initialized",
		"service_name", m.config.ServiceName,
		"service_version", m.config.ServiceVersion)
	return nil
}

// Shutdown flushes and stops the tracer provider. Safe to call more than
// once.
func (m *Manager) Shutdown(ctx context.Context) error {
	var err error
	m.shutdownOnce.Do(func() {
		if m.tracerProvider != nil {
			err = m.tracerProvider.Shutdown(ctx)
		}
	})
	return err
}

package taskwell

import (
	"github.com/rs/zerolog"
	"github.com/viant/afs"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/taskwell/taskwell/model/types"
	"github.com/taskwell/taskwell/service/approval"
	"github.com/taskwell/taskwell/service/ingestion"
	"github.com/taskwell/taskwell/tracing"
)

// Option customises the engine façade.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithFS sets the file system service backing queue and index.
func WithFS(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithSource sets the inbound source polled by the ingestion loop.
func WithSource(source ingestion.Source) Option {
	return func(s *Service) { s.source = source }
}

// WithRunner sets the capability that carries plan steps out. The default
// runner simulates every step.
func WithRunner(runner types.Runner) Option {
	return func(s *Service) { s.runner = runner }
}

// WithGenerator sets the text-generation capability used by the planner and
// the helper skills.
func WithGenerator(generator types.Generator) Option {
	return func(s *Service) { s.generator = generator }
}

// WithRiskPolicy overrides the approval gate's risk policy.
func WithRiskPolicy(p *approval.RiskPolicy) Option {
	return func(s *Service) { s.riskPolicy = p }
}

// WithLogger sets the structured logger propagated to every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The function is
// safe to call multiple times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. This enables
// integrations with exporters other than the built-in stdout exporter, for example OTLP, Jaeger or
// Zipkin. The function is safe to call multiple times – the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}

package reviewq

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/reviewq/reviewq/policy"
	"github.com/reviewq/reviewq/service/archive"
	"github.com/reviewq/reviewq/service/extractor"
	"github.com/reviewq/reviewq/service/messaging"
	"github.com/reviewq/reviewq/service/notifier"
	"github.com/reviewq/reviewq/service/queue"
	"github.com/reviewq/reviewq/service/tasksink"
	"github.com/reviewq/reviewq/service/workflow"
	"github.com/reviewq/reviewq/tracing"
)

// Option customises the reviewq service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithStore sets the queue store.
func WithStore(store queue.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithEventQueue sets the queue carrying workflow events.
func WithEventQueue(q messaging.Queue[workflow.Event]) Option {
	return func(s *Service) { s.events = q }
}

// WithArchive sets the decision archive.
func WithArchive(svc archive.Service) Option {
	return func(s *Service) { s.archive = svc }
}

// WithTaskSink sets the task tracker sink.
func WithTaskSink(sink tasksink.Sink) Option {
	return func(s *Service) { s.taskSink = sink }
}

// WithNotifier sets the escalation alert destination.
func WithNotifier(n notifier.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithExtractor sets the suggestion producer.
func WithExtractor(e extractor.Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithIntakePolicy sets the default intake policy applied when the caller's
// context carries none.
func WithIntakePolicy(p *policy.Policy) Option {
	return func(s *Service) { s.intake = p }
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

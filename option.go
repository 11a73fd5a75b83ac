package egsm

import (
	"github.com/viant/afs/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/meronig/egsm-worker/engine"
	"github.com/meronig/egsm-worker/service/event"
	"github.com/meronig/egsm-worker/service/meta"
)

// Option customizes the worker service.
type Option func(s *Service)

// WithConfig sets the whole configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithCapacity overrides the maximum instance count.
func WithCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.config.Capacity = capacity
		}
	}
}

// WithNotifier replaces the queue-backed notifier handed to every instance.
func WithNotifier(notifier engine.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithEventService sets the event service.
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithMetaService sets the meta service.
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) {
		s.metaService = service
	}
}

// WithMetaBaseURL sets the base URL definition assets are resolved against.
func WithMetaBaseURL(url string) Option {
	return func(s *Service) {
		s.metaBaseURL = url
	}
}

// WithMetaFsOptions sets the file system options of the meta service.
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.metaFsOptions = options
	}
}

// WithTracing enables OpenTelemetry tracing with the stdout exporter. An
// empty outputFile writes to os.Stdout.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.config.Tracing = TracingConfig{
			Enabled:        true,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			OutputFile:     outputFile,
		}
	}
}

// WithTracingExporter enables tracing with a caller-supplied exporter.
func WithTracingExporter(exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.config.Tracing.Enabled = true
		s.tracingExporter = exporter
	}
}

package egsm

import (
	"context"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/meronig/egsm-worker/engine"
	"github.com/meronig/egsm-worker/service/event"
	"github.com/meronig/egsm-worker/service/messaging/memory"
	"github.com/meronig/egsm-worker/service/meta"
	"github.com/meronig/egsm-worker/service/registry"
	"github.com/meronig/egsm-worker/tracing"
)

// Service is the assembled worker: registry, event fan-out and definition
// loading behind one façade.
type Service struct {
	config          *Config
	registry        *registry.Service
	eventService    *event.Service
	metaService     *meta.Service
	notifier        engine.Notifier
	metaBaseURL     string
	metaFsOptions   []storage.Option
	tracingExporter sdktrace.SpanExporter
}

// New assembles a worker service with the supplied options.
func New(options ...Option) *Service {
	ret := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(ret)
	}
	ret.init()
	return ret
}

func (s *Service) init() {
	if s.eventService == nil {
		queue := s.config.Queue
		s.eventService = event.New(event.WithNewQueueConfig(func(name string) memory.Config {
			return memory.Config{
				MaxRetries:  queue.MaxRetries,
				RetryDelay:  queue.RetryDelay,
				DeadLetter:  true,
				QueueBuffer: queue.Buffer,
			}
		}))
	}
	if s.notifier == nil {
		s.notifier = event.NewNotifier(s.eventService)
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	}
	s.registry = registry.New(
		registry.WithCapacity(s.config.Capacity),
		registry.WithNotifier(s.notifier),
	)
	if s.config.Tracing.Enabled {
		if s.tracingExporter != nil {
			_ = tracing.InitWithExporter(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.tracingExporter)
		} else {
			_ = tracing.Init(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.config.Tracing.OutputFile)
		}
	}
}

// Registry returns the instance registry.
func (s *Service) Registry() *registry.Service {
	return s.registry
}

// Events returns the event service.
func (s *Service) Events() *event.Service {
	return s.eventService
}

// Meta returns the meta service.
func (s *Service) Meta() *meta.Service {
	return s.metaService
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// CreateFromURLs loads the definition assets through the meta service and
// creates the instance.
func (s *Service) CreateFromURLs(ctx context.Context, id, processModelURI, infoSchemaURI string, stakeholders []string) error {
	definition, err := s.metaService.Load(ctx, processModelURI)
	if err != nil {
		return err
	}
	request := &registry.CreateRequest{
		ID:                id,
		ProcessDefinition: string(definition),
		Stakeholders:      stakeholders,
	}
	if infoSchemaURI != "" {
		schema, err := s.metaService.Load(ctx, infoSchemaURI)
		if err != nil {
			return err
		}
		request.InfoSchema = string(schema)
	}
	return s.registry.Create(ctx, request)
}

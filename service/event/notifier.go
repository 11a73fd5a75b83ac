package event

import (
	"context"

	"github.com/meronig/egsm-worker/engine"
)

// Notifier publishes engine notifications through the event service, one
// typed queue per notification kind. Publishing is fire and forget; delivery
// errors are ignored so that propagation never stalls on a consumer.
type Notifier struct {
	service *Service
}

// NewNotifier creates a notifier over the event service.
func NewNotifier(service *Service) *Notifier {
	return &Notifier{service: service}
}

var _ engine.Notifier = (*Notifier)(nil)

// StageLog publishes a committed stage transition.
func (n *Notifier) StageLog(log engine.StageLog) {
	publisher := PublisherOf[engine.StageLog](n.service)
	_ = publisher.Publish(context.Background(), NewEvent(&Context{
		ProcessType:        log.ProcessType,
		InstanceID:         log.ProcessID,
		ProcessPerspective: log.ProcessPerspective,
		EventType:          "stage",
	}, log))
}

// ConditionLog publishes a process flow guard change.
func (n *Notifier) ConditionLog(log engine.ConditionLog) {
	publisher := PublisherOf[engine.ConditionLog](n.service)
	_ = publisher.Publish(context.Background(), NewEvent(&Context{
		ProcessType:        log.ProcessType,
		InstanceID:         log.ProcessID,
		ProcessPerspective: log.ProcessPerspective,
		EventType:          "condition",
	}, log))
}

// Lifecycle publishes an instance creation or destruction announcement.
func (n *Notifier) Lifecycle(event engine.LifecycleEvent) {
	publisher := PublisherOf[engine.LifecycleEvent](n.service)
	_ = publisher.Publish(context.Background(), NewEvent(&Context{
		EngineID:    event.Process.EngineID,
		ProcessType: event.Process.ProcessType,
		InstanceID:  event.Process.InstanceID,
		EventType:   event.Type,
	}, event))
}

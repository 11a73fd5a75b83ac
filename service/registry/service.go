// Package registry owns the set of live process instances: creation with
// capacity enforcement, removal with outcome accounting, routing of inbound
// events and information updates, and diagnostic listings.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/structology/conv"

	"github.com/meronig/egsm-worker/engine"
	"github.com/meronig/egsm-worker/model"
	"github.com/meronig/egsm-worker/tracing"
)

// DefaultCapacity bounds the number of instances one worker accommodates
// unless configured otherwise.
const DefaultCapacity = 100

// StageOutcome is the final state of one stage, reported on removal.
type StageOutcome struct {
	Name       string            `json:"name"`
	State      engine.State      `json:"state"`
	Status     engine.Status     `json:"status"`
	Compliance engine.Compliance `json:"compliance"`
}

// Outcome summarises a removed instance for aggregate accounting.
type Outcome struct {
	Result string         `json:"result"`
	Stages []StageOutcome `json:"stages"`
}

// Outcome result values.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFaulty  = "FAULTY"
)

// Service is the instance registry. All operations are keyed by instance id
// in a single registry-wide mapping; no two instances share graph state.
type Service struct {
	mu      sync.RWMutex
	engines map[string]*engine.Engine
	// ids whose model load is still in flight; they hold a slot and block
	// duplicates but are invisible to lookups and listings
	reserved  map[string]bool
	capacity  int
	notifier  engine.Notifier
	converter *conv.Converter
}

// Option customizes the registry.
type Option func(*Service)

// WithCapacity sets the maximum number of instances.
func WithCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithNotifier sets the notifier handed to every created instance.
func WithNotifier(notifier engine.Notifier) Option {
	return func(s *Service) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// New creates the registry.
func New(opts ...Option) *Service {
	ret := &Service{
		engines:   make(map[string]*engine.Engine),
		reserved:  make(map[string]bool),
		capacity:  DefaultCapacity,
		notifier:  engine.NopNotifier{},
		converter: newConverter(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Capacity returns the configured maximum instance count.
func (s *Service) Capacity() int { return s.capacity }

// Len returns the current instance count.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.engines)
}

// HasFreeSlot reports whether another instance can be created.
func (s *Service) HasFreeSlot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.engines)+len(s.reserved) < s.capacity
}

// Exists reports whether an instance with the given id is registered.
func (s *Service) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.engines[id]
	return ok
}

// Create constructs a process instance from the request, loads its model and
// registers it. Fails with ErrAlreadyExists when the id is taken and with
// ErrCapacityExceeded when the worker is full.
func (s *Service) Create(ctx context.Context, request *CreateRequest) error {
	_, span := tracing.StartSpan(ctx, "registry.create")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	if err = request.Validate(); err != nil {
		return err
	}
	span.WithAttributes(map[string]string{"instance.id": request.ID})

	processModel, err := model.ParseProcessModel([]byte(request.ProcessDefinition))
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrMalformedDefinition, err)
		return err
	}
	if issues := processModel.Validate(); len(issues) > 0 {
		err = fmt.Errorf("%w: %s", ErrMalformedDefinition, issues[0])
		return err
	}
	var schema *model.InfoSchema
	if request.InfoSchema != "" {
		if schema, err = model.ParseInfoSchema([]byte(request.InfoSchema)); err != nil {
			err = fmt.Errorf("%w: %s", ErrMalformedDefinition, err)
			return err
		}
	}

	instance, err := engine.New(request.ID, request.Stakeholders, s.notifier)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrMalformedDefinition, err)
		return err
	}

	s.mu.Lock()
	if _, ok := s.engines[request.ID]; ok || s.reserved[request.ID] {
		s.mu.Unlock()
		err = fmt.Errorf("%w: %s", ErrAlreadyExists, request.ID)
		return err
	}
	if len(s.engines)+len(s.reserved) >= s.capacity {
		s.mu.Unlock()
		err = fmt.Errorf("%w: %d", ErrCapacityExceeded, s.capacity)
		return err
	}
	s.reserved[request.ID] = true
	s.mu.Unlock()

	// load outside the lock; the instance only becomes visible once its
	// model is fully in place
	err = instance.LoadModel(processModel, schema)

	s.mu.Lock()
	delete(s.reserved, request.ID)
	if err == nil {
		s.engines[request.ID] = instance
	}
	s.mu.Unlock()
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrMalformedDefinition, err)
		return err
	}

	s.notifier.Lifecycle(engine.LifecycleEvent{
		Type: engine.LifecycleCreated,
		Process: engine.ProcessInfo{
			EngineID:     instance.ID(),
			Stakeholders: instance.Stakeholders(),
			ProcessType:  instance.ProcessType(),
			InstanceID:   instance.InstanceID(),
		},
	})
	return nil
}

// CreateFromPayload converts a loosely-typed payload into a request and
// creates the instance.
func (s *Service) CreateFromPayload(ctx context.Context, payload map[string]interface{}) error {
	request, err := NewCreateRequest(s.converter, payload)
	if err != nil {
		return err
	}
	return s.Create(ctx, request)
}

// Remove tears the instance down and returns outcome metadata: whether any
// stage ended faulty or out of order, plus the final state of every stage.
func (s *Service) Remove(ctx context.Context, id string) (*Outcome, error) {
	_, span := tracing.StartSpan(ctx, "registry.remove")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	s.mu.Lock()
	instance, ok := s.engines[id]
	if !ok {
		s.mu.Unlock()
		err = fmt.Errorf("%w: %s", ErrNotFound, id)
		return nil, err
	}
	delete(s.engines, id)
	s.mu.Unlock()

	outcome := &Outcome{Result: OutcomeSuccess}
	for _, view := range flattenStages(instance.Diagram()) {
		outcome.Stages = append(outcome.Stages, StageOutcome{
			Name:       view.Name,
			State:      view.State,
			Status:     view.Status,
			Compliance: view.Compliance,
		})
	}
	if instance.Faulty() {
		outcome.Result = OutcomeFaulty
	}

	s.notifier.Lifecycle(engine.LifecycleEvent{
		Type: engine.LifecycleDestructed,
		Process: engine.ProcessInfo{
			EngineID:     instance.ID(),
			Stakeholders: instance.Stakeholders(),
			ProcessType:  instance.ProcessType(),
			InstanceID:   instance.InstanceID(),
		},
	})
	return outcome, nil
}

// Reset re-runs the instance's initial evaluation pass without destroying
// it.
func (s *Service) Reset(id string) error {
	instance, err := s.lookup(id)
	if err != nil {
		return err
	}
	instance.Reset()
	return nil
}

// ProcessEvent routes an inbound process event into the instance.
func (s *Service) ProcessEvent(ctx context.Context, id, eventName string) error {
	_, span := tracing.StartSpan(ctx, "registry.processEvent")
	instance, err := s.lookup(id)
	if err == nil {
		err = instance.HandleEvent(eventName)
	}
	tracing.EndSpan(span.WithAttributes(map[string]string{"instance.id": id, "event": eventName}), err)
	return err
}

// UpdateInformationModel routes an external attribute change into the
// instance's information model.
func (s *Service) UpdateInformationModel(ctx context.Context, id, name, value string) error {
	_, span := tracing.StartSpan(ctx, "registry.updateInfoModel")
	instance, err := s.lookup(id)
	if err == nil {
		err = instance.UpdateInfoModel(name, value)
	}
	tracing.EndSpan(span.WithAttributes(map[string]string{"instance.id": id, "entity": name}), err)
	return err
}

// SetLifecycleStatus updates the lifecycle status of an instance.
func (s *Service) SetLifecycleStatus(id, status string) error {
	instance, err := s.lookup(id)
	if err != nil {
		return err
	}
	return instance.SetLifecycle(status)
}

// Details returns the summary projection of one instance.
func (s *Service) Details(id string) (engine.Details, error) {
	instance, err := s.lookup(id)
	if err != nil {
		return engine.Details{}, err
	}
	return instance.Details(), nil
}

// Lookup returns the live instance for direct inspection.
func (s *Service) Lookup(id string) (*engine.Engine, error) {
	return s.lookup(id)
}

// List returns the details of every instance sorted by case-insensitive id,
// each stamped with its one-based position.
func (s *Service) List() []engine.Details {
	s.mu.RLock()
	engines := make([]*engine.Engine, 0, len(s.engines))
	for _, instance := range s.engines {
		engines = append(engines, instance)
	}
	s.mu.RUnlock()

	sort.Slice(engines, func(i, j int) bool {
		return strings.ToUpper(engines[i].ID()) < strings.ToUpper(engines[j].ID())
	})
	ret := make([]engine.Details, 0, len(engines))
	for i, instance := range engines {
		details := instance.Details()
		details.Index = i + 1
		ret = append(ret, details)
	}
	return ret
}

// Filter returns the details of every instance satisfying the predicate.
func (s *Service) Filter(predicate func(*engine.Engine) bool) []engine.Details {
	s.mu.RLock()
	var matched []*engine.Engine
	for _, instance := range s.engines {
		if predicate(instance) {
			matched = append(matched, instance)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return strings.ToUpper(matched[i].ID()) < strings.ToUpper(matched[j].ID())
	})
	ret := make([]engine.Details, 0, len(matched))
	for _, instance := range matched {
		ret = append(ret, instance.Details())
	}
	return ret
}

// EnginesOfProcess returns the details of every perspective engine belonging
// to the given process instance.
func (s *Service) EnginesOfProcess(instanceID string) []engine.Details {
	return s.Filter(func(e *engine.Engine) bool {
		return e.InstanceID() == instanceID
	})
}

func (s *Service) lookup(id string) (*engine.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instance, ok := s.engines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return instance, nil
}

func flattenStages(views []*engine.StageView) []*engine.StageView {
	var ret []*engine.StageView
	for _, view := range views {
		ret = append(ret, view)
		ret = append(ret, flattenStages(view.SubStages)...)
	}
	return ret
}

package engine

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/meronig/egsm-worker/internal/clock"
)

// Instance lifecycle status values.
const (
	LifecycleRunning  = "RUNNING"
	LifecycleFinished = "FINISHED"
)

// Engine is one monitored process instance: it exclusively owns the stage
// tree, condition, event and information nodes built from a process
// definition, plus the bus that propagates changes between them. Entry
// points serialise on the instance mutex; one external trigger is fully
// propagated to a fixed point before the next is admitted.
type Engine struct {
	mu sync.Mutex

	id          string
	processType string
	instanceID  string
	perspective string

	stakeholders []string
	startTime    time.Time
	lifecycle    string

	stages         map[string]*StageNode
	stageNames     []string
	conditions     map[string]*ConditionNode
	conditionNames []string
	events         map[string]*EventNode
	eventNames     []string
	infos          map[string]*InfoEntity
	infoNames      []string

	// dependency symbols recorded during sentry compilation, keyed by the
	// referencing artifact, kept in discovery order for resolution
	pendingDeps map[string][]string
	artifactIDs []string

	bus      *Bus
	notifier Notifier
	eventSeq int
}

// New creates an engine for the given instance identity. The identity must
// follow the processType/instanceID__perspective form.
func New(id string, stakeholders []string, notifier Notifier) (*Engine, error) {
	parts := strings.Split(id, "__")
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("malformed instance id %q: missing perspective", id)
	}
	identity := strings.Split(parts[0], "/")
	if len(identity) != 2 || identity[0] == "" || identity[1] == "" {
		return nil, fmt.Errorf("malformed instance id %q: want processType/instanceID__perspective", id)
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	ret := &Engine{
		id:           id,
		processType:  identity[0],
		instanceID:   identity[1],
		perspective:  parts[1],
		stakeholders: stakeholders,
		startTime:    clock.Now(),
		lifecycle:    LifecycleRunning,
		notifier:     notifier,
		bus:          NewBus(),
	}
	ret.resetTables()
	return ret, nil
}

func (e *Engine) resetTables() {
	e.stages = make(map[string]*StageNode)
	e.stageNames = nil
	e.conditions = make(map[string]*ConditionNode)
	e.conditionNames = nil
	e.events = make(map[string]*EventNode)
	e.eventNames = nil
	e.infos = make(map[string]*InfoEntity)
	e.infoNames = nil
	e.pendingDeps = make(map[string][]string)
	e.artifactIDs = nil
	e.bus.Reset()
}

// ID returns the full instance identity.
func (e *Engine) ID() string { return e.id }

// ProcessType returns the process-type component of the identity.
func (e *Engine) ProcessType() string { return e.processType }

// InstanceID returns the instance component of the identity.
func (e *Engine) InstanceID() string { return e.instanceID }

// Perspective returns the perspective component of the identity.
func (e *Engine) Perspective() string { return e.perspective }

// Stakeholders returns the opaque stakeholder list supplied at creation.
func (e *Engine) Stakeholders() []string {
	ret := make([]string, len(e.stakeholders))
	copy(ret, e.stakeholders)
	return ret
}

// StartTime returns the instance creation time.
func (e *Engine) StartTime() time.Time { return e.startTime }

// Lifecycle returns the instance lifecycle status.
func (e *Engine) Lifecycle() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lifecycle
}

// SetLifecycle updates the instance lifecycle status.
func (e *Engine) SetLifecycle(status string) error {
	if status != LifecycleRunning && status != LifecycleFinished {
		return fmt.Errorf("invalid lifecycle status %q", status)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lifecycle = status
	return nil
}

// HandleEvent pulses the named event through the graph and propagates the
// resulting changes to a fixed point.
func (e *Engine) HandleEvent(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	event := e.events[name]
	if event == nil {
		// fall back to the declared event name when it differs from the id
		for _, id := range e.eventNames {
			if e.events[id].Name == name {
				event = e.events[id]
				break
			}
		}
	}
	if event == nil {
		return fmt.Errorf("unknown event %q", name)
	}
	event.Emit()
	return nil
}

// UpdateInfoModel routes an external attribute change into the named
// information entity. A non-empty value updates the status attribute; an
// empty value still pulses the entity event so that sentries observing the
// entity re-evaluate.
func (e *Engine) UpdateInfoModel(name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	info := e.infos[name]
	if info == nil {
		return fmt.Errorf("unknown information entity %q", name)
	}
	var updates []Attribute
	if value != "" {
		updates = []Attribute{{Name: "status", Value: value}}
	}
	e.bus.Emit(Signal{Category: CategoryInfo, Name: name, Attributes: updates})
	return nil
}

// Reset restores every node to its initial value and re-runs the initial
// evaluation pass, without destroying the instance or its model.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, name := range e.eventNames {
		event := e.events[name]
		event.Value = false
		event.Timestamp = clock.Now()
	}
	for _, name := range e.conditionNames {
		condition := e.conditions[name]
		condition.Value = false
		condition.Timestamp = clock.Now()
	}
	for _, name := range e.infoNames {
		e.infos[name].reset()
	}
	for _, name := range e.stageNames {
		stage := e.stages[name]
		stage.changeState(StateUnopened)
		stage.changeCompliance(ComplianceOnTime)
		stage.changeStatus(StatusRegular)
		stage.pending = false
	}
	e.initialPass()
}

// initialPass evaluates every condition once, in declaration order, to
// establish a consistent start state.
func (e *Engine) initialPass() {
	for _, name := range e.conditionNames {
		e.conditions[name].Update(false)
	}
}

// Steps exposes the bus step counter for propagation-bound assertions.
func (e *Engine) Steps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bus.Steps()
}

// ResetSteps zeroes the bus step counter.
func (e *Engine) ResetSteps() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bus.ResetSteps()
}

// Faulty reports whether any stage ended faulty or out of order; removal
// outcome accounting uses it.
func (e *Engine) Faulty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range e.stageNames {
		stage := e.stages[name]
		if stage.Status == StatusFaulty || stage.Compliance == ComplianceOutOfOrder {
			return true
		}
	}
	return false
}

// DependencyIndex returns a copy of the resolved dependency edges: for every
// node with dependents, the list of node ids re-evaluated when it changes.
func (e *Engine) DependencyIndex() map[string][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make(map[string][]string)
	add := func(name string, dependents []string) {
		if len(dependents) == 0 {
			return
		}
		ret[name] = append([]string(nil), dependents...)
	}
	for _, name := range e.conditionNames {
		add(name, e.conditions[name].Dependents)
	}
	for _, name := range e.eventNames {
		add(name, e.events[name].Dependents)
	}
	for _, name := range e.stageNames {
		add(name, e.stages[name].Dependents)
	}
	for _, name := range e.infoNames {
		add(name, e.infos[name].Dependents)
	}
	return ret
}

// notifyStage publishes a stage log with a per-instance sequential event id.
func (e *Engine) notifyStage(s *StageNode) {
	e.eventSeq++
	e.notifier.StageLog(StageLog{
		ProcessType:        e.processType,
		ProcessID:          e.instanceID,
		ProcessPerspective: e.perspective,
		EventID:            "event_" + strconv.Itoa(e.eventSeq),
		StageName:          s.Name,
		Timestamp:          clock.UnixMilli(),
		Status:             s.Status,
		State:              s.State,
		Compliance:         s.Compliance,
	})
}

// notifyCondition publishes a process flow guard value change.
func (e *Engine) notifyCondition(stageName string, value bool) {
	e.notifier.ConditionLog(ConditionLog{
		ProcessType:        e.processType,
		ProcessID:          e.instanceID,
		ProcessPerspective: e.perspective,
		StageName:          stageName,
		Timestamp:          clock.UnixMilli(),
		Condition:          value,
	})
}

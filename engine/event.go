package engine

import (
	"time"

	"github.com/meronig/egsm-worker/internal/clock"
)

// EventNode is a transient trigger: true only for the duration of a single
// propagation pass over its dependents, false at rest.
type EventNode struct {
	engine     *Engine
	Name       string
	Value      bool
	Timestamp  time.Time
	Dependents []string
}

// Emit pulses the event: activation, a propagation pass over the dependents
// observing the active value, deactivation, and a second pass so that the
// settled graph reflects the event being over. The four steps are enqueued
// together, keeping the pulse atomic with respect to other queued work.
func (e *EventNode) Emit() {
	e.engine.bus.EmitFunc(e.activate)
	e.engine.bus.Emit(Signal{Category: CategoryEvent, Name: e.Name, Dependents: e.Dependents})
	e.engine.bus.EmitFunc(e.deactivate)
	e.engine.bus.Emit(Signal{Category: CategoryEvent, Name: e.Name, Dependents: e.Dependents})
}

func (e *EventNode) activate() {
	e.Value = true
	e.Timestamp = clock.Now()
}

func (e *EventNode) deactivate() {
	e.Value = false
	e.Timestamp = clock.Now()
}

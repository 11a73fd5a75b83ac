package engine

import (
	"log"
	"time"

	"github.com/meronig/egsm-worker/internal/clock"
	"github.com/meronig/egsm-worker/model/sentry"
)

// ConditionType discriminates the four sentry-carrying node kinds.
type ConditionType string

const (
	// DataFlowGuard opens its stage when it becomes true.
	DataFlowGuard ConditionType = "D"
	// ProcessFlowGuard encodes expected execution order; it never propagates,
	// it publishes a condition notification instead.
	ProcessFlowGuard ConditionType = "P"
	// Milestone closes its stage; evaluated only while the stage is open.
	Milestone ConditionType = "M"
	// FaultLogger latches a stage fault; once true it stays true until reset.
	FaultLogger ConditionType = "F"
)

// ConditionNode is a sentry-carrying node owned by one stage: a data flow
// guard, process flow guard, milestone or fault logger.
type ConditionNode struct {
	engine     *Engine
	Name       string
	Type       ConditionType
	StageName  string
	Sentry     *sentry.Sentry
	Value      bool
	Timestamp  time.Time
	Dependents []string
}

// Update re-evaluates the condition. Milestones are only evaluated while the
// owning stage is open; with invalidate set they are forced false instead,
// which is how a reopening stage clears them. Fault loggers are evaluated
// only while open and not yet latched.
func (c *ConditionNode) Update(invalidate bool) {
	oldValue := c.Value
	newValue := c.Value

	switch c.Type {
	case DataFlowGuard, ProcessFlowGuard:
		newValue = c.eval()
	case Milestone:
		if stage := c.engine.stages[c.StageName]; stage != nil && stage.State == StateOpened {
			newValue = c.eval()
		} else if invalidate {
			newValue = false
		}
	case FaultLogger:
		if stage := c.engine.stages[c.StageName]; stage != nil && stage.State == StateOpened && !c.Value {
			newValue = c.eval()
		} else if invalidate {
			newValue = false
		}
	}

	if oldValue == newValue {
		return
	}
	c.Value = newValue
	c.Timestamp = clock.Now()

	if c.Type == ProcessFlowGuard {
		// order violations are reported, not propagated
		c.engine.notifyCondition(c.StageName, newValue)
		return
	}
	dependents := make([]string, 0, 1+len(c.Dependents))
	dependents = append(dependents, c.StageName)
	dependents = append(dependents, c.Dependents...)
	c.engine.bus.Emit(Signal{Category: CategoryData, Name: c.Name, Dependents: dependents})
}

// eval runs the compiled sentry; evaluation errors force the value false so
// that a single unresolved reference cannot wedge propagation.
func (c *ConditionNode) eval() bool {
	value, err := c.Sentry.Eval(c.engine.binding())
	if err != nil {
		log.Printf("condition %v: sentry evaluation failed: %v", c.Name, err)
		return false
	}
	return value
}

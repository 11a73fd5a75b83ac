package engine

import (
	"strings"
	"time"

	"github.com/meronig/egsm-worker/internal/clock"
)

// State is the lifecycle state of a stage.
type State string

// Compliance tracks whether a stage executed in the expected order.
type Compliance string

// Status tracks whether a fault was observed while the stage was open.
type Status string

const (
	StateUnopened State = "unopened"
	StateOpened   State = "opened"
	StateClosed   State = "closed"

	ComplianceOnTime     Compliance = "onTime"
	ComplianceOutOfOrder Compliance = "outOfOrder"
	ComplianceSkipped    Compliance = "skipped"

	StatusRegular Status = "regular"
	StatusFaulty  Status = "faulty"
)

// Revision is one entry of a stage's change history: which field changed,
// from what, to what.
type Revision struct {
	Timestamp time.Time
	Field     string
	OldValue  string
	NewValue  string
}

// StageNode is one stage of the guarded stage model, holding its three
// orthogonal state dimensions and the names of its owned conditions,
// children and dependents.
type StageNode struct {
	engine    *Engine
	Name      string
	Parent    string
	Rank      int
	State     State
	Compliance Compliance
	Status    Status
	Timestamp time.Time

	DataGuards    []string
	ProcessGuards []string
	Milestones    []string
	Faults        []string
	Children      []string
	Dependents    []string

	History []Revision

	pending bool
}

func newStageNode(e *Engine, name, parent string, rank int) *StageNode {
	return &StageNode{
		engine:     e,
		Name:       name,
		Parent:     parent,
		Rank:       rank,
		State:      StateUnopened,
		Compliance: ComplianceOnTime,
		Status:     StatusRegular,
		Timestamp:  clock.Now(),
	}
}

// beginChanges opens a notification batch; every field change inside the
// batch is folded into a single stage notification on commit. An update that
// changes nothing commits silently.
func (s *StageNode) beginChanges() {
	s.pending = false
}

func (s *StageNode) commitChanges() {
	if !s.pending {
		return
	}
	s.pending = false
	s.engine.notifyStage(s)
}

func (s *StageNode) changeState(newState State) {
	old := s.State
	s.State = newState
	s.Timestamp = clock.Now()
	s.pending = true
	s.History = append(s.History, Revision{Timestamp: s.Timestamp, Field: "state", OldValue: string(old), NewValue: string(newState)})
}

func (s *StageNode) changeCompliance(newCompliance Compliance) {
	old := s.Compliance
	s.Compliance = newCompliance
	s.Timestamp = clock.Now()
	s.pending = true
	s.History = append(s.History, Revision{Timestamp: s.Timestamp, Field: "compliance", OldValue: string(old), NewValue: string(newCompliance)})
}

func (s *StageNode) changeStatus(newStatus Status) {
	old := s.Status
	s.Status = newStatus
	s.Timestamp = clock.Now()
	s.pending = true
	s.History = append(s.History, Revision{Timestamp: s.Timestamp, Field: "status", OldValue: string(old), NewValue: string(newStatus)})
}

// ChangeCompliance records and notifies a compliance change outside a batch;
// skip detection uses it to mark bypassed stages.
func (s *StageNode) ChangeCompliance(newCompliance Compliance) {
	s.beginChanges()
	s.changeCompliance(newCompliance)
	s.commitChanges()
}

// Reset restores the stage and, recursively, its children to the initial
// unopened/onTime/regular configuration. Milestones and fault loggers owned
// by the stage are invalidated, process flow guards re-evaluated. When a
// closed stage reopens the stage itself keeps its just-computed fields and
// only the subtree below it is restored.
func (s *StageNode) Reset(resetStage bool) {
	if resetStage {
		s.beginChanges()
		s.changeState(StateUnopened)
		s.changeStatus(StatusRegular)
		s.changeCompliance(ComplianceOnTime)
		s.commitChanges()
	}
	for _, child := range s.Children {
		if node := s.engine.stages[child]; node != nil {
			node.Reset(true)
		}
	}
	for _, name := range s.engine.conditionNames {
		condition := s.engine.conditions[name]
		if condition.StageName == s.Name && (condition.Type == Milestone || condition.Type == FaultLogger) {
			condition.Update(true)
		}
	}
	for _, name := range s.engine.conditionNames {
		condition := s.engine.conditions[name]
		if condition.StageName == s.Name && condition.Type == ProcessFlowGuard {
			condition.Update(true)
		}
	}
}

// checkUnopenedToOpened: parent absent or open, and at least one data flow
// guard active.
func (s *StageNode) checkUnopenedToOpened() bool {
	parent, hasParent := s.engine.stages[s.Parent]
	checkParent := !hasParent || parent.State == StateOpened

	checkData := false
	for _, name := range s.DataGuards {
		checkData = checkData || s.engine.conditions[name].Value
	}
	return checkData && checkParent
}

// checkOnTimeOutOfOrder: true when the stage has process flow guards and
// none of them is active, meaning the stage is activating out of order.
func (s *StageNode) checkOnTimeOutOfOrder() bool {
	if len(s.ProcessGuards) == 0 {
		return false
	}
	checkProcess := false
	for _, name := range s.ProcessGuards {
		checkProcess = checkProcess || s.engine.conditions[name].Value
	}
	return !checkProcess
}

// checkRegularToFaulty: any fault logger latched.
func (s *StageNode) checkRegularToFaulty() bool {
	checkFault := false
	for _, name := range s.Faults {
		checkFault = checkFault || s.engine.conditions[name].Value
	}
	return checkFault
}

// checkOpenedToClosed: any milestone achieved, or the parent closed.
func (s *StageNode) checkOpenedToClosed() bool {
	parent, hasParent := s.engine.stages[s.Parent]
	checkParent := hasParent && parent.State == StateClosed

	checkMilestone := false
	for _, name := range s.Milestones {
		checkMilestone = checkMilestone || s.engine.conditions[name].Value
	}
	return checkMilestone || checkParent
}

// checkClosedToOpened mirrors checkUnopenedToOpened: reopening uses the same
// guard condition as the first opening.
func (s *StageNode) checkClosedToOpened() bool {
	return s.checkUnopenedToOpened()
}

// markSkippedStages marks every other unopened, onTime, regular stage whose
// activity or milestones this stage's process flow guards reference as
// skipped. The check is textual containment on the compiled sentry source
// and intentionally approximate.
func (s *StageNode) markSkippedStages() {
	for _, name := range s.engine.stageNames {
		stage := s.engine.stages[name]
		if stage.Name == s.Name || stage.State != StateUnopened ||
			stage.Compliance != ComplianceOnTime || stage.Status != StatusRegular {
			continue
		}
		for _, guardName := range s.ProcessGuards {
			guard := s.engine.conditions[guardName]
			if strings.Contains(guard.Sentry.Source, `GSM.isStageActive("`+stage.Name+`")`) {
				stage.ChangeCompliance(ComplianceSkipped)
			} else {
				for _, milestone := range stage.Milestones {
					if milestone != "" && strings.Contains(guard.Sentry.Source, milestone) {
						stage.ChangeCompliance(ComplianceSkipped)
					}
				}
			}
		}
	}
}

// Update advances the stage state machine one step against the current guard
// and milestone values, then propagates to its dependents. All field changes
// made by a single call fold into one notification.
func (s *StageNode) Update() {
	s.beginChanges()
	oldState := s.State

	switch s.State {
	case StateUnopened:
		if s.checkUnopenedToOpened() {
			s.changeState(StateOpened)
			if s.Compliance == ComplianceOnTime && s.checkOnTimeOutOfOrder() {
				s.changeCompliance(ComplianceOutOfOrder)
				s.markSkippedStages()
			} else if s.Compliance == ComplianceSkipped {
				// a skipped stage that eventually activates is out of order
				s.changeCompliance(ComplianceOutOfOrder)
				s.markSkippedStages()
			}
		}
	case StateOpened:
		if s.Status == StatusRegular && s.checkRegularToFaulty() {
			s.changeStatus(StatusFaulty)
		}
		if s.checkOpenedToClosed() {
			s.changeState(StateClosed)
		}
	case StateClosed:
		if s.checkClosedToOpened() {
			// compliance must be judged before the subtree is restored
			outOfOrder := s.checkOnTimeOutOfOrder()
			s.changeState(StateOpened)
			if s.Compliance == ComplianceOnTime && outOfOrder {
				s.changeCompliance(ComplianceOutOfOrder)
				s.markSkippedStages()
			}
		}
	}

	s.commitChanges()

	if oldState == StateClosed && (s.State == StateOpened || s.State == StateUnopened) {
		s.Reset(false)
	}

	// a closing stage drags its open children closed; children are only
	// included while closed, otherwise they would reopen
	dependents := make([]string, 0, len(s.Children)+len(s.Dependents))
	if s.State == StateClosed {
		dependents = append(dependents, s.Children...)
	}
	dependents = append(dependents, s.Dependents...)
	s.engine.bus.Emit(Signal{Category: CategoryStage, Name: s.Name, Dependents: dependents})
}

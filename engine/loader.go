package engine

import (
	"fmt"

	"github.com/meronig/egsm-worker/model"
	"github.com/meronig/egsm-worker/model/sentry"
)

// LoadModel builds the instance graph from a process definition and an
// information-model schema: nodes are created depth-first with every sentry
// compiled on the way, category listeners are registered on the bus,
// recorded dependency symbols are resolved against the node namespaces, and
// one initial evaluation pass establishes a consistent start state. Loading
// is idempotent; a reload discards the previous generation entirely.
func (e *Engine) LoadModel(processModel *model.ProcessModel, schema *model.InfoSchema) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if processModel == nil {
		return fmt.Errorf("process model is required")
	}
	e.resetTables()

	for i := range processModel.Events {
		event := &processModel.Events[i]
		e.addEvent(event.ID, event.Name)
	}
	for i := range processModel.Stages {
		if err := e.loadStage(&processModel.Stages[i], 0, ""); err != nil {
			return err
		}
	}
	if schema != nil {
		for i := range schema.Elements {
			e.addInfoEntity(&schema.Elements[i])
		}
	}

	e.bus.On(CategoryStage, e.onBatch)
	e.bus.On(CategoryEvent, e.onBatch)
	e.bus.On(CategoryData, e.onBatch)
	e.bus.On(CategoryInfo, e.onInfo)

	e.resolveDependencies()
	e.initialPass()
	return nil
}

func (e *Engine) addEvent(id, name string) {
	if _, ok := e.events[id]; ok {
		return
	}
	if name == "" {
		name = id
	}
	e.events[id] = &EventNode{engine: e, Name: name}
	e.eventNames = append(e.eventNames, id)
}

func (e *Engine) addCondition(id, stageName, expression string, conditionType ConditionType) error {
	if _, ok := e.conditions[id]; ok {
		return fmt.Errorf("duplicate condition id %q", id)
	}
	if expression == "" {
		expression = "false"
	}
	compiled := sentry.Compile(expression)
	e.conditions[id] = &ConditionNode{
		engine:    e,
		Name:      id,
		Type:      conditionType,
		StageName: stageName,
		Sentry:    compiled,
	}
	e.conditionNames = append(e.conditionNames, id)
	e.recordDeps(id, compiled.Deps)
	return nil
}

func (e *Engine) loadStage(stage *model.Stage, rank int, parent string) error {
	if _, ok := e.stages[stage.ID]; ok {
		return fmt.Errorf("duplicate stage id %q", stage.ID)
	}
	node := newStageNode(e, stage.ID, parent, rank)
	e.stages[stage.ID] = node
	e.stageNames = append(e.stageNames, stage.ID)

	for _, guard := range stage.DataFlowGuards {
		if err := e.addCondition(guard.ID, stage.ID, guard.Expression, DataFlowGuard); err != nil {
			return err
		}
		node.DataGuards = append(node.DataGuards, guard.ID)
	}
	for _, guard := range stage.ProcessFlowGuards {
		if err := e.addCondition(guard.ID, stage.ID, guard.Expression, ProcessFlowGuard); err != nil {
			return err
		}
		node.ProcessGuards = append(node.ProcessGuards, guard.ID)
	}
	for _, guard := range stage.FaultLoggers {
		if err := e.addCondition(guard.ID, stage.ID, guard.Expression, FaultLogger); err != nil {
			return err
		}
		node.Faults = append(node.Faults, guard.ID)
	}
	for _, milestone := range stage.Milestones {
		if err := e.addCondition(milestone.ID, stage.ID, milestone.Expression(), Milestone); err != nil {
			return err
		}
		node.Milestones = append(node.Milestones, milestone.ID)
	}
	for i := range stage.SubStages {
		child := &stage.SubStages[i]
		node.Children = append(node.Children, child.ID)
		if err := e.loadStage(child, rank+1, stage.ID); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) addInfoEntity(element *model.InfoElement) {
	if _, ok := e.infos[element.Name]; ok {
		return
	}
	info := newInfoEntity(e, element.Name, element.Pub, element.Sub)
	for _, attribute := range element.Attributes {
		info.addAttribute(attribute.Name, attribute.Type, attribute.Use)
	}
	e.infos[element.Name] = info
	e.infoNames = append(e.infoNames, element.Name)
}

// recordDeps stashes the dependency symbols a compiled sentry discovered,
// keyed by the referencing artifact, for resolution once all nodes exist.
func (e *Engine) recordDeps(artifactID string, symbols []string) {
	if len(symbols) == 0 {
		return
	}
	if _, ok := e.pendingDeps[artifactID]; !ok {
		e.artifactIDs = append(e.artifactIDs, artifactID)
	}
	e.pendingDeps[artifactID] = append(e.pendingDeps[artifactID], symbols...)
}

// resolveDependencies maps every recorded symbol onto a node, checking the
// condition, event, stage and information namespaces in that priority, and
// appends the referencing artifact to the target's dependent list.
func (e *Engine) resolveDependencies() {
	for _, artifactID := range e.artifactIDs {
		for _, symbol := range e.pendingDeps[artifactID] {
			switch {
			case e.conditions[symbol] != nil:
				e.conditions[symbol].Dependents = appendDistinct(e.conditions[symbol].Dependents, artifactID)
			case e.events[symbol] != nil:
				e.events[symbol].Dependents = appendDistinct(e.events[symbol].Dependents, artifactID)
			case e.stages[symbol] != nil:
				e.stages[symbol].Dependents = appendDistinct(e.stages[symbol].Dependents, artifactID)
			case e.infos[symbol] != nil:
				e.infos[symbol].Dependents = appendDistinct(e.infos[symbol].Dependents, artifactID)
			}
		}
	}
}

func appendDistinct(items []string, item string) []string {
	for _, candidate := range items {
		if candidate == item {
			return items
		}
	}
	return append(items, item)
}

// onBatch re-evaluates a batch of dependents in the fixed dispatch order:
// stages first, then process flow guards, fault loggers, data flow guards
// and milestones. Stage transitions can invalidate guards that must be
// recomputed within the same logical step, and faults have to be observed
// before guards that could mask them.
func (e *Engine) onBatch(signal Signal) {
	for _, name := range signal.Dependents {
		if stage := e.stages[name]; stage != nil {
			stage.Update()
		}
	}
	for _, conditionType := range []ConditionType{ProcessFlowGuard, FaultLogger, DataFlowGuard, Milestone} {
		for _, name := range signal.Dependents {
			if condition := e.conditions[name]; condition != nil && condition.Type == conditionType {
				condition.Update(false)
			}
		}
	}
}

// onInfo routes an information update to its entity.
func (e *Engine) onInfo(signal Signal) {
	if info := e.infos[signal.Name]; info != nil {
		info.ChangeAttributes(signal.Attributes)
	}
}

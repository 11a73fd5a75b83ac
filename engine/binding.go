package engine

import "fmt"

// gsmBinding resolves sentry predicates against the owning engine's node
// tables. Unresolvable references return an error, which the caller turns
// into a forced-false value.
type gsmBinding struct {
	engine *Engine
}

func (e *Engine) binding() gsmBinding {
	return gsmBinding{engine: e}
}

func (g gsmBinding) IsMilestoneAchieved(milestone string) (bool, error) {
	condition := g.engine.conditions[milestone]
	if condition == nil {
		return false, fmt.Errorf("unknown condition %v", milestone)
	}
	return condition.Value, nil
}

func (g gsmBinding) IsEventOccurring(event string) (bool, error) {
	node := g.engine.events[event]
	if node == nil {
		return false, fmt.Errorf("unknown event %v", event)
	}
	return node.Value, nil
}

func (g gsmBinding) IsStageActive(stage string) (bool, error) {
	node := g.engine.stages[stage]
	if node == nil {
		return false, fmt.Errorf("unknown stage %v", stage)
	}
	return node.State == StateOpened, nil
}

// IsInfoModel compares an information-model attribute against a literal.
// Values are compared lexicographically; every probed literal is recorded in
// the attribute's learned domain. An unsupported operator yields false.
func (g gsmBinding) IsInfoModel(entity, attribute, value, operator string) (bool, error) {
	info := g.engine.infos[entity]
	if info == nil {
		return false, fmt.Errorf("unknown information entity %v", entity)
	}
	record := info.Attribute(attribute)
	if record == nil {
		return false, nil
	}
	record.learn(value)

	switch operator {
	case "==":
		return record.Value == value, nil
	case "!=":
		return record.Value != value, nil
	case "<=":
		return record.Value <= value, nil
	case ">=":
		return record.Value >= value, nil
	case "<":
		return record.Value < value, nil
	case ">":
		return record.Value > value, nil
	}
	return false, nil
}

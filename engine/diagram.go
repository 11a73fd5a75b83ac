package engine

import (
	"fmt"

	"github.com/meronig/egsm-worker/internal/clock"
)

// ConditionView is the diagnostic projection of one condition node.
type ConditionView struct {
	Name   string        `json:"name"`
	Type   ConditionType `json:"type"`
	Stage  string        `json:"stage"`
	Sentry string        `json:"sentry"`
	Value  bool          `json:"value"`
}

// StageView is the hierarchical diagnostic projection of one stage subtree.
type StageView struct {
	Name          string          `json:"name"`
	State         State           `json:"state"`
	Status        Status          `json:"status"`
	Compliance    Compliance      `json:"compliance"`
	Dependents    []string        `json:"dependents"`
	DataGuards    []ConditionView `json:"dataGuards"`
	ProcessGuards []ConditionView `json:"processGuards"`
	Milestones    []ConditionView `json:"milestones"`
	Faults        []ConditionView `json:"faults"`
	SubStages     []*StageView    `json:"sub_stages"`
}

// NodeView is the flat graph projection of one stage or guard, carrying a
// lifecycle color for rendering.
type NodeView struct {
	Name       string   `json:"name"`
	Key        string   `json:"key"`
	Color      string   `json:"color"`
	Group      string   `json:"group"`
	IsGroup    bool     `json:"isGroup"`
	InServices []string `json:"inservices,omitempty"`
}

// EventView is the diagnostic projection of one event node.
type EventView struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// InfoView is the diagnostic projection of one information entity.
type InfoView struct {
	Name       string             `json:"name"`
	Attributes []*AttributeRecord `json:"attributes"`
}

// Details is the summary projection of one instance.
type Details struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	InstanceID  string `json:"instance_id"`
	Perspective string `json:"perspective"`
	Uptime      string `json:"uptime"`
	Status      string `json:"status"`
	Index       int    `json:"index,omitempty"`
}

// Details returns the summary projection of the instance.
func (e *Engine) Details() Details {
	e.mu.Lock()
	defer e.mu.Unlock()
	uptime := clock.Now().Sub(e.startTime)
	return Details{
		Name:        e.id,
		Type:        e.processType,
		InstanceID:  e.instanceID,
		Perspective: e.perspective,
		Uptime:      fmt.Sprintf("%.1f min", uptime.Minutes()),
		Status:      e.lifecycle,
	}
}

// Diagram returns the hierarchical projection rooted at every rank-zero
// stage, in declaration order.
func (e *Engine) Diagram() []*StageView {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ret []*StageView
	for _, name := range e.stageNames {
		if stage := e.stages[name]; stage.Rank == 0 {
			ret = append(ret, e.stageView(stage))
		}
	}
	return ret
}

func (e *Engine) stageView(stage *StageNode) *StageView {
	view := &StageView{
		Name:          stage.Name,
		State:         stage.State,
		Status:        stage.Status,
		Compliance:    stage.Compliance,
		Dependents:    append([]string(nil), stage.Dependents...),
		DataGuards:    e.conditionViews(stage.DataGuards),
		ProcessGuards: e.conditionViews(stage.ProcessGuards),
		Milestones:    e.conditionViews(stage.Milestones),
		Faults:        e.conditionViews(stage.Faults),
	}
	for _, child := range stage.Children {
		if node := e.stages[child]; node != nil {
			view.SubStages = append(view.SubStages, e.stageView(node))
		}
	}
	return view
}

func (e *Engine) conditionViews(names []string) []ConditionView {
	ret := make([]ConditionView, 0, len(names))
	for _, name := range names {
		condition := e.conditions[name]
		if condition == nil {
			continue
		}
		ret = append(ret, ConditionView{
			Name:   condition.Name,
			Type:   condition.Type,
			Stage:  condition.StageName,
			Sentry: condition.Sentry.Source,
			Value:  condition.Value,
		})
	}
	return ret
}

// stageColor maps the state/compliance pair onto the rendering palette.
func stageColor(stage *StageNode) string {
	switch {
	case stage.State == StateUnopened && stage.Compliance == ComplianceOnTime:
		return "silver"
	case stage.Compliance == ComplianceSkipped:
		return "gray"
	case stage.State == StateOpened && stage.Compliance == ComplianceOnTime:
		return "orange"
	case stage.State == StateClosed && stage.Compliance == ComplianceOnTime:
		return "darkgreen"
	case stage.Compliance == ComplianceOutOfOrder:
		return "red"
	}
	return ""
}

// NodeDiagram returns the flat colored graph projection: one group node per
// stage plus one node per data flow guard.
func (e *Engine) NodeDiagram() []NodeView {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ret []NodeView
	for _, name := range e.stageNames {
		stage := e.stages[name]
		node := NodeView{
			Name:    stage.Name,
			Key:     stage.Name,
			Color:   stageColor(stage),
			Group:   stage.Parent,
			IsGroup: true,
		}
		for _, guardName := range stage.DataGuards {
			node.InServices = append(node.InServices, guardName)
		}
		ret = append(ret, node)

		for i, guardName := range stage.DataGuards {
			ret = append(ret, NodeView{
				Name:  fmt.Sprintf("DFG%d", i),
				Key:   guardName,
				Color: "silver",
				Group: stage.Name,
			})
		}
	}
	return ret
}

// InfoModelView returns every information entity with its attribute records,
// omitting the synthetic timestamp attribute.
func (e *Engine) InfoModelView() []InfoView {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ret []InfoView
	for _, name := range e.infoNames {
		info := e.infos[name]
		view := InfoView{Name: info.Name}
		for _, record := range info.Attributes() {
			if record.Name == "timestamp" {
				continue
			}
			view.Attributes = append(view.Attributes, record)
		}
		ret = append(ret, view)
	}
	return ret
}

// EventModelView returns every event with its current value.
func (e *Engine) EventModelView() []EventView {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]EventView, 0, len(e.eventNames))
	for _, id := range e.eventNames {
		event := e.events[id]
		ret = append(ret, EventView{Name: event.Name, Value: event.Value})
	}
	return ret
}

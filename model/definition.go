package model

import (
	"encoding/xml"
	"fmt"
)

// ProcessModel is the root of a guarded-stage process definition. The decoder
// matches elements by local name so that any `ca:` namespace prefix used by
// the modelling tool is accepted.
type ProcessModel struct {
	XMLName xml.Name `xml:"CompositeApplicationType"`
	Events  []Event  `xml:"EventModel>Event"`
	Stages  []Stage  `xml:"Component>GuardedStageModel>Stage"`
}

// Event declares an instantaneous occurrence sentries may reference.
type Event struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// Stage is one node of the stage hierarchy together with its sentries.
type Stage struct {
	ID                string      `xml:"id,attr"`
	DataFlowGuards    []Guard     `xml:"DataFlowGuard"`
	ProcessFlowGuards []Guard     `xml:"ProcessFlowGuard"`
	FaultLoggers      []Guard     `xml:"FaultLogger"`
	Milestones        []Milestone `xml:"Milestone"`
	SubStages         []Stage     `xml:"SubStage"`
}

// Guard carries a declarative sentry expression.
type Guard struct {
	ID         string `xml:"id,attr"`
	Expression string `xml:"expression,attr"`
}

// Milestone wraps its sentry in a nested Condition element.
type Milestone struct {
	ID        string `xml:"id,attr"`
	Condition Guard  `xml:"Condition"`
}

// Expression returns the milestone's sentry expression.
func (m *Milestone) Expression() string {
	return m.Condition.Expression
}

// ParseProcessModel decodes a process definition document.
func ParseProcessModel(data []byte) (*ProcessModel, error) {
	ret := &ProcessModel{}
	if err := xml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse process model: %w", err)
	}
	return ret, nil
}

// Validate performs a best-effort structural validation of the definition.
// The returned slice is empty when the definition is sound; it never attempts
// to compile sentry expressions - malformed sentries surface at evaluation
// time by design.
func (m *ProcessModel) Validate() []error {
	var issues []error
	if len(m.Stages) == 0 {
		issues = append(issues, fmt.Errorf("process model declares no stages"))
	}

	seen := map[string]bool{}
	var walk func(s *Stage)
	walk = func(s *Stage) {
		if s.ID == "" {
			issues = append(issues, fmt.Errorf("stage without id"))
			return
		}
		if seen[s.ID] {
			issues = append(issues, fmt.Errorf("duplicate stage id %s", s.ID))
		}
		seen[s.ID] = true
		for _, g := range s.DataFlowGuards {
			if g.ID == "" {
				issues = append(issues, fmt.Errorf("stage %s: data flow guard without id", s.ID))
			}
		}
		for _, g := range s.ProcessFlowGuards {
			if g.ID == "" {
				issues = append(issues, fmt.Errorf("stage %s: process flow guard without id", s.ID))
			}
		}
		for _, g := range s.FaultLoggers {
			if g.ID == "" {
				issues = append(issues, fmt.Errorf("stage %s: fault logger without id", s.ID))
			}
		}
		for _, ms := range s.Milestones {
			if ms.ID == "" {
				issues = append(issues, fmt.Errorf("stage %s: milestone without id", s.ID))
			}
		}
		for i := range s.SubStages {
			walk(&s.SubStages[i])
		}
	}
	for i := range m.Stages {
		walk(&m.Stages[i])
	}

	for _, e := range m.Events {
		if e.ID == "" {
			issues = append(issues, fmt.Errorf("event without id"))
		}
	}
	return issues
}

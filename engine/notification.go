package engine

// StageLog is the structured notification emitted once per committed batch
// of stage field changes.
type StageLog struct {
	ProcessType        string     `json:"process_type" yaml:"process_type"`
	ProcessID          string     `json:"process_id" yaml:"process_id"`
	ProcessPerspective string     `json:"process_perspective" yaml:"process_perspective"`
	EventID            string     `json:"event_id" yaml:"event_id"`
	StageName          string     `json:"stage_name" yaml:"stage_name"`
	Timestamp          int64      `json:"timestamp" yaml:"timestamp"`
	Status             Status     `json:"status" yaml:"status"`
	State              State      `json:"state" yaml:"state"`
	Compliance         Compliance `json:"compliance" yaml:"compliance"`
}

// ConditionLog reports a process flow guard value change; order violations
// are published rather than propagated through the graph.
type ConditionLog struct {
	ProcessType        string `json:"process_type" yaml:"process_type"`
	ProcessID          string `json:"process_id" yaml:"process_id"`
	ProcessPerspective string `json:"process_perspective" yaml:"process_perspective"`
	StageName          string `json:"stage_name" yaml:"stage_name"`
	Timestamp          int64  `json:"timestamp" yaml:"timestamp"`
	Condition          bool   `json:"condition" yaml:"condition"`
}

// Lifecycle event types.
const (
	LifecycleCreated    = "created"
	LifecycleDestructed = "destructed"
)

// ProcessInfo identifies an instance in a lifecycle event.
type ProcessInfo struct {
	EngineID     string   `json:"engine_id" yaml:"engine_id"`
	Stakeholders []string `json:"stakeholders" yaml:"stakeholders"`
	ProcessType  string   `json:"process_type" yaml:"process_type"`
	InstanceID   string   `json:"instance_id" yaml:"instance_id"`
}

// LifecycleEvent announces instance creation or destruction.
type LifecycleEvent struct {
	Type    string      `json:"type" yaml:"type"`
	Process ProcessInfo `json:"process" yaml:"process"`
}

// Notifier receives the engine's outbound notifications. Implementations
// must not call back into the emitting engine.
type Notifier interface {
	StageLog(log StageLog)
	ConditionLog(log ConditionLog)
	Lifecycle(event LifecycleEvent)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) StageLog(StageLog)         {}
func (NopNotifier) ConditionLog(ConditionLog) {}
func (NopNotifier) Lifecycle(LifecycleEvent)  {}

// Package event fans engine notifications out to interested consumers over
// typed in-memory queues. Each notification kind (stage log, condition log,
// lifecycle event) gets its own typed publisher; an untyped any-queue sees
// every published event for aggregate consumers.
package event

import "time"

// Context identifies the process instance an event originates from.
type Context struct {
	EngineID           string `json:"engineID"`
	ProcessType        string `json:"processType"`
	InstanceID         string `json:"instanceID"`
	ProcessPerspective string `json:"processPerspective"`
	EventType          string `json:"eventType"`
}

// Event is one published notification with its payload.
type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event for the given context and payload.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}

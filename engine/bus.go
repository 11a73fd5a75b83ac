package engine

// Category identifies which load-time listener handles a signal.
type Category string

// Listener categories, one per node family.
const (
	CategoryStage Category = "STAGE"
	CategoryEvent Category = "EVENT"
	CategoryData  Category = "DATA"
	CategoryInfo  Category = "INFO"
)

// Signal is one emission on the instance bus: the changed node's name plus
// the resolved list of dependents to re-evaluate. Information updates carry
// the changed attributes instead of dependents.
type Signal struct {
	Category   Category
	Name       string
	Dependents []string
	Attributes []Attribute
}

// Listener consumes signals of one category.
type Listener func(Signal)

// Bus is the per-instance synchronous dispatcher. Emissions are collected on
// a work queue drained iteratively, so deep hierarchies never grow the call
// stack and a propagation step always runs to completion before the next
// external trigger is accepted. Draining is depth-first: the cascade an item
// produces completes before items queued behind it run, so a dependent
// evaluated during a transient activation still observes the active value.
// The bus is not safe for concurrent use; the owning Engine serialises
// access.
type Bus struct {
	listeners map[Category]Listener
	queue     []busItem
	draining  bool
	steps     int
}

type busItem struct {
	signal Signal
	fn     func()
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Category]Listener)}
}

// On registers the listener for a category, replacing any previous one.
func (b *Bus) On(category Category, listener Listener) {
	b.listeners[category] = listener
}

// Emit enqueues a signal and, unless a drain is already in progress, drains
// the queue to its fixed point. Re-entrant emissions produced while draining
// are processed within the same logical step, ahead of previously queued
// work.
func (b *Bus) Emit(signal Signal) {
	b.queue = append(b.queue, busItem{signal: signal})
	b.drain()
}

// EmitFunc enqueues an opaque action, keeping its execution ordered with
// respect to surrounding emissions. Used for transient event activation.
func (b *Bus) EmitFunc(fn func()) {
	b.queue = append(b.queue, busItem{fn: fn})
	b.drain()
}

func (b *Bus) drain() {
	if b.draining {
		return
	}
	b.draining = true
	defer func() { b.draining = false }()

	for len(b.queue) > 0 {
		item := b.queue[0]
		remaining := b.queue[1:]
		b.queue = nil
		b.steps++
		if item.fn != nil {
			item.fn()
		} else if listener, ok := b.listeners[item.signal.Category]; ok {
			listener(item.signal)
		}
		// emissions produced by the item are now at the queue head; work
		// that was already queued resumes once their cascade settles
		b.queue = append(b.queue, remaining...)
	}
}

// Steps returns the number of queue items processed since the last reset;
// tests use it to bound propagation.
func (b *Bus) Steps() int { return b.steps }

// ResetSteps zeroes the step counter.
func (b *Bus) ResetSteps() { b.steps = 0 }

// Reset discards listeners and any queued work; used on model reload.
func (b *Bus) Reset() {
	b.listeners = make(map[Category]Listener)
	b.queue = nil
	b.steps = 0
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_fifoOrder(t *testing.T) {
	bus := NewBus()
	var seen []string
	bus.On(CategoryData, func(signal Signal) {
		seen = append(seen, signal.Name)
	})

	bus.Emit(Signal{Category: CategoryData, Name: "first"})
	bus.Emit(Signal{Category: CategoryData, Name: "second"})
	assert.EqualValues(t, []string{"first", "second"}, seen)
}

func TestBus_reentrantCascadeRunsBeforeQueuedWork(t *testing.T) {
	bus := NewBus()
	var seen []string
	bus.On(CategoryData, func(signal Signal) {
		seen = append(seen, signal.Name)
		if signal.Name == "root" {
			bus.Emit(Signal{Category: CategoryData, Name: "child"})
			bus.EmitFunc(func() {
				seen = append(seen, "thunk")
			})
		}
	})

	// root and sibling are queued by the same frame; root's cascade must
	// settle before sibling runs
	bus.EmitFunc(func() {
		bus.Emit(Signal{Category: CategoryData, Name: "root"})
		bus.Emit(Signal{Category: CategoryData, Name: "sibling"})
	})
	assert.EqualValues(t, []string{"root", "child", "thunk", "sibling"}, seen)
}

func TestBus_dependentsObserveTransientActivation(t *testing.T) {
	bus := NewBus()
	active := false
	var observed []bool
	bus.On(CategoryEvent, func(Signal) {
		// a cascaded emission, as a guard update would produce
		bus.Emit(Signal{Category: CategoryData, Name: "guard"})
	})
	bus.On(CategoryData, func(Signal) {
		observed = append(observed, active)
	})

	// an activate/dispatch/deactivate/dispatch pulse emitted re-entrantly
	// must expose the active value to the dispatch cascade
	bus.EmitFunc(func() {
		bus.EmitFunc(func() { active = true })
		bus.Emit(Signal{Category: CategoryEvent, Name: "pulse"})
		bus.EmitFunc(func() { active = false })
		bus.Emit(Signal{Category: CategoryEvent, Name: "pulse"})
	})
	assert.EqualValues(t, []bool{true, false}, observed)
}

func TestBus_steps(t *testing.T) {
	bus := NewBus()
	bus.On(CategoryData, func(Signal) {})

	bus.Emit(Signal{Category: CategoryData, Name: "a"})
	bus.Emit(Signal{Category: CategoryData, Name: "b"})
	bus.EmitFunc(func() {})
	assert.Equal(t, 3, bus.Steps())

	bus.ResetSteps()
	assert.Equal(t, 0, bus.Steps())
}

func TestBus_unknownCategoryIsDropped(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Emit(Signal{Category: CategoryEvent, Name: "nobody-listens"})
	})
}

// Package engine implements the reactive GSM evaluation runtime: one Engine
// per monitored process instance, owning a graph of stage, condition, event
// and information nodes wired together by compiled sentry dependencies.
// External triggers (events, information-model updates) enter through the
// Engine's public entry points and are propagated synchronously through a
// per-instance bus until the graph reaches a fixed point; stage lifecycle
// transitions emit structured notifications through a Notifier.
package engine

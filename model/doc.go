// Package model defines the declarative process definition consumed by the
// evaluation engine: the guarded stage hierarchy with its sentries, the event
// model, and the information-model schema. Definitions arrive as XML/XSD
// documents authored by the modelling tool; this package only decodes and
// structurally validates them - compilation into an executable graph happens
// in the engine package.
package model

// Package tracing is a thin wrapper around OpenTelemetry so that the rest of
// the code-base instruments registry and engine operations through a small
// local API instead of importing the upstream packages directly.
package tracing

// Package egsm assembles the process-monitoring worker: a registry of
// reactive GSM engines, an event service fanning stage and lifecycle
// notifications out over in-memory queues, and a meta service loading
// process definitions from any afs-supported storage.
package egsm

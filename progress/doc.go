// Package progress defines primitives for reporting and aggregating counters
// of a running pipeline – items retrieved and filtered during ingestion,
// plans created, steps completed or blocked during execution.  The tracker
// travels in the context so that every stage can contribute updates without a
// global registry.
package progress

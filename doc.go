// Package taskwell provides a personal task-automation pipeline: items are
// ingested from pluggable sources, classified, turned into step-by-step
// plans and executed, with every sensitive action gated behind a persisted
// human approval.
//
// The pipeline state lives in five queue locations (incoming, needs-action,
// plans, pending-approval, done); a record's location is its only
// authoritative status.  Pluggable service layers include:
//
//   - ingestion – rate-limited polling with dedup across restarts
//   - planner   – step extraction and sensitivity freezing
//   - approval  – risk assessment and the human-in-the-loop gate
//   - executor  – ordered step execution halting at ungated steps
//
// End-users typically interact via the high-level Service façade exposed by
// the root package:
//
//	srv, _ := taskwell.New(
//		taskwell.WithConfig(cfg),
//		taskwell.WithSource(source),
//	)
//	report, _ := srv.RunCycle(ctx)
//
// For more details see the README and individual sub-packages.
package taskwell

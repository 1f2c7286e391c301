// Package executor walks a plan's steps in order, halting at the first
// incomplete sensitive step whose approval has not been granted.  It is
// effectively a glue layer between the persisted plan records and the
// runner capability that carries the steps out.
package executor

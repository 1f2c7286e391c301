package queue

// Location names one of the queue folders. A record's location IS its state:
// no status field is authoritative once persisted, though one is mirrored in
// the metadata for human readability.
type Location string

const (
	// Incoming holds low-priority items parked for later review.
	Incoming Location = "incoming"

	// NeedsAction holds classified items awaiting planning, plus approval
	// records that a human has approved and that are ready for execution.
	NeedsAction Location = "needs-action"

	// Plans holds active execution plans.
	Plans Location = "plans"

	// PendingApproval holds approval requests awaiting a human decision.
	PendingApproval Location = "pending-approval"

	// Done is the terminal location for completed plans, executed items and
	// rejected approvals.
	Done Location = "done"
)

// Locations returns every known location in pipeline order.
func Locations() []Location {
	return []Location{Incoming, NeedsAction, Plans, PendingApproval, Done}
}

// Valid reports whether l names a known location.
func (l Location) Valid() bool {
	switch l {
	case Incoming, NeedsAction, Plans, PendingApproval, Done:
		return true
	}
	return false
}

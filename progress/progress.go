package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the ingestion,
// planning or execution stages.  The fields are signed and therefore can be
// either positive (increment) or negative (decrement).
type Delta struct {
	Retrieved      int
	Filtered       int
	ItemsCreated   int
	PlansCreated   int
	StepsCompleted int
	StepsBlocked   int
	Approvals      int
	Rejections     int
	Errors         int
}

// Progress holds the aggregated pipeline counters of a single run. It is a
// plain value; the Tracker guards the live copy.
type Progress struct {
	// Identification – informative only, filled when the run starts.
	RunID     string
	Source    string
	StartedAt time.Time

	// Counters – modified via Tracker.Update().
	Retrieved      int
	Filtered       int
	ItemsCreated   int
	PlansCreated   int
	StepsCompleted int
	StepsBlocked   int
	Approvals      int
	Rejections     int
	Errors         int
}

// Tracker accumulates progress for one engine run. It is safe for concurrent
// use.
type Tracker struct {
	mu       sync.Mutex
	progress Progress
	onChange func(Progress)
}

// Update applies the supplied delta to the tracker.  It is safe to call from
// multiple goroutines.  If an onChange callback has been registered it will be
// invoked with a copy of the updated counters outside the critical section so
// that the callback can perform slow operations (e.g. JSON encoding, I/O)
// without blocking engine internals.
func (t *Tracker) Update(d Delta) {
	if t == nil {
		return
	}

	t.mu.Lock()

	t.progress.Retrieved += d.Retrieved
	t.progress.Filtered += d.Filtered
	t.progress.ItemsCreated += d.ItemsCreated
	t.progress.PlansCreated += d.PlansCreated
	t.progress.StepsCompleted += d.StepsCompleted
	t.progress.StepsBlocked += d.StepsBlocked
	t.progress.Approvals += d.Approvals
	t.progress.Rejections += d.Rejections
	t.progress.Errors += d.Errors

	// Copy for the callback while the lock is still held so it never sees
	// partially updated counters.
	snapshot := t.progress
	cb := t.onChange

	t.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters suitable for read-only inspection.
func (t *Tracker) Snapshot() Progress {
	if t == nil {
		return Progress{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// OnChange registers a callback that is invoked after every successful
// Update.  Passing nil disables the callback.  Only one callback can be
// active; subsequent calls overwrite the previous value.
func (t *Tracker) OnChange(cb func(Progress)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.onChange = cb
	t.mu.Unlock()
}

// ----------------------------------------------------------------------------
// Context helpers
// ----------------------------------------------------------------------------

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a new Tracker, embeds it in a derived context and
// returns both.  The caller may optionally pass an onChange callback that will
// be invoked after every counter update.
func WithNewTracker(ctx context.Context, runID, source string, onChange func(Progress)) (context.Context, *Tracker) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Tracker{
		progress: Progress{
			RunID:     runID,
			Source:    source,
			StartedAt: time.Now(),
		},
		onChange: onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the Tracker from ctx.  It returns (tracker, ok).  The
// second return value is false when the context carries no tracker.
func FromContext(ctx context.Context) (*Tracker, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Tracker)
	return tr, ok
}

// GetSnapshot is a convenience wrapper that combines FromContext and
// Snapshot.  The boolean return value is false when the context does not
// carry a tracker.
func GetSnapshot(ctx context.Context) (Progress, bool) {
	if tr, ok := FromContext(ctx); ok {
		return tr.Snapshot(), true
	}
	return Progress{}, false
}

// UpdateCtx is a helper that looks up the tracker in ctx (if any) and applies
// the supplied delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}

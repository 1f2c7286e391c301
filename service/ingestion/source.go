package ingestion

import (
	"context"

	"github.com/taskwell/taskwell/model"
)

// Source is the adapter capability a concrete inbound channel implements.
// ListCandidates and Fetch are the only calls that touch the outside world;
// both run through the rate-limited caller.
type Source interface {
	// Name identifies the source in dedup keys and record metadata.
	Name() string

	// ListCandidates returns the external ids available for ingestion.
	ListCandidates(ctx context.Context) ([]string, error)

	// Fetch retrieves one item by its external id.
	Fetch(ctx context.Context, externalID string) (*model.Item, error)
}

// ImportanceClassifier is an optional Source capability: a source that knows
// its own importance signal overrides the configured rules.
type ImportanceClassifier interface {
	IsImportant(item *model.Item) bool
}

// PriorityClassifier is an optional Source capability overriding the
// configured priority ladder.
type PriorityClassifier interface {
	Priority(item *model.Item) model.Priority
}

// Stats aggregates the counters of one polling cycle. They serve
// observability, not control flow.
type Stats struct {
	Retrieved int `json:"retrieved"`
	Processed int `json:"processed"`
	Filtered  int `json:"filtered"`
	Created   int `json:"created"`
	Errors    int `json:"errors"`
}

// Package ingestion drives the polling loop: list candidate ids from a
// source, fetch the unseen ones through the rate-limited caller, classify,
// and persist the important items into the queue.  An item enters the dedup
// index only after it has been persisted, so a crash mid-cycle re-ingests
// rather than loses it.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskwell/taskwell/internal/clock"
	"github.com/taskwell/taskwell/internal/idgen"
	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/progress"
	"github.com/taskwell/taskwell/service/classifier"
	"github.com/taskwell/taskwell/service/dedup"
	"github.com/taskwell/taskwell/service/limiter"
	"github.com/taskwell/taskwell/service/queue"
	"github.com/taskwell/taskwell/tracing"
)

// Option customises the ingestion service.
type Option func(*Service)

// WithRules overrides the default classification rules.
func WithRules(rules classifier.Rules) Option {
	return func(s *Service) { s.rules = rules }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service ingests items from a source into the queue.
type Service struct {
	queue  *queue.Service
	index  *dedup.Index
	caller *limiter.Caller
	rules  classifier.Rules
	logger zerolog.Logger
}

// New creates an ingestion service.
func New(q *queue.Service, index *dedup.Index, caller *limiter.Caller, options ...Option) *Service {
	s := &Service{
		queue:  q,
		index:  index,
		caller: caller,
		rules:  classifier.DefaultRules(),
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// PollOnce runs a single ingestion cycle against the source. Per-item
// failures are counted and never abort the cycle; only a failure to list
// candidates is returned as an error.
func (s *Service) PollOnce(ctx context.Context, source Source) (*Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "ingestion.cycle", "INTERNAL")
	stats, err := s.pollOnce(ctx, source)
	tracing.EndSpan(span, err)
	return stats, err
}

func (s *Service) pollOnce(ctx context.Context, source Source) (*Stats, error) {
	stats := &Stats{}

	var ids []string
	err := s.caller.Call(ctx, func(ctx context.Context) error {
		var listErr error
		ids, listErr = source.ListCandidates(ctx)
		return listErr
	})
	if err != nil {
		return stats, fmt.Errorf("failed to list candidates from %v: %w", source.Name(), err)
	}
	stats.Retrieved = len(ids)
	progress.UpdateCtx(ctx, progress.Delta{Retrieved: len(ids)})

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		key := dedup.Key(source.Name(), id)
		if s.index.Seen(key) {
			continue
		}
		if err := s.ingestOne(ctx, source, id, key, stats); err != nil {
			// One bad item never aborts the cycle.
			stats.Errors++
			progress.UpdateCtx(ctx, progress.Delta{Errors: 1})
			s.logger.Warn().Err(err).Str("source", source.Name()).Str("externalId", id).Msg("item ingestion failed")
		}
	}

	s.logger.Info().
		Str("source", source.Name()).
		Int("retrieved", stats.Retrieved).
		Int("processed", stats.Processed).
		Int("filtered", stats.Filtered).
		Int("created", stats.Created).
		Int("errors", stats.Errors).
		Msg("ingestion cycle complete")
	return stats, nil
}

func (s *Service) ingestOne(ctx context.Context, source Source, id, key string, stats *Stats) error {
	var item *model.Item
	err := s.caller.Call(ctx, func(ctx context.Context) error {
		var fetchErr error
		item, fetchErr = source.Fetch(ctx, id)
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	if item == nil {
		return fmt.Errorf("source returned no item")
	}
	stats.Processed++

	if item.ID == "" {
		item.ID = idgen.New()
	}
	item.Source = source.Name()
	if item.ExternalID == "" {
		item.ExternalID = id
	}
	if item.ReceivedAt.IsZero() {
		item.ReceivedAt = clock.Now()
	}

	// Filtered items are discarded without an index entry so that a later
	// rule change re-evaluates them on the next cycle.
	if !s.isImportant(source, item) {
		stats.Filtered++
		progress.UpdateCtx(ctx, progress.Delta{Filtered: 1})
		return nil
	}

	item.Priority = s.priority(source, item)
	item.ImportanceSignals = classifier.Signals(item, s.rules.Importance)
	item.Status = "pending"

	location := queue.NeedsAction
	if item.Priority == model.PriorityLow {
		location = queue.Incoming
	}
	name := s.recordName(item)
	if err := s.queue.Put(ctx, location, name, model.ItemRecord(item)); err != nil {
		return fmt.Errorf("persist failed: %w", err)
	}

	// Index only after the item is durably persisted.
	if err := s.index.Mark(ctx, key, &dedup.Entry{
		ProcessedAt: clock.Now(),
		Priority:    item.Priority,
		Filename:    name,
	}); err != nil {
		return fmt.Errorf("index update failed: %w", err)
	}

	stats.Created++
	progress.UpdateCtx(ctx, progress.Delta{ItemsCreated: 1})
	s.logger.Debug().Str("name", name).Str("priority", string(item.Priority)).Msg("item created")
	return nil
}

// isImportant prefers the source's own classification capability and falls
// back to the configured rules.
func (s *Service) isImportant(source Source, item *model.Item) bool {
	if custom, ok := source.(ImportanceClassifier); ok {
		return custom.IsImportant(item)
	}
	return classifier.IsImportant(item, s.rules.Importance)
}

func (s *Service) priority(source Source, item *model.Item) model.Priority {
	if custom, ok := source.(PriorityClassifier); ok {
		return custom.Priority(item)
	}
	return classifier.Priority(item, s.rules.Priority)
}

// Run polls the source at the supplied interval until the context is
// cancelled. Between cycles it performs no work.
func (s *Service) Run(ctx context.Context, source Source, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.PollOnce(ctx, source); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Str("source", source.Name()).Msg("polling cycle failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) recordName(item *model.Item) string {
	slug := queue.SanitizeName(item.Subject, 40)
	if slug == "untitled" && item.ExternalID != "" {
		slug = queue.SanitizeName(item.ExternalID, 40)
	}
	return fmt.Sprintf("%s_%s_%s", item.Source, item.ReceivedAt.UTC().Format("20060102_150405"), slug)
}

// Package memory provides an in-memory ingestion source for tests and
// examples.  Items are registered up front and served back by external id.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/service/ingestion"
)

// Source serves registered items.
type Source struct {
	name string

	mux   sync.RWMutex
	order []string
	items map[string]*model.Item
}

// New creates a named in-memory source.
func New(name string) *Source {
	if name == "" {
		name = "memory"
	}
	return &Source{
		name:  name,
		items: map[string]*model.Item{},
	}
}

// Add registers items for ingestion, keyed by their ExternalID.
func (s *Source) Add(items ...*model.Item) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, item := range items {
		if item == nil || item.ExternalID == "" {
			continue
		}
		if _, exists := s.items[item.ExternalID]; !exists {
			s.order = append(s.order, item.ExternalID)
		}
		s.items[item.ExternalID] = item
	}
}

func (s *Source) Name() string {
	return s.name
}

func (s *Source) ListCandidates(ctx context.Context) ([]string, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return append([]string(nil), s.order...), nil
}

func (s *Source) Fetch(ctx context.Context, externalID string) (*model.Item, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	item, ok := s.items[externalID]
	if !ok {
		return nil, fmt.Errorf("unknown item %v", externalID)
	}
	clone := *item
	return &clone, nil
}

var _ ingestion.Source = (*Source)(nil)

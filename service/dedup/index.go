// Package dedup persists the record of already-ingested external ids so a
// process restart never reprocesses an item. The index is append-only during
// normal operation: an id present in the index is never re-ingested.
package dedup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/taskwell/taskwell/model"
)

// Entry records a single processed item.
type Entry struct {
	ProcessedAt time.Time      `json:"processedAt"`
	Priority    model.Priority `json:"priority"`
	Filename    string         `json:"filename"`
}

// Index maps (source, externalId) keys to ingestion entries. It is loaded at
// startup and written after every successful ingestion.
type Index struct {
	fs      afs.Service
	URL     string
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an index persisted at URL.
func New(fs afs.Service, URL string) (*Index, error) {
	if URL == "" {
		return nil, fmt.Errorf("index URL cannot be empty")
	}
	return &Index{fs: fs, URL: URL, entries: map[string]*Entry{}}, nil
}

// Key builds the index key for an external id.
func Key(source, externalID string) string {
	return source + "/" + externalID
}

// Load reads the persisted index. A missing file is not an error - the index
// simply starts empty.
func (i *Index) Load(ctx context.Context) error {
	exists, err := i.fs.Exists(ctx, i.URL)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", i.URL, err)
	}
	if !exists {
		return nil
	}
	data, err := i.fs.DownloadWithURL(ctx, i.URL)
	if err != nil {
		return fmt.Errorf("failed to read index %s: %w", i.URL, err)
	}
	entries := map[string]*Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to decode index %s: %w", i.URL, err)
	}
	i.mu.Lock()
	i.entries = entries
	i.mu.Unlock()
	return nil
}

// Seen reports whether a key has already been ingested.
func (i *Index) Seen(key string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.entries[key]
	return ok
}

// Lookup returns the entry for a key, or nil.
func (i *Index) Lookup(key string) *Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.entries[key]
}

// Mark records a key as processed and persists the index immediately, after
// the item itself has been persisted - the write order guarantees a crash
// between the two at worst re-ingests, never drops, an item.
func (i *Index) Mark(ctx context.Context, key string, entry *Entry) error {
	i.mu.Lock()
	i.entries[key] = entry
	i.mu.Unlock()
	return i.save(ctx)
}

// Len returns the number of indexed entries.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func (i *Index) save(ctx context.Context) error {
	i.mu.RLock()
	data, err := json.MarshalIndent(i.entries, "", "  ")
	i.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := i.fs.Upload(ctx, i.URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write index %s: %w", i.URL, err)
	}
	return nil
}

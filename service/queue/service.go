// Package queue implements the persisted queue backing the whole pipeline.
// Every record has exactly one valid location at any instant and moving it
// between locations is the sole mutation primitive; the move is
// copy-then-verify-then-delete so a failure can never leave a record in two
// locations at once. The storage is abstracted behind viant/afs, so the same
// queue runs over file:// in production and mem:// in tests.
package queue

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/taskwell/taskwell/model/record"
)

const recordExt = ".md"

// Service is the folder/file queue abstraction. It is safe for use by the
// single-worker pipeline; concurrent processes against the same base URL
// require a caller-supplied mutual-exclusion mechanism.
type Service struct {
	fs      afs.Service
	baseURL string
	mu      sync.Mutex
}

// New creates a queue rooted at baseURL and ensures every location exists.
func New(fs afs.Service, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	s := &Service{fs: fs, baseURL: baseURL}
	ctx := context.Background()
	for _, location := range Locations() {
		dir := s.locationURL(location)
		exists, _ := fs.Exists(ctx, dir)
		if !exists {
			if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create location %s: %w", dir, err)
			}
		}
	}
	return s, nil
}

// Put persists a record under the given location and name.
func (s *Service) Put(ctx context.Context, location Location, name string, rec *record.Record) error {
	if !location.Valid() {
		return fmt.Errorf("unknown location: %s", location)
	}
	if name == "" {
		return fmt.Errorf("record name cannot be empty")
	}
	data, err := record.Encode(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload(ctx, s.recordURL(location, name), data)
}

// Get loads a record by location and name.
func (s *Service) Get(ctx context.Context, location Location, name string) (*record.Record, error) {
	URL := s.recordURL(location, name)
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", URL, err)
	}
	return record.Decode(data)
}

// Exists reports whether a record is present at the given location.
func (s *Service) Exists(ctx context.Context, location Location, name string) (bool, error) {
	return s.fs.Exists(ctx, s.recordURL(location, name))
}

// List returns the record names held by a location, oldest first by name.
func (s *Service) List(ctx context.Context, location Location) ([]string, error) {
	objects, err := s.fs.List(ctx, s.locationURL(location))
	if err != nil {
		return nil, fmt.Errorf("failed to list location %s: %w", location, err)
	}
	var names []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), recordExt) {
			continue
		}
		names = append(names, object.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Move relocates a record between two locations. The record is copied to the
// destination, the copy verified byte-for-byte, and only then is the source
// deleted - an interrupted move leaves at worst a duplicate that a re-scan
// resolves, never a lost record.
func (s *Service) Move(ctx context.Context, name string, from, to Location) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("unknown location in move %s -> %s", from, to)
	}
	if from == to {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	srcURL := s.recordURL(from, name)
	dstURL := s.recordURL(to, name)

	data, err := s.fs.DownloadWithURL(ctx, srcURL)
	if err != nil {
		return fmt.Errorf("failed to read record %s: %w", srcURL, err)
	}
	if err := s.upload(ctx, dstURL, data); err != nil {
		return fmt.Errorf("failed to copy record to %s: %w", dstURL, err)
	}
	copied, err := s.fs.DownloadWithURL(ctx, dstURL)
	if err != nil {
		return fmt.Errorf("failed to verify record copy %s: %w", dstURL, err)
	}
	if !bytes.Equal(data, copied) {
		return fmt.Errorf("record copy verification failed for %s", name)
	}
	if err := s.fs.Delete(ctx, srcURL); err != nil {
		return fmt.Errorf("failed to delete record from %s: %w", srcURL, err)
	}
	return nil
}

// Delete removes a record from a location.
func (s *Service) Delete(ctx context.Context, location Location, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Delete(ctx, s.recordURL(location, name))
}

// Locate scans every location for a record name and returns the first (and,
// by the single-location invariant, only) location holding it.
func (s *Service) Locate(ctx context.Context, name string) (Location, bool, error) {
	for _, location := range Locations() {
		exists, err := s.fs.Exists(ctx, s.recordURL(location, name))
		if err != nil {
			return "", false, err
		}
		if exists {
			return location, true, nil
		}
	}
	return "", false, nil
}

// BaseURL returns the queue root.
func (s *Service) BaseURL() string { return s.baseURL }

func (s *Service) locationURL(location Location) string {
	return url.Join(s.baseURL, string(location))
}

func (s *Service) recordURL(location Location, name string) string {
	if !strings.HasSuffix(name, recordExt) {
		name += recordExt
	}
	return url.Join(s.locationURL(location), name)
}

func (s *Service) upload(ctx context.Context, URL string, data []byte) error {
	return s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data))
}

var unsafeChars = regexp.MustCompile(`[^\w\s-]`)
var separators = regexp.MustCompile(`[-\s]+`)

// SanitizeName turns free text into a filename-safe slug capped at maxLength
// characters. Empty input yields "untitled".
func SanitizeName(text string, maxLength int) string {
	text = strings.ToLower(text)
	text = unsafeChars.ReplaceAllString(text, "")
	text = separators.ReplaceAllString(text, "-")
	if len(text) > maxLength {
		text = text[:maxLength]
	}
	text = strings.Trim(text, "-")
	if text == "" {
		return "untitled"
	}
	return text
}

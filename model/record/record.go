// Package record implements the persisted text format shared by every queue
// location: a YAML metadata block followed by a free-text body. The codec is
// deliberately isolated from the state-machine logic so that it can be
// swapped or fuzz-tested independently.
package record

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/viant/toolbox"
	"gopkg.in/yaml.v3"
)

const delimiter = "---\n"

// Record is a structured-metadata block plus a free-text body. The metadata
// holds the machine-authoritative fields; the body is for humans.
type Record struct {
	Meta map[string]interface{}
	Body string
}

// New returns an empty record with initialised metadata.
func New() *Record {
	return &Record{Meta: map[string]interface{}{}}
}

// Encode serialises the record as a YAML frontmatter block plus body.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot encode nil record")
	}
	var buf bytes.Buffer
	buf.WriteString(delimiter)
	if len(r.Meta) > 0 {
		data, err := yaml.Marshal(r.Meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record metadata: %w", err)
		}
		buf.Write(data)
	}
	buf.WriteString(delimiter)
	buf.WriteString("\n")
	buf.WriteString(r.Body)
	return buf.Bytes(), nil
}

// Decode parses a persisted record. Content without a leading frontmatter
// block decodes as a record with empty metadata and the full content as body;
// malformed metadata is never fatal to the caller.
func Decode(data []byte) (*Record, error) {
	content := string(data)
	result := New()
	if !strings.HasPrefix(content, delimiter) {
		result.Body = content
		return result, nil
	}
	rest := content[len(delimiter):]
	idx := strings.Index(rest, delimiter)
	if idx == -1 {
		result.Body = content
		return result, nil
	}
	block := rest[:idx]
	if err := yaml.Unmarshal([]byte(block), &result.Meta); err != nil {
		return nil, fmt.Errorf("failed to parse record metadata: %w", err)
	}
	if result.Meta == nil {
		result.Meta = map[string]interface{}{}
	}
	result.Body = strings.TrimPrefix(rest[idx+len(delimiter):], "\n")
	return result, nil
}

// String returns the metadata value coerced to string, or "" when absent.
func (r *Record) String(key string) string {
	value, ok := r.Meta[key]
	if !ok || value == nil {
		return ""
	}
	return toolbox.AsString(value)
}

// Int returns the metadata value coerced to int, or 0 when absent.
func (r *Record) Int(key string) int {
	value, ok := r.Meta[key]
	if !ok || value == nil {
		return 0
	}
	return toolbox.AsInt(value)
}

// Float returns the metadata value coerced to float64, or 0 when absent.
func (r *Record) Float(key string) float64 {
	value, ok := r.Meta[key]
	if !ok || value == nil {
		return 0
	}
	return toolbox.AsFloat(value)
}

// Bool returns the metadata value coerced to bool.
func (r *Record) Bool(key string) bool {
	value, ok := r.Meta[key]
	if !ok || value == nil {
		return false
	}
	return toolbox.AsBoolean(value)
}

// Time parses an RFC3339 timestamp stored under key; the zero time is
// returned for absent or malformed values.
func (r *Record) Time(key string) time.Time {
	text := r.String(key)
	if text == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// SetTime stores a timestamp in RFC3339 form.
func (r *Record) SetTime(key string, value time.Time) {
	if value.IsZero() {
		return
	}
	r.Meta[key] = value.UTC().Format(time.RFC3339)
}

// Strings returns the metadata value as a string slice; scalar values are
// wrapped into a single-element slice.
func (r *Record) Strings(key string) []string {
	value, ok := r.Meta[key]
	if !ok || value == nil {
		return nil
	}
	switch actual := value.(type) {
	case []string:
		return actual
	case []interface{}:
		out := make([]string, 0, len(actual))
		for _, item := range actual {
			out = append(out, toolbox.AsString(item))
		}
		return out
	default:
		return []string{toolbox.AsString(actual)}
	}
}

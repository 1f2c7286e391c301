package model

import (
	"strings"
	"time"
)

// Priority ranks how urgently an item needs attention.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority normalises a free-form priority value. Unknown or empty
// values default to low so malformed metadata never blocks classification.
func ParsePriority(value string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Item represents one unit of inbound work derived from an external source.
// Once classified an item is immutable except for Status and ReviewedAt; the
// queue's move semantics enforce a single writer at any instant.
type Item struct {
	ID                string                 `json:"id" yaml:"id"`
	Source            string                 `json:"source" yaml:"source"`
	ExternalID        string                 `json:"externalId" yaml:"externalId"`
	Type              string                 `json:"type,omitempty" yaml:"type,omitempty"`
	Subject           string                 `json:"subject,omitempty" yaml:"subject,omitempty"`
	Sender            string                 `json:"sender,omitempty" yaml:"sender,omitempty"`
	Labels            []string               `json:"labels,omitempty" yaml:"labels,omitempty"`
	ReceivedAt        time.Time              `json:"receivedAt" yaml:"receivedAt"`
	ReviewedAt        *time.Time             `json:"reviewedAt,omitempty" yaml:"reviewedAt,omitempty"`
	Priority          Priority               `json:"priority" yaml:"priority"`
	ImportanceSignals []string               `json:"importanceSignals,omitempty" yaml:"importanceSignals,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Body              string                 `json:"body,omitempty" yaml:"body,omitempty"`
	Status            string                 `json:"status,omitempty" yaml:"status,omitempty"`
}

// SearchText returns the text the classifier matches keywords against.
func (i *Item) SearchText() string {
	return strings.ToLower(i.Subject + " " + i.Body)
}

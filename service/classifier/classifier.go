// Package classifier holds the importance predicate and priority ranking
// applied to inbound items. Both are pure functions of (item, rules) so they
// stay independently unit-testable; the ingestion loop supplies the rules.
package classifier

import (
	"strings"

	"github.com/taskwell/taskwell/model"
)

// Logic modes combining the configured predicate groups.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// ImportanceRules configures the importance predicate. A group with zero
// configured rules is skipped: it does not count toward the AND/OR result.
type ImportanceRules struct {
	SenderAllowList []string `json:"senderAllowList,omitempty" yaml:"senderAllowList,omitempty"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	RequiredLabels  []string `json:"requiredLabels,omitempty" yaml:"requiredLabels,omitempty"`
	LogicMode       string   `json:"logicMode,omitempty" yaml:"logicMode,omitempty"`
}

// PriorityRules configures the first-match-wins priority ladder.
type PriorityRules struct {
	HighKeywords   []string `json:"highKeywords,omitempty" yaml:"highKeywords,omitempty"`
	VIPSenders     []string `json:"vipSenders,omitempty" yaml:"vipSenders,omitempty"`
	HighLabels     []string `json:"highLabels,omitempty" yaml:"highLabels,omitempty"`
	MediumKeywords []string `json:"mediumKeywords,omitempty" yaml:"mediumKeywords,omitempty"`
}

// Rules bundles both rule sets for configuration loading.
type Rules struct {
	Importance ImportanceRules `json:"importance" yaml:"importance"`
	Priority   PriorityRules   `json:"priority" yaml:"priority"`
}

// DefaultRules mirrors a sensible personal-inbox setup.
func DefaultRules() Rules {
	return Rules{
		Importance: ImportanceRules{
			Keywords:       []string{"urgent", "important", "action required"},
			RequiredLabels: []string{"IMPORTANT", "STARRED"},
			LogicMode:      LogicOr,
		},
		Priority: PriorityRules{
			HighKeywords:   []string{"urgent", "asap", "critical", "emergency"},
			HighLabels:     []string{"IMPORTANT", "STARRED"},
			MediumKeywords: []string{"follow up", "reminder", "deadline"},
		},
	}
}

// IsImportant evaluates the configured predicate groups against an item and
// combines the non-empty groups with the configured logic mode. With no
// groups configured nothing matches.
func IsImportant(item *model.Item, rules ImportanceRules) bool {
	var matches []bool

	if len(rules.SenderAllowList) > 0 {
		matches = append(matches, containsFold(item.Sender, rules.SenderAllowList))
	}
	if len(rules.Keywords) > 0 {
		text := item.SearchText()
		matches = append(matches, anyKeyword(text, rules.Keywords))
	}
	if len(rules.RequiredLabels) > 0 {
		matches = append(matches, anyLabel(item.Labels, rules.RequiredLabels))
	}
	if len(matches) == 0 {
		return false
	}
	if strings.EqualFold(rules.LogicMode, LogicAnd) {
		for _, matched := range matches {
			if !matched {
				return false
			}
		}
		return true
	}
	for _, matched := range matches {
		if matched {
			return true
		}
	}
	return false
}

// Priority ranks an item on the first-match-wins ladder: any high keyword,
// VIP sender or high label wins high; else any medium keyword wins medium;
// else low.
func Priority(item *model.Item, rules PriorityRules) model.Priority {
	text := item.SearchText()
	if anyKeyword(text, rules.HighKeywords) {
		return model.PriorityHigh
	}
	if containsFold(item.Sender, rules.VIPSenders) {
		return model.PriorityHigh
	}
	if anyLabel(item.Labels, rules.HighLabels) {
		return model.PriorityHigh
	}
	if anyKeyword(text, rules.MediumKeywords) {
		return model.PriorityMedium
	}
	return model.PriorityLow
}

// Signals lists which importance groups matched, for observability.
func Signals(item *model.Item, rules ImportanceRules) []string {
	var signals []string
	if len(rules.SenderAllowList) > 0 && containsFold(item.Sender, rules.SenderAllowList) {
		signals = append(signals, "sender")
	}
	if len(rules.Keywords) > 0 && anyKeyword(item.SearchText(), rules.Keywords) {
		signals = append(signals, "keyword")
	}
	if len(rules.RequiredLabels) > 0 && anyLabel(item.Labels, rules.RequiredLabels) {
		signals = append(signals, "label")
	}
	return signals
}

func anyKeyword(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func containsFold(value string, candidates []string) bool {
	lowered := strings.ToLower(value)
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}

func anyLabel(labels, required []string) bool {
	for _, label := range labels {
		for _, want := range required {
			if label == want {
				return true
			}
		}
	}
	return false
}

package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskwell/taskwell/model"
)

func TestIsImportant(t *testing.T) {
	tests := []struct {
		name     string
		item     *model.Item
		rules    ImportanceRules
		expected bool
	}{
		{
			name:     "keyword match with OR",
			item:     &model.Item{Subject: "Urgent request", Body: "please act"},
			rules:    ImportanceRules{Keywords: []string{"urgent"}, RequiredLabels: []string{"IMPORTANT"}, LogicMode: LogicOr},
			expected: true,
		},
		{
			name:     "AND requires every non-empty group",
			item:     &model.Item{Subject: "Urgent request"},
			rules:    ImportanceRules{Keywords: []string{"urgent"}, RequiredLabels: []string{"IMPORTANT"}, LogicMode: LogicAnd},
			expected: false,
		},
		{
			name:     "AND satisfied",
			item:     &model.Item{Subject: "Urgent request", Labels: []string{"IMPORTANT"}},
			rules:    ImportanceRules{Keywords: []string{"urgent"}, RequiredLabels: []string{"IMPORTANT"}, LogicMode: LogicAnd},
			expected: true,
		},
		{
			name:     "empty group skipped under AND",
			item:     &model.Item{Subject: "Urgent request"},
			rules:    ImportanceRules{Keywords: []string{"urgent"}, LogicMode: LogicAnd},
			expected: true,
		},
		{
			name:     "sender allow list",
			item:     &model.Item{Sender: "boss@example.com"},
			rules:    ImportanceRules{SenderAllowList: []string{"boss@example.com"}, LogicMode: LogicOr},
			expected: true,
		},
		{
			name:     "no groups configured matches nothing",
			item:     &model.Item{Subject: "Urgent request"},
			rules:    ImportanceRules{},
			expected: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsImportant(tc.item, tc.rules))
		})
	}
}

func TestPriorityLadder(t *testing.T) {
	rules := PriorityRules{
		HighKeywords:   []string{"urgent", "asap"},
		VIPSenders:     []string{"ceo@example.com"},
		HighLabels:     []string{"IMPORTANT"},
		MediumKeywords: []string{"follow up"},
	}

	tests := []struct {
		name     string
		item     *model.Item
		expected model.Priority
	}{
		{name: "high keyword", item: &model.Item{Body: "this is urgent, follow up"}, expected: model.PriorityHigh},
		{name: "vip sender", item: &model.Item{Sender: "ceo@example.com"}, expected: model.PriorityHigh},
		{name: "high label", item: &model.Item{Labels: []string{"IMPORTANT"}}, expected: model.PriorityHigh},
		{name: "medium keyword", item: &model.Item{Body: "please follow up next week"}, expected: model.PriorityMedium},
		{name: "no match", item: &model.Item{Body: "weekly newsletter"}, expected: model.PriorityLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Priority(tc.item, rules))
		})
	}
}

// First-match-wins: a high keyword dominates regardless of other matches.
func TestHighKeywordDominates(t *testing.T) {
	rules := DefaultRules().Priority
	item := &model.Item{Subject: "urgent", Body: "also mentions follow up and reminder"}
	assert.Equal(t, model.PriorityHigh, Priority(item, rules))
}

func TestSignals(t *testing.T) {
	rules := ImportanceRules{
		SenderAllowList: []string{"boss@example.com"},
		Keywords:        []string{"urgent"},
		RequiredLabels:  []string{"IMPORTANT"},
	}
	item := &model.Item{Sender: "boss@example.com", Subject: "urgent thing"}
	assert.Equal(t, []string{"sender", "keyword"}, Signals(item, rules))
}

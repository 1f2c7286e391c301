package planner

import (
	"strings"

	"github.com/taskwell/taskwell/model"
)

// Item types with dedicated step templates.
const (
	TypeEmail   = "email_task"
	TypeProject = "project"
)

// ActionTypeFor derives the approval action type from a step description.
// The payment and deletion vocabularies are checked first so that "pay the
// invoice and send confirmation" routes to the stricter gate.
func ActionTypeFor(description string) string {
	lowered := strings.ToLower(description)
	switch {
	case containsAny(lowered, "pay", "payment", "transfer", "invoice", "charge", "purchase"):
		return "create_payment_draft"
	case containsAny(lowered, "delete", "remove", "cancel"):
		return "delete_resource"
	case containsAny(lowered, "deploy", "release"):
		return "deploy_release"
	case containsAny(lowered, "post", "publish", "share"):
		return "post_social"
	case containsAny(lowered, "send", "reply", "respond", "email", "forward"):
		return "send_email"
	default:
		return "generic_action"
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func isEmailType(itemType string) bool {
	return itemType == TypeEmail || strings.Contains(strings.ToLower(itemType), "email")
}

func isProjectType(itemType string) bool {
	return strings.Contains(strings.ToLower(itemType), TypeProject)
}

func templateGoal(item *model.Item) string {
	subject := item.Subject
	switch {
	case isEmailType(item.Type):
		return "Respond to email: " + subject
	case isProjectType(item.Type):
		return "Complete project: " + subject
	default:
		if subject == "" {
			subject = "Untitled"
		}
		return "Process task: " + subject
	}
}

// templateSteps produces the fixed step lists for items without explicit
// action items. The email template always ends in a send-reply step.
func templateSteps(item *model.Item, goal string) []*model.Step {
	switch {
	case isEmailType(item.Type):
		return steps(
			"Read and analyze the message content",
			"Draft a response addressing all points",
			"Review the draft for tone and accuracy",
			"Send email reply",
		)
	case isProjectType(item.Type):
		return steps(
			"Review project requirements",
			"Break down into subtasks",
			"Execute each subtask",
			"Test and verify completion",
			"Document results",
		)
	default:
		return steps(
			"Analyze task requirements",
			"Execute: "+goal,
			"Verify completion",
		)
	}
}

func steps(descriptions ...string) []*model.Step {
	out := make([]*model.Step, 0, len(descriptions))
	for i, description := range descriptions {
		out = append(out, &model.Step{Number: i + 1, Description: description})
	}
	return out
}

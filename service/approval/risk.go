package approval

import (
	"strings"

	"github.com/viant/structology/conv"

	"github.com/taskwell/taskwell/model"
)

// EmailArgs is the typed view of a send_email argument payload used by the
// risk overrides.
type EmailArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// PaymentArgs is the typed view of a payment argument payload.
type PaymentArgs struct {
	Amount    float64 `json:"amount"`
	Recipient string  `json:"recipient"`
	Currency  string  `json:"currency"`
}

// RiskPolicy maps action types to baseline risk levels plus override rules
// that can escalate - never de-escalate - the baseline.
type RiskPolicy struct {
	// Baseline risk per action type; unlisted types default to low.
	Baseline map[string]model.RiskLevel `json:"baseline" yaml:"baseline"`

	// InternalDomains lists email domains considered internal; a recipient
	// outside the list escalates send_email to at least medium.
	InternalDomains []string `json:"internalDomains,omitempty" yaml:"internalDomains,omitempty"`

	// PaymentHighThreshold forces payment risk to high above this amount.
	// Payment risk is never below high regardless of the amount.
	PaymentHighThreshold float64 `json:"paymentHighThreshold,omitempty" yaml:"paymentHighThreshold,omitempty"`
}

// DefaultRiskPolicy returns the stock threshold table.
func DefaultRiskPolicy() *RiskPolicy {
	return &RiskPolicy{
		Baseline: map[string]model.RiskLevel{
			"send_email":           model.RiskMedium,
			"post_social":          model.RiskMedium,
			"post_to_linkedin":     model.RiskMedium,
			"post_to_facebook":     model.RiskMedium,
			"post_to_instagram":    model.RiskMedium,
			"post_to_twitter":      model.RiskMedium,
			"create_invoice_draft": model.RiskMedium,
			"create_payment_draft": model.RiskHigh,
			"delete_resource":      model.RiskHigh,
			"delete_account":       model.RiskHigh,
			"deploy_release":       model.RiskHigh,
			"sign_contract":        model.RiskHigh,
		},
		PaymentHighThreshold: 10000,
	}
}

var converter = conv.NewConverter(conv.DefaultOptions())

// Assess computes the risk of an action: the baseline for its type,
// escalated by type-specific override rules. The result is never below the
// baseline.
func (p *RiskPolicy) Assess(actionType string, arguments map[string]interface{}) model.RiskLevel {
	baseline := model.RiskLow
	if level, ok := p.Baseline[actionType]; ok {
		baseline = level
	}
	level := baseline

	switch {
	case isEmailAction(actionType):
		var args EmailArgs
		if err := converter.Convert(arguments, &args); err == nil {
			if args.To != "" && !p.isInternalRecipient(args.To) {
				level = model.MaxRisk(level, model.RiskMedium)
			}
		}
	case isPaymentAction(actionType):
		// Payment risk is never below high above the threshold; the
		// baseline already floors plain payments at high.
		var args PaymentArgs
		if err := converter.Convert(arguments, &args); err == nil {
			if args.Amount > p.PaymentHighThreshold {
				level = model.MaxRisk(level, model.RiskHigh)
			}
		}
		level = model.MaxRisk(level, model.RiskHigh)
	}
	return model.MaxRisk(baseline, level)
}

func (p *RiskPolicy) isInternalRecipient(address string) bool {
	at := strings.LastIndexByte(address, '@')
	if at == -1 {
		return true
	}
	domain := strings.ToLower(address[at+1:])
	for _, internal := range p.InternalDomains {
		if strings.EqualFold(domain, internal) {
			return true
		}
	}
	return false
}

func isEmailAction(actionType string) bool {
	return actionType == "send_email"
}

func isPaymentAction(actionType string) bool {
	return strings.Contains(actionType, "payment")
}

package pipeline

// Decision is the gate's verdict for a triaged new-thread message.
type Decision int

const (
	DecisionProceed Decision = iota
	DecisionDiscard
	DecisionQuarantine
)

func (d Decision) String() string {
	switch d {
	case DecisionProceed:
		return "proceed"
	case DecisionDiscard:
		return "discard"
	case DecisionQuarantine:
		return "quarantine"
	}
	return "unknown"
}

// Decide maps a triage result to exactly one decision. The mapping is the
// single source of truth for classification policy: customer categories
// proceed only on medium or high confidence and quarantine otherwise;
// known non-request categories discard at any confidence; everything else,
// including categories and confidence values this build has never seen,
// quarantines. There is deliberately no default that proceeds.
func Decide(t *TriageResult) (Decision, string) {
	switch t.Classification {
	case ClassCustomerSupportRequest, ClassCustomerReply:
		switch t.Confidence {
		case ConfidenceHigh, ConfidenceMedium:
			return DecisionProceed, ""
		case ConfidenceLow:
			return DecisionQuarantine, "low confidence: " + t.Reasoning
		}
		return DecisionQuarantine, "unrecognized confidence " + string(t.Confidence) + ": " + t.Reasoning
	case ClassSystemNotification, ClassMarketingPromotional, ClassSpamPhishing,
		ClassOutOfOffice, ClassPersonalInternal, ClassVendorBusiness:
		return DecisionDiscard, string(t.Classification)
	case ClassUnclearNeedsReview:
		return DecisionQuarantine, t.Reasoning
	}
	return DecisionQuarantine, "unrecognized classification " + string(t.Classification) + ": " + t.Reasoning
}

package pipeline

import "strings"

// HardRule is a static pattern that discards mechanically-identifiable
// automated mail before any classifier call. Exactly one of the three match
// kinds is set per rule. Matching is case-insensitive substring containment;
// a Header rule with no HeaderContains matches on the header's presence.
type HardRule struct {
	Name            string
	Header          string
	HeaderContains  string
	SenderContains  string
	SubjectContains string
}

// Matches reports whether the rule matches the message.
func (r HardRule) Matches(msg *InboundMessage) bool {
	switch {
	case r.Header != "":
		for _, v := range msg.HeaderValues(r.Header) {
			if r.HeaderContains == "" || containsFold(v, r.HeaderContains) {
				return true
			}
		}
		return false
	case r.SenderContains != "":
		return containsFold(msg.Sender.Address, r.SenderContains)
	case r.SubjectContains != "":
		return containsFold(msg.Subject, r.SubjectContains)
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// DefaultHardRules are the stock rules for known-automated mail. Order
// matters only for which rule gets credited in logs; first match wins.
func DefaultHardRules() []HardRule {
	return []HardRule{
		{Name: "precedence-bulk", Header: "Precedence", HeaderContains: "bulk"},
		{Name: "precedence-junk", Header: "Precedence", HeaderContains: "junk"},
		{Name: "auto-submitted", Header: "Auto-Submitted", HeaderContains: "auto-"},
		// Values vary wildly (All, OOF, "DR, RN, NRN, OOF, AutoReply");
		// the header's presence is the signal.
		{Name: "auto-response-suppress", Header: "X-Auto-Response-Suppress"},
		{Name: "sender-mailer-daemon", SenderContains: "mailer-daemon@"},
		{Name: "sender-noreply", SenderContains: "noreply@"},
		{Name: "sender-no-reply", SenderContains: "no-reply@"},
		{Name: "subject-out-of-office", SubjectContains: "out of office"},
		{Name: "subject-automatic-reply", SubjectContains: "automatic reply"},
		{Name: "subject-undeliverable", SubjectContains: "undeliverable:"},
	}
}

// HardRuleFilter evaluates an ordered rule list against a message.
type HardRuleFilter struct {
	rules []HardRule
}

// NewHardRuleFilter creates a filter with the given rules, or the defaults
// when rules is nil.
func NewHardRuleFilter(rules []HardRule) *HardRuleFilter {
	if rules == nil {
		rules = DefaultHardRules()
	}
	return &HardRuleFilter{rules: rules}
}

// Match returns the first matching rule, if any.
func (f *HardRuleFilter) Match(msg *InboundMessage) (HardRule, bool) {
	for _, r := range f.rules {
		if r.Matches(msg) {
			return r, true
		}
	}
	return HardRule{}, false
}

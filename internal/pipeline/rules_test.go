package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardRuleFilterDefaults(t *testing.T) {
	filter := NewHardRuleFilter(nil)

	tests := []struct {
		name     string
		msg      InboundMessage
		wantRule string
	}{
		{
			name: "precedence bulk header",
			msg: InboundMessage{
				Sender:  EmailAddress{Address: "news@shop.com"},
				Headers: []Header{{Name: "Precedence", Value: "Bulk"}},
			},
			wantRule: "precedence-bulk",
		},
		{
			name: "auto submitted header",
			msg: InboundMessage{
				Sender:  EmailAddress{Address: "sys@host.com"},
				Headers: []Header{{Name: "auto-submitted", Value: "auto-replied"}},
			},
			wantRule: "auto-submitted",
		},
		{
			name: "auto response suppress header",
			msg: InboundMessage{
				Sender:  EmailAddress{Address: "x@y.com"},
				Headers: []Header{{Name: "X-Auto-Response-Suppress", Value: "All"}},
			},
			wantRule: "auto-response-suppress",
		},
		{
			name: "auto response suppress oof value",
			msg: InboundMessage{
				Sender:  EmailAddress{Address: "x@y.com"},
				Headers: []Header{{Name: "X-Auto-Response-Suppress", Value: "DR, RN, NRN, OOF, AutoReply"}},
			},
			wantRule: "auto-response-suppress",
		},
		{
			name:     "mailer daemon sender",
			msg:      InboundMessage{Sender: EmailAddress{Address: "MAILER-DAEMON@mx.example.com"}},
			wantRule: "sender-mailer-daemon",
		},
		{
			name:     "noreply sender",
			msg:      InboundMessage{Sender: EmailAddress{Address: "NoReply@shipper.com"}},
			wantRule: "sender-noreply",
		},
		{
			name:     "out of office subject",
			msg:      InboundMessage{Sender: EmailAddress{Address: "a@b.com"}, Subject: "Out of Office: vacation"},
			wantRule: "subject-out-of-office",
		},
		{
			name:     "automatic reply subject",
			msg:      InboundMessage{Sender: EmailAddress{Address: "a@b.com"}, Subject: "Automatic Reply: your message"},
			wantRule: "subject-automatic-reply",
		},
		{
			name:     "undeliverable subject",
			msg:      InboundMessage{Sender: EmailAddress{Address: "a@b.com"}, Subject: "Undeliverable: order update"},
			wantRule: "subject-undeliverable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := filter.Match(&tt.msg)
			require.True(t, ok)
			assert.Equal(t, tt.wantRule, rule.Name)
		})
	}
}

func TestHardRuleFilterPassesNormalMail(t *testing.T) {
	filter := NewHardRuleFilter(nil)

	msg := InboundMessage{
		Sender:  EmailAddress{Address: "customer@example.com"},
		Subject: "Where is my order #4521?",
		Headers: []Header{{Name: "Message-ID", Value: "<abc@example.com>"}},
	}

	_, ok := filter.Match(&msg)
	assert.False(t, ok)
}

func TestHardRuleFirstMatchWins(t *testing.T) {
	filter := NewHardRuleFilter([]HardRule{
		{Name: "first", SubjectContains: "shipped"},
		{Name: "second", SenderContains: "noreply@"},
	})

	msg := InboundMessage{
		Sender:  EmailAddress{Address: "noreply@shipper.com"},
		Subject: "Your order has shipped!",
	}

	rule, ok := filter.Match(&msg)
	require.True(t, ok)
	assert.Equal(t, "first", rule.Name)
}

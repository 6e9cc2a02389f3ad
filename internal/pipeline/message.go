package pipeline

import (
	"strings"
	"time"
)

// EmailAddress is a sender address with an optional display name.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Header is a single message header. Order is preserved as returned by the
// provider because References parsing cares about all occurrences.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// InboundMessage is a provider message as seen by the pipeline. FullBody is
// empty until fetched via MailboxClient.FetchByID; triage only needs the
// preview.
type InboundMessage struct {
	ID                string       `json:"id"`
	InternetMessageID string       `json:"internet_message_id,omitempty"`
	ConversationID    string       `json:"conversation_id,omitempty"`
	Sender            EmailAddress `json:"sender"`
	Subject           string       `json:"subject"`
	BodyPreview       string       `json:"body_preview"`
	FullBody          string       `json:"full_body,omitempty"`
	ReceivedAt        time.Time    `json:"received_at"`
	Headers           []Header     `json:"headers,omitempty"`
}

// HeaderValue returns the first header with the given name, case-insensitively.
func (m *InboundMessage) HeaderValue(name string) (string, bool) {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// HeaderValues returns all header values with the given name, case-insensitively.
func (m *InboundMessage) HeaderValues(name string) []string {
	var values []string
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			values = append(values, h.Value)
		}
	}
	return values
}

// SenderDomain returns the lower-cased domain part of the sender address,
// or "" when the address has no @.
func (m *InboundMessage) SenderDomain() string {
	addr := strings.ToLower(strings.TrimSpace(m.Sender.Address))
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}

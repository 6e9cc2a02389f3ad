package pipeline

import (
	"context"
	"fmt"
	"strings"

	"support-mail-ingest-go/internal/model"
)

// ThreadMatch identifies the existing ticket a reply belongs to.
type ThreadMatch struct {
	Ticket    *model.Ticket
	MatchedBy string // "references" or "conversation"
}

// ThreadResolver matches an inbound message to an existing ticket. Header
// threading (References / In-Reply-To, RFC 5322) takes precedence; the
// provider conversation id is a fallback for when intermediate MTAs strip
// headers.
type ThreadResolver struct {
	store Store
}

// NewThreadResolver creates a resolver over the given store.
func NewThreadResolver(store Store) *ThreadResolver {
	return &ThreadResolver{store: store}
}

// Resolve returns the matched ticket, or nil when the message starts a new
// thread.
func (r *ThreadResolver) Resolve(ctx context.Context, msg *InboundMessage) (*ThreadMatch, error) {
	for _, id := range ReferencedMessageIDs(msg) {
		ticket, err := r.store.FindTicketByExternalID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("thread lookup by reference %q: %w", id, err)
		}
		if ticket != nil {
			return &ThreadMatch{Ticket: ticket, MatchedBy: "references"}, nil
		}
	}

	if msg.ConversationID != "" {
		ticket, err := r.store.FindTicketByConversationID(ctx, msg.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("thread lookup by conversation %q: %w", msg.ConversationID, err)
		}
		if ticket != nil {
			return &ThreadMatch{Ticket: ticket, MatchedBy: "conversation"}, nil
		}
	}

	return nil, nil
}

// ReferencedMessageIDs extracts the message-ids named by the References and
// In-Reply-To headers. Values are angle-bracket wrapped per RFC 5322;
// duplicates are dropped, order of first appearance is kept.
func ReferencedMessageIDs(msg *InboundMessage) []string {
	var ids []string
	seen := make(map[string]struct{})

	collect := func(value string) {
		for {
			start := strings.Index(value, "<")
			if start < 0 {
				return
			}
			end := strings.Index(value[start:], ">")
			if end < 0 {
				return
			}
			id := strings.TrimSpace(value[start+1 : start+end])
			if id != "" {
				full := "<" + id + ">"
				if _, ok := seen[full]; !ok {
					seen[full] = struct{}{}
					ids = append(ids, full)
				}
			}
			value = value[start+end+1:]
		}
	}

	for _, v := range msg.HeaderValues("References") {
		collect(v)
	}
	for _, v := range msg.HeaderValues("In-Reply-To") {
		collect(v)
	}
	return ids
}

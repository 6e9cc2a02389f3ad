package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"support-mail-ingest-go/internal/model"
)

// Intents and document types recognised by the enrichment heuristics. These
// mirror the values the extractor is prompted to produce.
const (
	IntentOrderStatus     = "order_status_inquiry"
	IntentTrackingInquiry = "tracking_inquiry"
	IntentDocumentRequest = "documentation_request"

	DocumentTypeCOA = "coa"
	DocumentTypeSDS = "sds"
	DocumentTypeCOC = "coc"
)

const defaultTicketType = "General Inquiry"

// Enrichment is everything the enricher derived for a new ticket: the
// (possibly defaulted) extraction, the computed ticket status, the internal
// note body, and order-lookup bookkeeping.
type Enrichment struct {
	Extraction      ExtractionResult
	Degraded        bool // extractor failed, defaults substituted
	Status          string
	InternalNote    string
	LookupAttempted bool
	LookupSucceeded bool
}

// AssigneeTable maps a lower-cased keyword to candidate agent emails, tried
// in order. Kept static and explicit so every entry stays testable.
type AssigneeTable map[string][]string

// DefaultAssigneeTable is the stock keyword-to-agent routing table.
func DefaultAssigneeTable() AssigneeTable {
	return AssigneeTable{
		"billing":   {"billing@example.com", "accounts@example.com"},
		"shipping":  {"logistics@example.com"},
		"logistics": {"logistics@example.com"},
		"quality":   {"qa@example.com"},
		"returns":   {"returns@example.com"},
		"technical": {"support-eng@example.com"},
	}
}

// Candidates returns the candidate emails for every keyword appearing in
// the free-text hint. Keywords are tried in sorted order so the same hint
// always yields the same candidate sequence.
func (t AssigneeTable) Candidates(hint string) []string {
	if hint == "" {
		return nil
	}
	keywords := make([]string, 0, len(t))
	for kw := range t {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	lower := strings.ToLower(hint)
	var out []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			out = append(out, t[kw]...)
		}
	}
	return out
}

// Enricher runs extraction, order lookup, and draft-reply synthesis for
// messages the decision gate let through.
type Enricher struct {
	extractor Extractor
	orders    OrderLookup
	assignees AssigneeTable
}

// NewEnricher creates an enricher. orders may be nil when no shipping
// integration is configured; assignees nil falls back to the default table.
func NewEnricher(extractor Extractor, orders OrderLookup, assignees AssigneeTable) *Enricher {
	if assignees == nil {
		assignees = DefaultAssigneeTable()
	}
	return &Enricher{extractor: extractor, orders: orders, assignees: assignees}
}

// DefaultExtraction is the conservative fallback used when the extractor
// fails or returns an invalid shape. The ticket is still created, just with
// degraded metadata.
func DefaultExtraction(subject string) ExtractionResult {
	summary := strings.TrimSpace(subject)
	if len(summary) > 200 {
		summary = summary[:200]
	}
	if summary == "" {
		summary = "(no subject)"
	}
	return ExtractionResult{
		TicketType:         defaultTicketType,
		Summary:            summary,
		PrioritySuggestion: model.PriorityMedium,
	}
}

// Enrich produces the Enrichment for a message whose FullBody has already
// been fetched. Extractor and order-lookup failures are non-fatal.
func (e *Enricher) Enrich(ctx context.Context, msg *InboundMessage) Enrichment {
	out := Enrichment{}

	body := msg.FullBody
	if body == "" {
		body = msg.BodyPreview
	}

	extraction, err := e.extractor.Extract(ctx, msg.Subject, body)
	if err != nil || extraction == nil || extraction.Summary == "" {
		if err != nil {
			logrus.Warnf("Extraction failed for message %s: %v", msg.ID, err)
		} else {
			logrus.Warnf("Extractor returned invalid shape for message %s", msg.ID)
		}
		out.Extraction = DefaultExtraction(msg.Subject)
		out.Degraded = true
	} else {
		out.Extraction = *extraction
		if out.Extraction.PrioritySuggestion == "" {
			out.Extraction.PrioritySuggestion = model.PriorityMedium
		}
		if out.Extraction.TicketType == "" {
			out.Extraction.TicketType = defaultTicketType
		}
	}

	out.Status = model.TicketStatusNew
	if out.Extraction.PrioritySuggestion == model.PriorityUrgent {
		out.Status = model.TicketStatusOpen
	}

	var noteParts []string

	if draft, needsCustomer := e.buildDraftReply(out.Extraction); draft != "" {
		noteParts = append(noteParts, "Draft reply (pending approval):\n\n"+draft)
		if needsCustomer {
			out.Status = model.TicketStatusPendingCustomer
		}
	}

	if note := e.lookupOrder(ctx, &out); note != "" {
		noteParts = append(noteParts, note)
	}

	out.InternalNote = strings.Join(noteParts, "\n\n---\n\n")
	return out
}

// SuggestAssignee maps the extractor's free-text role hint through the
// static keyword table. No match is never an error.
func (e *Enricher) SuggestAssignee(ctx context.Context, store Store, hint string) *uint {
	for _, email := range e.assignees.Candidates(hint) {
		user, err := store.FindUserByEmail(ctx, email)
		if err != nil {
			logrus.Warnf("Assignee candidate lookup failed for %s: %v", email, err)
			continue
		}
		if user != nil {
			return &user.ID
		}
	}
	return nil
}

// lookupOrder calls the shipping system when the intent warrants it and
// renders the result (or the failure) as internal-note text.
func (e *Enricher) lookupOrder(ctx context.Context, out *Enrichment) string {
	x := out.Extraction
	if e.orders == nil || x.OrderNumber == "" {
		return ""
	}
	if x.Intent != IntentOrderStatus && x.Intent != IntentTrackingInquiry {
		return ""
	}

	out.LookupAttempted = true
	info, err := e.orders.Lookup(ctx, x.OrderNumber)
	if err != nil {
		logrus.Warnf("Order lookup failed for order %s: %v", x.OrderNumber, err)
		return fmt.Sprintf("Order lookup for #%s failed: %v", x.OrderNumber, err)
	}
	if info == nil || !info.Found {
		out.LookupSucceeded = true
		reason := ""
		if info != nil && info.ErrorMessage != "" {
			reason = " (" + info.ErrorMessage + ")"
		}
		return fmt.Sprintf("Order #%s was not found in the shipping system%s.", x.OrderNumber, reason)
	}

	out.LookupSucceeded = true
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%s: status %s", x.OrderNumber, info.OrderStatus)
	if info.OrderDate != "" {
		fmt.Fprintf(&b, ", ordered %s", info.OrderDate)
	}
	for _, s := range info.Shipments {
		fmt.Fprintf(&b, "\nShipment: %s %s, shipped %s", s.Carrier, s.TrackingNumber, s.ShipDate)
	}
	return b.String()
}

// buildDraftReply synthesizes a canned customer-facing draft for document
// requests. Purely templated: the same extraction always yields the same
// text. needsCustomer is true when the draft asks the customer for more
// information, which forces the ticket to pending_customer.
func (e *Enricher) buildDraftReply(x ExtractionResult) (draft string, needsCustomer bool) {
	if x.Intent != IntentDocumentRequest {
		return "", false
	}

	docType := strings.ToLower(x.DocumentType)
	if docType == "" {
		docType = strings.ToLower(x.TicketType)
	}

	switch {
	case strings.Contains(docType, DocumentTypeCOA):
		if x.LotNumber == "" {
			return "Thank you for reaching out. To pull the Certificate of Analysis you requested, " +
				"we need the lot number printed on the product label. Could you reply with the lot number " +
				"and we will send the COA right over?", true
		}
		return fmt.Sprintf("Thank you for reaching out. We are retrieving the Certificate of Analysis "+
			"for lot %s and will send it to you shortly.", x.LotNumber), false
	case strings.Contains(docType, DocumentTypeSDS):
		return "Thank you for your request. The Safety Data Sheet for this product is attached. " +
			"Please let us know if you need SDS documents for any other products.", false
	case strings.Contains(docType, DocumentTypeCOC):
		return "Thank you for reaching out about a Certificate of Conformance. So we can prepare the " +
			"correct document, could you confirm the product, the purchase order number, and the quantity " +
			"the certificate should cover?", true
	default:
		name := x.DocumentName
		if name == "" {
			name = "the document you need"
		}
		return fmt.Sprintf("Thank you for your request. Could you tell us a bit more about %s, "+
			"including the product it relates to and any order or lot number you have, so we can locate it for you?", name), true
	}
}

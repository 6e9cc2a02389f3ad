package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-mail-ingest-go/internal/model"
)

func TestEnrichExtractionFailureDegradesGracefully(t *testing.T) {
	enricher := NewEnricher(&fakeExtractor{err: fmt.Errorf("model overloaded")}, nil, nil)

	msg := InboundMessage{ID: "m1", Subject: "Need help with my invoice", FullBody: "body"}
	out := enricher.Enrich(context.Background(), &msg)

	assert.True(t, out.Degraded)
	assert.Equal(t, "Need help with my invoice", out.Extraction.Summary)
	assert.Equal(t, model.PriorityMedium, out.Extraction.PrioritySuggestion)
	assert.Equal(t, "General Inquiry", out.Extraction.TicketType)
	assert.Equal(t, model.TicketStatusNew, out.Status)
}

func TestEnrichNilExtractionUsesDefaults(t *testing.T) {
	enricher := NewEnricher(&fakeExtractor{result: nil}, nil, nil)

	out := enricher.Enrich(context.Background(), &InboundMessage{Subject: strings.Repeat("x", 300)})

	assert.True(t, out.Degraded)
	assert.Len(t, out.Extraction.Summary, 200)
}

func TestEnrichUrgentPriorityOpensTicket(t *testing.T) {
	enricher := NewEnricher(&fakeExtractor{result: &ExtractionResult{
		Summary:            "Production line down",
		PrioritySuggestion: model.PriorityUrgent,
	}}, nil, nil)

	out := enricher.Enrich(context.Background(), &InboundMessage{Subject: "URGENT"})

	assert.False(t, out.Degraded)
	assert.Equal(t, model.TicketStatusOpen, out.Status)
}

func TestEnrichOrderLookupSuccess(t *testing.T) {
	orders := &fakeOrders{result: &OrderInfo{
		Found:       true,
		OrderStatus: "shipped",
		OrderDate:   "2024-03-01",
		Shipments:   []Shipment{{Carrier: "ups", TrackingNumber: "1Z999", ShipDate: "2024-03-02"}},
	}}
	enricher := NewEnricher(&fakeExtractor{result: &ExtractionResult{
		Intent:             IntentOrderStatus,
		OrderNumber:        "4521",
		Summary:            "Where is my order",
		PrioritySuggestion: model.PriorityMedium,
	}}, orders, nil)

	out := enricher.Enrich(context.Background(), &InboundMessage{Subject: "Where is my order #4521?"})

	assert.True(t, out.LookupAttempted)
	assert.True(t, out.LookupSucceeded)
	assert.Contains(t, out.InternalNote, "Order #4521")
	assert.Contains(t, out.InternalNote, "ups")
	assert.Contains(t, out.InternalNote, "1Z999")
	assert.Equal(t, 1, orders.calls)
}

func TestEnrichOrderLookupFailureIsNonFatal(t *testing.T) {
	orders := &fakeOrders{err: fmt.Errorf("shipstation timeout")}
	enricher := NewEnricher(&fakeExtractor{result: &ExtractionResult{
		Intent:             IntentTrackingInquiry,
		OrderNumber:        "99",
		Summary:            "tracking please",
		PrioritySuggestion: model.PriorityMedium,
	}}, orders, nil)

	out := enricher.Enrich(context.Background(), &InboundMessage{})

	assert.True(t, out.LookupAttempted)
	assert.False(t, out.LookupSucceeded)
	assert.Contains(t, out.InternalNote, "failed")
}

func TestEnrichNoLookupWithoutOrderNumber(t *testing.T) {
	orders := &fakeOrders{result: &OrderInfo{Found: true}}
	enricher := NewEnricher(&fakeExtractor{result: &ExtractionResult{
		Intent:             IntentOrderStatus,
		Summary:            "general question",
		PrioritySuggestion: model.PriorityMedium,
	}}, orders, nil)

	out := enricher.Enrich(context.Background(), &InboundMessage{})

	assert.False(t, out.LookupAttempted)
	assert.Zero(t, orders.calls)
}

func TestEnrichDraftReplies(t *testing.T) {
	tests := []struct {
		name        string
		extraction  ExtractionResult
		wantPending bool
		wantInNote  string
	}{
		{
			name: "coa without lot number asks for it",
			extraction: ExtractionResult{
				Intent:             IntentDocumentRequest,
				DocumentType:       "coa",
				Summary:            "COA request",
				PrioritySuggestion: model.PriorityMedium,
			},
			wantPending: true,
			wantInNote:  "lot number",
		},
		{
			name: "coa with lot number promises delivery",
			extraction: ExtractionResult{
				Intent:             IntentDocumentRequest,
				DocumentType:       "coa",
				LotNumber:          "L-2231",
				Summary:            "COA request",
				PrioritySuggestion: model.PriorityMedium,
			},
			wantPending: false,
			wantInNote:  "L-2231",
		},
		{
			name: "sds delivery note",
			extraction: ExtractionResult{
				Intent:             IntentDocumentRequest,
				DocumentType:       "sds",
				Summary:            "SDS request",
				PrioritySuggestion: model.PriorityMedium,
			},
			wantPending: false,
			wantInNote:  "Safety Data Sheet",
		},
		{
			name: "coc asks for order details",
			extraction: ExtractionResult{
				Intent:             IntentDocumentRequest,
				DocumentType:       "coc",
				Summary:            "COC request",
				PrioritySuggestion: model.PriorityMedium,
			},
			wantPending: true,
			wantInNote:  "Certificate of Conformance",
		},
		{
			name: "other document asks for more info",
			extraction: ExtractionResult{
				Intent:             IntentDocumentRequest,
				DocumentName:       "spec sheet",
				Summary:            "doc request",
				PrioritySuggestion: model.PriorityMedium,
			},
			wantPending: true,
			wantInNote:  "spec sheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enricher := NewEnricher(&fakeExtractor{result: &tt.extraction}, nil, nil)

			out := enricher.Enrich(context.Background(), &InboundMessage{})
			require.Contains(t, out.InternalNote, "Draft reply")
			assert.Contains(t, out.InternalNote, tt.wantInNote)
			if tt.wantPending {
				assert.Equal(t, model.TicketStatusPendingCustomer, out.Status)
			} else {
				assert.Equal(t, model.TicketStatusNew, out.Status)
			}
		})
	}
}

func TestEnrichDraftIsDeterministic(t *testing.T) {
	extraction := &ExtractionResult{
		Intent:             IntentDocumentRequest,
		DocumentType:       "coa",
		Summary:            "COA request",
		PrioritySuggestion: model.PriorityMedium,
	}
	enricher := NewEnricher(&fakeExtractor{result: extraction}, nil, nil)

	first := enricher.Enrich(context.Background(), &InboundMessage{})
	second := enricher.Enrich(context.Background(), &InboundMessage{})
	assert.Equal(t, first.InternalNote, second.InternalNote)
	assert.Equal(t, first.Status, second.Status)
}

func TestAssigneeTableCandidates(t *testing.T) {
	table := AssigneeTable{
		"billing":  {"billing@example.com"},
		"shipping": {"logistics@example.com"},
	}

	assert.Equal(t, []string{"billing@example.com"}, table.Candidates("Billing and invoices"))
	assert.Nil(t, table.Candidates("unrelated topic"))
	assert.Nil(t, table.Candidates(""))

	// Multi-keyword hints yield a stable candidate order.
	want := []string{"billing@example.com", "logistics@example.com"}
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, table.Candidates("billing and shipping issue"))
	}
}

func TestSuggestAssigneeResolvesExistingUser(t *testing.T) {
	st := newMemStore()
	agentID := st.addUser("logistics@example.com")

	enricher := NewEnricher(&fakeExtractor{}, nil, AssigneeTable{
		"shipping": {"missing@example.com", "logistics@example.com"},
	})

	got := enricher.SuggestAssignee(context.Background(), st, "shipping question")
	require.NotNil(t, got)
	assert.Equal(t, agentID, *got)

	assert.Nil(t, enricher.SuggestAssignee(context.Background(), st, "no such keyword"))
}

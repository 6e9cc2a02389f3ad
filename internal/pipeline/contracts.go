package pipeline

import (
	"context"
	"errors"

	"support-mail-ingest-go/internal/model"
)

// ErrDuplicate is surfaced by Store implementations when an insert violates
// the unique constraint on an external message id. The pipeline treats it as
// a benign race with the deduplication check, never as corruption.
var ErrDuplicate = errors.New("duplicate external message id")

// Classification is the coarse triage category for an inbound message.
type Classification string

const (
	ClassCustomerSupportRequest Classification = "CUSTOMER_SUPPORT_REQUEST"
	ClassCustomerReply          Classification = "CUSTOMER_REPLY"
	ClassSystemNotification     Classification = "SYSTEM_NOTIFICATION"
	ClassMarketingPromotional   Classification = "MARKETING_PROMOTIONAL"
	ClassSpamPhishing           Classification = "SPAM_PHISHING"
	ClassOutOfOffice            Classification = "OUT_OF_OFFICE"
	ClassPersonalInternal       Classification = "PERSONAL_INTERNAL"
	ClassVendorBusiness         Classification = "VENDOR_BUSINESS"
	ClassUnclearNeedsReview     Classification = "UNCLEAR_NEEDS_REVIEW"
)

// Confidence is the classifier's self-reported confidence level.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// TriageResult is the classifier's verdict for one message.
type TriageResult struct {
	Classification    Classification `json:"classification"`
	Confidence        Confidence     `json:"confidence"`
	Reasoning         string         `json:"reasoning"`
	IsLikelyAutomated bool           `json:"is_likely_automated"`
}

// ExtractionResult holds the structured fields the extractor pulls out of a
// message body. Summary and PrioritySuggestion always carry a value; the
// enricher substitutes defaults when extraction fails.
type ExtractionResult struct {
	Intent                    string `json:"intent"`
	TicketType                string `json:"ticket_type"`
	OrderNumber               string `json:"order_number,omitempty"`
	TrackingNumber            string `json:"tracking_number,omitempty"`
	LotNumber                 string `json:"lot_number,omitempty"`
	Summary                   string `json:"summary"`
	LongSummary               string `json:"long_summary,omitempty"`
	PrioritySuggestion        string `json:"priority_suggestion"`
	Sentiment                 string `json:"sentiment,omitempty"`
	DocumentType              string `json:"document_type,omitempty"`
	DocumentRequestConfidence string `json:"document_request_confidence,omitempty"`
	DocumentName              string `json:"document_name,omitempty"`
	SuggestedRoleOrKeywords   string `json:"suggested_role_or_keywords,omitempty"`
}

// Shipment is one shipment attached to a looked-up order.
type Shipment struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
	ShipDate       string `json:"ship_date"`
}

// OrderInfo is the result of an order lookup.
type OrderInfo struct {
	Found        bool       `json:"found"`
	OrderStatus  string     `json:"order_status,omitempty"`
	OrderDate    string     `json:"order_date,omitempty"`
	Shipments    []Shipment `json:"shipments,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// MailboxClient is the mailbox provider as the pipeline sees it.
type MailboxClient interface {
	FetchUnread(ctx context.Context, limit int) ([]InboundMessage, error)
	// MarkRead is best-effort; the pipeline logs failures and moves on.
	MarkRead(ctx context.Context, messageID string) error
	// FetchByID returns the message with FullBody populated, or nil when
	// the provider no longer has it.
	FetchByID(ctx context.Context, messageID string) (*InboundMessage, error)
}

// Classifier buckets a message into a coarse category.
type Classifier interface {
	Triage(ctx context.Context, subject, bodyPreview, senderAddress string) (*TriageResult, error)
}

// Extractor pulls structured ticket fields out of a full message body.
type Extractor interface {
	Extract(ctx context.Context, subject, fullBody string) (*ExtractionResult, error)
}

// OrderLookup resolves an order number against the shipping system.
type OrderLookup interface {
	Lookup(ctx context.Context, orderNumber string) (*OrderInfo, error)
}

// Store is the persistence boundary. Find methods return (nil, nil) when no
// row matches. Inserts on a taken external message id return ErrDuplicate.
type Store interface {
	FindTicketByExternalID(ctx context.Context, externalID string) (*model.Ticket, error)
	FindTicketByConversationID(ctx context.Context, conversationID string) (*model.Ticket, error)
	FindCommentByExternalID(ctx context.Context, externalID string) (*model.Comment, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindOrCreateUser(ctx context.Context, email, name string) (uint, error)
	InsertTicket(ctx context.Context, t *model.Ticket) error
	InsertComment(ctx context.Context, c *model.Comment) error
	UpdateTicketStatus(ctx context.Context, ticketID uint, status string) error
	InsertQuarantine(ctx context.Context, q *model.QuarantineRecord) error
	InsertBatchRun(ctx context.Context, b *model.BatchRun) error
}

// Event is a domain event emitted after a successful write.
type Event struct {
	Type      string `json:"type"` // ticket_created | comment_added
	TicketID  uint   `json:"ticket_id"`
	CommentID uint   `json:"comment_id,omitempty"`
}

const (
	EventTicketCreated = "ticket_created"
	EventCommentAdded  = "comment_added"
)

// EventSink receives domain events, fire-and-forget.
type EventSink interface {
	Emit(ctx context.Context, ev Event) error
}

// AlertSink receives operational alerts, fire-and-forget. Used only when
// quarantine-on-error itself fails.
type AlertSink interface {
	Notify(ctx context.Context, source, message string, details map[string]string)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"support-mail-ingest-go/internal/model"
)

// Outcome is the single resolution of one processed message.
type Outcome string

const (
	OutcomeTicket      Outcome = "ticket"
	OutcomeComment     Outcome = "comment"
	OutcomeDiscarded   Outcome = "discarded"
	OutcomeQuarantined Outcome = "quarantined"
	OutcomeSkipped     Outcome = "skipped"
)

// Result describes what the pipeline did with one message.
type Result struct {
	Outcome             Outcome
	TicketID            uint
	CommentID           uint
	Reason              string
	MatchedBy           string
	EnrichmentAttempted bool
	EnrichmentSucceeded bool
}

// Config carries the pipeline's own settings; collaborator settings live
// with the collaborators.
type Config struct {
	// InternalDomain is the organization's own email domain. New threads
	// from it are skipped; replies from it become outgoing-reply comments.
	InternalDomain string
}

// Pipeline resolves one inbound message to exactly one outcome: a new
// ticket, a comment on an existing ticket, a discard, a quarantine record,
// or a duplicate skip. Stages run strictly in order and the cheap checks
// run before anything that costs money or latency.
type Pipeline struct {
	mailbox    MailboxClient
	classifier Classifier
	enricher   *Enricher
	store      Store
	events     EventSink
	rules      *HardRuleFilter
	resolver   *ThreadResolver
	cfg        Config
}

// New creates a pipeline over the given collaborators.
func New(mailbox MailboxClient, classifier Classifier, enricher *Enricher, store Store, events EventSink, rules *HardRuleFilter, cfg Config) *Pipeline {
	if rules == nil {
		rules = NewHardRuleFilter(nil)
	}
	return &Pipeline{
		mailbox:    mailbox,
		classifier: classifier,
		enricher:   enricher,
		store:      store,
		events:     events,
		rules:      rules,
		resolver:   NewThreadResolver(store),
		cfg:        cfg,
	}
}

// Process runs the full per-message pipeline. A returned error is a hard
// error: the message was not resolved and the caller owns recovery.
func (p *Pipeline) Process(ctx context.Context, msg InboundMessage) (Result, error) {
	// Validator: unusable upstream artifacts are skipped, not failed.
	if msg.ID == "" || msg.Sender.Address == "" {
		logrus.Warnf("Skipping structurally incomplete message (id=%q, sender=%q)", msg.ID, msg.Sender.Address)
		if msg.ID != "" {
			p.markRead(ctx, msg.ID)
		}
		return Result{Outcome: OutcomeSkipped, Reason: "missing id or sender"}, nil
	}

	// Hard rules: zero-cost rejection of mechanically-identifiable
	// automated mail, before any classifier call.
	if rule, ok := p.rules.Match(&msg); ok {
		logrus.Infof("Message %s discarded by hard rule %s", msg.ID, rule.Name)
		p.markRead(ctx, msg.ID)
		return Result{Outcome: OutcomeDiscarded, Reason: "hard rule: " + rule.Name}, nil
	}

	// Deduplication: must run before any external AI or lookup call.
	if dup, err := p.isDuplicate(ctx, &msg); err != nil {
		return Result{}, err
	} else if dup {
		logrus.Debugf("Message %s already processed, skipping", msg.ID)
		p.markRead(ctx, msg.ID)
		return Result{Outcome: OutcomeSkipped, Reason: "duplicate"}, nil
	}

	match, err := p.resolver.Resolve(ctx, &msg)
	if err != nil {
		return Result{}, err
	}
	if match != nil {
		return p.processReply(ctx, msg, match)
	}
	return p.processNewThread(ctx, msg)
}

// isDuplicate checks the persisted state for the message's internet id. A
// missing id degrades gracefully: duplicate detection is skipped, nothing
// else is.
func (p *Pipeline) isDuplicate(ctx context.Context, msg *InboundMessage) (bool, error) {
	if msg.InternetMessageID == "" {
		logrus.Infof("Message %s has no internet message id, duplicate check skipped", msg.ID)
		return false, nil
	}
	ticket, err := p.store.FindTicketByExternalID(ctx, msg.InternetMessageID)
	if err != nil {
		return false, fmt.Errorf("dedup ticket lookup: %w", err)
	}
	if ticket != nil {
		return true, nil
	}
	comment, err := p.store.FindCommentByExternalID(ctx, msg.InternetMessageID)
	if err != nil {
		return false, fmt.Errorf("dedup comment lookup: %w", err)
	}
	return comment != nil, nil
}

// processReply persists the message as a comment on the matched ticket and
// reopens the ticket when the customer replied to a resolved one.
func (p *Pipeline) processReply(ctx context.Context, msg InboundMessage, match *ThreadMatch) (Result, error) {
	isInternal := p.isInternalSender(&msg)

	body := p.fetchFullBody(ctx, &msg)

	comment := &model.Comment{
		TicketID:        match.Ticket.ID,
		CommentText:     body,
		IsFromCustomer:  !isInternal,
		IsOutgoingReply: isInternal,
	}
	if msg.InternetMessageID != "" {
		id := msg.InternetMessageID
		comment.ExternalMessageID = &id
	}

	if err := p.store.InsertComment(ctx, comment); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost the race against a concurrent insert of the same
			// message; the row exists, nothing to do.
			logrus.Infof("Comment for message %s already exists, skipping", msg.ID)
			p.markRead(ctx, msg.ID)
			return Result{Outcome: OutcomeSkipped, Reason: "duplicate comment"}, nil
		}
		return Result{}, fmt.Errorf("insert comment: %w", err)
	}

	// A customer reply always reopens a resolved ticket.
	if match.Ticket.Status == model.TicketStatusPendingCustomer || match.Ticket.Status == model.TicketStatusClosed {
		if err := p.store.UpdateTicketStatus(ctx, match.Ticket.ID, model.TicketStatusOpen); err != nil {
			logrus.Errorf("Failed to reopen ticket %d after reply: %v", match.Ticket.ID, err)
		}
	}

	p.emit(ctx, Event{Type: EventCommentAdded, TicketID: match.Ticket.ID, CommentID: comment.ID})
	p.markRead(ctx, msg.ID)

	logrus.Infof("Message %s added as comment %d on ticket %d (matched by %s)", msg.ID, comment.ID, match.Ticket.ID, match.MatchedBy)
	return Result{Outcome: OutcomeComment, TicketID: match.Ticket.ID, CommentID: comment.ID, MatchedBy: match.MatchedBy}, nil
}

// processNewThread runs the triage / decision / enrichment / persist chain
// for a message that is not a reply.
func (p *Pipeline) processNewThread(ctx context.Context, msg InboundMessage) (Result, error) {
	if p.isInternalSender(&msg) {
		logrus.Infof("Message %s is a new thread from the internal domain, skipping", msg.ID)
		p.markRead(ctx, msg.ID)
		return Result{Outcome: OutcomeSkipped, Reason: "internal sender"}, nil
	}

	triage, err := p.classifier.Triage(ctx, msg.Subject, msg.BodyPreview, msg.Sender.Address)
	if err != nil || triage == nil {
		if err != nil {
			logrus.Errorf("Triage failed for message %s: %v", msg.ID, err)
		}
		return p.quarantine(ctx, msg, false, "triage failed")
	}

	decision, reason := Decide(triage)
	switch decision {
	case DecisionDiscard:
		logrus.Infof("Message %s classified %s (%s), discarding", msg.ID, triage.Classification, triage.Confidence)
		p.markRead(ctx, msg.ID)
		return Result{Outcome: OutcomeDiscarded, Reason: reason}, nil
	case DecisionQuarantine:
		return p.quarantine(ctx, msg, true, reason)
	}

	msg.FullBody = p.fetchFullBody(ctx, &msg)

	enrichment := p.enricher.Enrich(ctx, &msg)

	// No ticket without a reporter: this is the one collaborator failure
	// that aborts the message.
	email := strings.ToLower(strings.TrimSpace(msg.Sender.Address))
	reporterID, err := p.store.FindOrCreateUser(ctx, email, msg.Sender.Name)
	if err != nil {
		return Result{}, fmt.Errorf("resolve reporter %s: %w", email, err)
	}

	suggested := p.enricher.SuggestAssignee(ctx, p.store, enrichment.Extraction.SuggestedRoleOrKeywords)

	ticket := p.buildTicket(&msg, &enrichment, reporterID, suggested)
	if err := p.store.InsertTicket(ctx, ticket); err != nil {
		if errors.Is(err, ErrDuplicate) {
			logrus.Infof("Ticket for message %s already exists, skipping", msg.ID)
			p.markRead(ctx, msg.ID)
			return Result{Outcome: OutcomeSkipped, Reason: "duplicate ticket"}, nil
		}
		return Result{}, fmt.Errorf("insert ticket: %w", err)
	}

	if enrichment.InternalNote != "" {
		note := &model.Comment{
			TicketID:       ticket.ID,
			CommentText:    enrichment.InternalNote,
			IsInternalNote: true,
		}
		if err := p.store.InsertComment(ctx, note); err != nil {
			logrus.Errorf("Failed to attach internal note to ticket %d: %v", ticket.ID, err)
		}
	}

	p.emit(ctx, Event{Type: EventTicketCreated, TicketID: ticket.ID})
	p.markRead(ctx, msg.ID)

	logrus.Infof("Message %s created ticket %d (status %s, priority %s)", msg.ID, ticket.ID, ticket.Status, ticket.Priority)
	return Result{
		Outcome:             OutcomeTicket,
		TicketID:            ticket.ID,
		EnrichmentAttempted: enrichment.LookupAttempted,
		EnrichmentSucceeded: enrichment.LookupSucceeded,
	}, nil
}

// buildTicket assembles the ticket row from the message and its enrichment.
func (p *Pipeline) buildTicket(msg *InboundMessage, enrichment *Enrichment, reporterID uint, suggested *uint) *model.Ticket {
	x := enrichment.Extraction

	description := msg.FullBody
	if description == "" {
		description = msg.BodyPreview
	}

	ticket := &model.Ticket{
		Title:               x.Summary,
		Description:         description,
		Status:              enrichment.Status,
		Priority:            x.PrioritySuggestion,
		Type:                x.TicketType,
		ReporterID:          reporterID,
		SuggestedAssigneeID: suggested,
		OrderNumber:         x.OrderNumber,
		TrackingNumber:      x.TrackingNumber,
		SenderEmail:         strings.ToLower(strings.TrimSpace(msg.Sender.Address)),
		SenderName:          msg.Sender.Name,
		Sentiment:           x.Sentiment,
		Summary:             x.LongSummary,
	}
	if msg.InternetMessageID != "" {
		id := msg.InternetMessageID
		ticket.ExternalMessageID = &id
	}
	if msg.ConversationID != "" {
		id := msg.ConversationID
		ticket.ConversationID = &id
	}
	return ticket
}

// Quarantine stores a snapshot of a message for human review. Exported via
// the runner for its hard-error recovery path.
func (p *Pipeline) Quarantine(ctx context.Context, msg InboundMessage, aiClassified bool, reason string) (Result, error) {
	return p.quarantine(ctx, msg, aiClassified, reason)
}

func (p *Pipeline) quarantine(ctx context.Context, msg InboundMessage, aiClassified bool, reason string) (Result, error) {
	record := &model.QuarantineRecord{
		OriginalMessageID: msg.ID,
		SenderEmail:       msg.Sender.Address,
		SenderName:        msg.Sender.Name,
		Subject:           msg.Subject,
		BodyPreview:       msg.BodyPreview,
		ReceivedAt:        msg.ReceivedAt,
		AIClassification:  aiClassified,
		AIReason:          reason,
		Status:            model.QuarantineStatusPendingReview,
	}
	if msg.InternetMessageID != "" {
		id := msg.InternetMessageID
		record.InternetMessageID = &id
	}

	if err := p.store.InsertQuarantine(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicate) {
			logrus.Infof("Message %s is already quarantined, skipping", msg.ID)
			p.markRead(ctx, msg.ID)
			return Result{Outcome: OutcomeSkipped, Reason: "already quarantined"}, nil
		}
		return Result{}, fmt.Errorf("insert quarantine: %w", err)
	}

	p.markRead(ctx, msg.ID)
	logrus.Infof("Message %s quarantined: %s", msg.ID, reason)
	return Result{Outcome: OutcomeQuarantined, Reason: reason}, nil
}

func (p *Pipeline) isInternalSender(msg *InboundMessage) bool {
	domain := msg.SenderDomain()
	internal := strings.ToLower(strings.TrimSpace(p.cfg.InternalDomain))
	if domain == "" || internal == "" {
		return false
	}
	return domain == internal || strings.HasSuffix(domain, "."+internal)
}

// fetchFullBody fetches the message with its body. Failures fall back to
// the preview; a degraded body never blocks the message.
func (p *Pipeline) fetchFullBody(ctx context.Context, msg *InboundMessage) string {
	full, err := p.mailbox.FetchByID(ctx, msg.ID)
	if err != nil || full == nil || full.FullBody == "" {
		if err != nil {
			logrus.Warnf("Failed to fetch full body for message %s: %v", msg.ID, err)
		}
		return msg.BodyPreview
	}
	return full.FullBody
}

func (p *Pipeline) markRead(ctx context.Context, messageID string) {
	if err := p.mailbox.MarkRead(ctx, messageID); err != nil {
		logrus.Warnf("Failed to mark message %s as read: %v", messageID, err)
	}
}

func (p *Pipeline) emit(ctx context.Context, ev Event) {
	if p.events == nil {
		return
	}
	if err := p.events.Emit(ctx, ev); err != nil {
		logrus.Warnf("Failed to emit %s event for ticket %d: %v", ev.Type, ev.TicketID, err)
	}
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"support-mail-ingest-go/internal/model"
)

// In-memory collaborator fakes shared by the pipeline tests.

type fakeMailbox struct {
	messages   []InboundMessage
	fullBodies map[string]string
	fetchErr   error
	markedRead []string
	markErr    error
}

func (m *fakeMailbox) FetchUnread(ctx context.Context, limit int) ([]InboundMessage, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.messages) > limit {
		return m.messages[:limit], nil
	}
	return m.messages, nil
}

func (m *fakeMailbox) MarkRead(ctx context.Context, messageID string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.markedRead = append(m.markedRead, messageID)
	return nil
}

func (m *fakeMailbox) FetchByID(ctx context.Context, messageID string) (*InboundMessage, error) {
	body, ok := m.fullBodies[messageID]
	if !ok {
		return nil, nil
	}
	return &InboundMessage{ID: messageID, FullBody: body}, nil
}

func (m *fakeMailbox) marked(messageID string) bool {
	for _, id := range m.markedRead {
		if id == messageID {
			return true
		}
	}
	return false
}

type fakeClassifier struct {
	result *TriageResult
	err    error
	calls  int
}

func (c *fakeClassifier) Triage(ctx context.Context, subject, bodyPreview, senderAddress string) (*TriageResult, error) {
	c.calls++
	return c.result, c.err
}

type fakeExtractor struct {
	result *ExtractionResult
	err    error
	calls  int
}

func (e *fakeExtractor) Extract(ctx context.Context, subject, fullBody string) (*ExtractionResult, error) {
	e.calls++
	return e.result, e.err
}

type fakeOrders struct {
	result *OrderInfo
	err    error
	calls  int
}

func (o *fakeOrders) Lookup(ctx context.Context, orderNumber string) (*OrderInfo, error) {
	o.calls++
	return o.result, o.err
}

type statusUpdate struct {
	ticketID uint
	status   string
}

type memStore struct {
	nextID     uint
	tickets    []*model.Ticket
	comments   []*model.Comment
	quarantine []*model.QuarantineRecord
	batches    []*model.BatchRun
	users      map[string]uint
	updates    []statusUpdate

	failQuarantine bool
	failUser       bool
	failComment    error
	failTicket     error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]uint)}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) FindTicketByExternalID(ctx context.Context, externalID string) (*model.Ticket, error) {
	for _, t := range s.tickets {
		if t.ExternalMessageID != nil && *t.ExternalMessageID == externalID {
			return t, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindTicketByConversationID(ctx context.Context, conversationID string) (*model.Ticket, error) {
	for _, t := range s.tickets {
		if t.ConversationID != nil && *t.ConversationID == conversationID {
			return t, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindCommentByExternalID(ctx context.Context, externalID string) (*model.Comment, error) {
	for _, c := range s.comments {
		if c.ExternalMessageID != nil && *c.ExternalMessageID == externalID {
			return c, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if id, ok := s.users[strings.ToLower(email)]; ok {
		return &model.User{ID: id, Email: strings.ToLower(email)}, nil
	}
	return nil, nil
}

func (s *memStore) FindOrCreateUser(ctx context.Context, email, name string) (uint, error) {
	if s.failUser {
		return 0, fmt.Errorf("user directory unavailable")
	}
	email = strings.ToLower(email)
	if id, ok := s.users[email]; ok {
		return id, nil
	}
	id := s.id()
	s.users[email] = id
	return id, nil
}

func (s *memStore) addUser(email string) uint {
	id := s.id()
	s.users[strings.ToLower(email)] = id
	return id
}

func (s *memStore) InsertTicket(ctx context.Context, t *model.Ticket) error {
	if s.failTicket != nil {
		return s.failTicket
	}
	if t.ExternalMessageID != nil {
		if existing, _ := s.FindTicketByExternalID(ctx, *t.ExternalMessageID); existing != nil {
			return fmt.Errorf("insert ticket: %w", ErrDuplicate)
		}
	}
	t.ID = s.id()
	t.CreatedAt = time.Now()
	s.tickets = append(s.tickets, t)
	return nil
}

func (s *memStore) InsertComment(ctx context.Context, c *model.Comment) error {
	if s.failComment != nil {
		return s.failComment
	}
	if c.ExternalMessageID != nil {
		if existing, _ := s.FindCommentByExternalID(ctx, *c.ExternalMessageID); existing != nil {
			return fmt.Errorf("insert comment: %w", ErrDuplicate)
		}
	}
	c.ID = s.id()
	c.CreatedAt = time.Now()
	s.comments = append(s.comments, c)
	return nil
}

func (s *memStore) UpdateTicketStatus(ctx context.Context, ticketID uint, status string) error {
	for _, t := range s.tickets {
		if t.ID == ticketID {
			t.Status = status
			s.updates = append(s.updates, statusUpdate{ticketID: ticketID, status: status})
			return nil
		}
	}
	return fmt.Errorf("ticket %d not found", ticketID)
}

func (s *memStore) InsertQuarantine(ctx context.Context, q *model.QuarantineRecord) error {
	if s.failQuarantine {
		return fmt.Errorf("quarantine table unavailable")
	}
	for _, existing := range s.quarantine {
		if existing.OriginalMessageID == q.OriginalMessageID {
			return fmt.Errorf("insert quarantine: %w", ErrDuplicate)
		}
	}
	q.ID = s.id()
	s.quarantine = append(s.quarantine, q)
	return nil
}

func (s *memStore) InsertBatchRun(ctx context.Context, b *model.BatchRun) error {
	b.ID = s.id()
	s.batches = append(s.batches, b)
	return nil
}

type fakeEvents struct {
	events []Event
	err    error
}

func (e *fakeEvents) Emit(ctx context.Context, ev Event) error {
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, ev)
	return nil
}

type fakeAlerts struct {
	notifications []string
}

func (a *fakeAlerts) Notify(ctx context.Context, source, message string, details map[string]string) {
	a.notifications = append(a.notifications, source+": "+message)
}

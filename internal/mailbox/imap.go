package mailbox

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"support-mail-ingest-go/internal/config"
	"support-mail-ingest-go/internal/pipeline"
)

// IMAPClient implements the pipeline's MailboxClient over plain IMAP.
// Message ids are mailbox UIDs; there is no provider conversation id, so
// threading relies on the RFC 5322 headers alone.
type IMAPClient struct {
	client *client.Client
}

// NewIMAPClient connects and logs in to the configured IMAP server.
func NewIMAPClient(cfg *config.MailboxConfig) (*IMAPClient, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPClient{client: c}, nil
}

// FetchUnread searches INBOX for unseen messages and returns up to limit of
// them with headers and a body preview.
func (c *IMAPClient) FetchUnread(ctx context.Context, limit int) ([]pipeline.InboundMessage, error) {
	if _, err := c.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := c.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > limit {
		// Newest last in search results; keep the tail.
		uids = uids[len(uids)-limit:]
	}

	return c.fetchUIDs(uids, false)
}

// MarkRead sets the \Seen flag on the message.
func (c *IMAPClient) MarkRead(ctx context.Context, messageID string) error {
	uid, err := parseUID(messageID)
	if err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to mark message %s read: %w", messageID, err)
	}
	return nil
}

// FetchByID fetches one message with its full body.
func (c *IMAPClient) FetchByID(ctx context.Context, messageID string) (*pipeline.InboundMessage, error) {
	uid, err := parseUID(messageID)
	if err != nil {
		return nil, err
	}

	messages, err := c.fetchUIDs([]uint32{uid}, true)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}

// Close logs out of the IMAP session.
func (c *IMAPClient) Close() error {
	return c.client.Logout()
}

func (c *IMAPClient) fetchUIDs(uids []uint32, withBody bool) ([]pipeline.InboundMessage, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.client.UidFetch(seqset, items, ch)
	}()

	var messages []pipeline.InboundMessage
	for msg := range ch {
		inbound, err := c.toInbound(msg, section, withBody)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message uid %d: %v", msg.Uid, err)
			continue
		}
		messages = append(messages, inbound)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

func (c *IMAPClient) toInbound(msg *imap.Message, section *imap.BodySectionName, withBody bool) (pipeline.InboundMessage, error) {
	out := pipeline.InboundMessage{
		ID: strconv.FormatUint(uint64(msg.Uid), 10),
	}

	if msg.Envelope != nil {
		out.Subject = msg.Envelope.Subject
		out.ReceivedAt = msg.Envelope.Date
		out.InternetMessageID = ensureAngleBrackets(msg.Envelope.MessageId)
		if len(msg.Envelope.From) > 0 {
			from := msg.Envelope.From[0]
			out.Sender = pipeline.EmailAddress{Address: from.Address(), Name: from.PersonalName}
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return out, nil
	}

	entity, err := message.Read(r)
	if err != nil {
		return out, fmt.Errorf("failed to read message: %w", err)
	}

	fields := entity.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		out.Headers = append(out.Headers, pipeline.Header{Name: fields.Key(), Value: value})
	}

	body, err := readBody(entity)
	if err != nil {
		return out, err
	}
	if withBody {
		out.FullBody = body
	}
	if out.BodyPreview == "" {
		out.BodyPreview = preview(body)
	}

	return out, nil
}

// readBody walks a MIME entity preferring text/plain over text/html.
func readBody(entity *message.Entity) (string, error) {
	var plain, html string

	if mr := entity.MultipartReader(); mr != nil {
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("failed to read part: %w", err)
			}

			content, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("failed to read part body: %w", err)
			}

			contentType := p.Header.Get("Content-Type")
			if strings.Contains(contentType, "text/plain") && plain == "" {
				plain = string(content)
			} else if strings.Contains(contentType, "text/html") && html == "" {
				html = string(content)
			}
		}
	} else {
		content, err := io.ReadAll(entity.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read message body: %w", err)
		}

		contentType := entity.Header.Get("Content-Type")
		if strings.Contains(contentType, "text/html") {
			html = string(content)
		} else {
			plain = string(content)
		}
	}

	if plain != "" {
		return plain, nil
	}
	if html != "" {
		return htmlToText(html), nil
	}
	return "", nil
}

func preview(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 255 {
		body = body[:255]
	}
	return body
}

func parseUID(messageID string) (uint32, error) {
	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid IMAP message id %q: %w", messageID, err)
	}
	return uint32(uid), nil
}

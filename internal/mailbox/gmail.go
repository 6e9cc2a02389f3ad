package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"support-mail-ingest-go/internal/config"
	"support-mail-ingest-go/internal/pipeline"
)

// GmailClient implements the pipeline's MailboxClient over the Gmail API.
type GmailClient struct {
	service   *gmail.Service
	userEmail string
}

// NewGmailClient creates a Gmail-backed mailbox client.
func NewGmailClient(cfg *config.MailboxConfig) (*GmailClient, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailModifyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailClient{
		service:   service,
		userEmail: cfg.UserEmail,
	}, nil
}

// FetchUnread lists up to limit unread inbox messages, newest first, with
// headers and preview but without the full body.
func (c *GmailClient) FetchUnread(ctx context.Context, limit int) ([]pipeline.InboundMessage, error) {
	call := c.service.Users.Messages.List(c.userEmail).
		Q("is:unread in:inbox").
		MaxResults(int64(limit)).
		Context(ctx)

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var messages []pipeline.InboundMessage
	for _, ref := range response.Messages {
		full, err := c.service.Users.Messages.Get(c.userEmail, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", ref.Id, err)
		}
		messages = append(messages, c.toInbound(full, false))
	}

	return messages, nil
}

// MarkRead removes the UNREAD label. Best-effort by contract; the pipeline
// logs failures without escalating.
func (c *GmailClient) MarkRead(ctx context.Context, messageID string) error {
	_, err := c.service.Users.Messages.Modify(c.userEmail, messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s read: %w", messageID, err)
	}
	return nil
}

// FetchByID fetches one message with FullBody populated, or nil when the
// provider no longer has it.
func (c *GmailClient) FetchByID(ctx context.Context, messageID string) (*pipeline.InboundMessage, error) {
	full, err := c.service.Users.Messages.Get(c.userEmail, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	msg := c.toInbound(full, true)
	return &msg, nil
}

func (c *GmailClient) toInbound(msg *gmail.Message, withBody bool) pipeline.InboundMessage {
	out := pipeline.InboundMessage{
		ID:             msg.Id,
		ConversationID: msg.ThreadId,
		BodyPreview:    msg.Snippet,
		ReceivedAt:     time.UnixMilli(msg.InternalDate),
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			out.Headers = append(out.Headers, pipeline.Header{Name: h.Name, Value: h.Value})

			switch strings.ToLower(h.Name) {
			case "subject":
				out.Subject = h.Value
			case "from":
				out.Sender = parseAddress(h.Value)
			case "message-id":
				out.InternetMessageID = ensureAngleBrackets(h.Value)
			}
		}

		if withBody {
			out.FullBody = extractBody(msg.Payload)
		}
	}

	return out
}

// extractBody walks the MIME tree preferring text/plain; a lone HTML part
// is stripped down to text.
func extractBody(part *gmail.MessagePart) string {
	plain, html := collectParts(part)
	if plain != "" {
		return plain
	}
	if html != "" {
		return htmlToText(html)
	}
	return ""
}

func collectParts(part *gmail.MessagePart) (plain, html string) {
	if part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			switch part.MimeType {
			case "text/plain":
				plain = string(data)
			case "text/html":
				html = string(data)
			}
		}
	}

	for _, sub := range part.Parts {
		p, h := collectParts(sub)
		if plain == "" {
			plain = p
		}
		if html == "" {
			html = h
		}
	}
	return plain, html
}

func parseAddress(raw string) pipeline.EmailAddress {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return pipeline.EmailAddress{Address: strings.TrimSpace(raw)}
	}
	return pipeline.EmailAddress{Address: addr.Address, Name: addr.Name}
}

func ensureAngleBrackets(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if !strings.HasPrefix(id, "<") {
		id = "<" + id
	}
	if !strings.HasSuffix(id, ">") {
		id = id + ">"
	}
	return id
}

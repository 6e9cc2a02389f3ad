package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureSender struct {
	sent []string
}

func (c *captureSender) Send(ctx context.Context, source, message string, details map[string]string) {
	c.sent = append(c.sent, source+": "+message)
}

func TestNotifierSuppressesWithinWindow(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, 15*time.Minute)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	n.Notify(context.Background(), "ingest", "quarantine insert failed", nil)
	n.Notify(context.Background(), "ingest", "quarantine insert failed", nil)
	assert.Len(t, sender.sent, 1)

	// A different message is its own key.
	n.Notify(context.Background(), "ingest", "mailbox unreachable", nil)
	assert.Len(t, sender.sent, 2)

	// Same message from a different source also goes out.
	n.Notify(context.Background(), "scheduler", "quarantine insert failed", nil)
	assert.Len(t, sender.sent, 3)

	// Past the window the original fires again.
	clock = clock.Add(16 * time.Minute)
	n.Notify(context.Background(), "ingest", "quarantine insert failed", nil)
	assert.Len(t, sender.sent, 4)
}

func TestNotifierZeroWindowDisablesSuppression(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, 0)

	for i := 0; i < 3; i++ {
		n.Notify(context.Background(), "ingest", "same message", nil)
	}
	assert.Len(t, sender.sent, 3)
}

func TestNotifierReset(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, time.Hour)

	n.Notify(context.Background(), "ingest", "m", nil)
	n.Notify(context.Background(), "ingest", "m", nil)
	assert.Len(t, sender.sent, 1)

	n.Reset()
	n.Notify(context.Background(), "ingest", "m", nil)
	assert.Len(t, sender.sent, 2)
}

func TestNotifierPrunesExpiredEntries(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(sender, time.Minute)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return clock }

	for i := 0; i < 10; i++ {
		n.Notify(context.Background(), "ingest", string(rune('a'+i)), nil)
	}
	clock = clock.Add(2 * time.Minute)
	n.Notify(context.Background(), "ingest", "fresh", nil)

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Len(t, n.lastSent, 1)
}

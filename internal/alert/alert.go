// Package alert delivers operational alerts with time-windowed
// de-duplication, so a persistently failing collaborator raises one alert
// per window instead of one per message.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender delivers one alert. The default sender logs at error level; a
// pager or chat webhook sender can be swapped in at the composition root.
type Sender interface {
	Send(ctx context.Context, source, message string, details map[string]string)
}

// LogSender logs alerts via logrus.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, source, message string, details map[string]string) {
	logrus.WithFields(logrus.Fields{"source": source, "details": details}).Errorf("ALERT: %s", message)
}

// Notifier implements the pipeline's AlertSink with a bounded suppression
// window keyed by (source, message). State is per-instance: tests get a
// fresh notifier, nothing is process-global.
type Notifier struct {
	sender Sender
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewNotifier creates a notifier. window <= 0 disables suppression.
func NewNotifier(sender Sender, window time.Duration) *Notifier {
	if sender == nil {
		sender = LogSender{}
	}
	return &Notifier{
		sender:   sender,
		window:   window,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// Notify delivers the alert unless an identical one went out within the
// suppression window.
func (n *Notifier) Notify(ctx context.Context, source, message string, details map[string]string) {
	if n.shouldSend(source, message) {
		n.sender.Send(ctx, source, message, details)
	}
}

func (n *Notifier) shouldSend(source, message string) bool {
	if n.window <= 0 {
		return true
	}

	key := source + "\x00" + message
	now := n.now()

	n.mu.Lock()
	defer n.mu.Unlock()

	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.window {
		return false
	}
	n.lastSent[key] = now

	// Drop expired entries so the map stays bounded by the distinct
	// alerts seen within one window.
	for k, t := range n.lastSent {
		if now.Sub(t) >= n.window {
			delete(n.lastSent, k)
		}
	}
	return true
}

// Reset clears the suppression state.
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastSent = make(map[string]time.Time)
}

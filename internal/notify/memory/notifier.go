// Package memnotify captures notifications in memory for tests.
package memnotify

import (
	"context"
	"sync"
)

// Message is one captured notification.
type Message struct {
	Owner string
	Text  string
}

// Notifier records every send.
type Notifier struct {
	mu   sync.Mutex
	sent []Message
	// Fail makes every Send return this error when set.
	Fail error
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Send records the message.
func (n *Notifier) Send(_ context.Context, owner, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Fail != nil {
		return n.Fail
	}
	n.sent = append(n.sent, Message{Owner: owner, Text: text})
	return nil
}

// Messages returns a copy of everything sent so far.
func (n *Notifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.sent))
	copy(out, n.sent)
	return out
}

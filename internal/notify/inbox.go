package notify

import (
	"context"
	"sync"
	"time"
)

// DefaultInboxSize is how many undelivered messages a user keeps.
const DefaultInboxSize = 100

// Message is one queued notification.
type Message struct {
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Inbox buffers messages per user until they are drained. When a user's
// queue is full the oldest message is dropped.
type Inbox struct {
	size int
	now  func() time.Time

	mu      sync.Mutex
	queues  map[string][]Message
	dropped map[string]int
}

// NewInbox keeps at most size messages per user.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{
		size:    size,
		now:     time.Now,
		queues:  make(map[string][]Message),
		dropped: make(map[string]int),
	}
}

func (b *Inbox) Deliver(_ context.Context, userKey, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := append(b.queues[userKey], Message{Text: text, SentAt: b.now()})
	if over := len(q) - b.size; over > 0 {
		q = q[over:]
		b.dropped[userKey] += over
	}
	b.queues[userKey] = q
	return nil
}

// Drain returns and clears userKey's queued messages, oldest first, along
// with the number of messages dropped since the last drain.
func (b *Inbox) Drain(userKey string) ([]Message, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queues[userKey]
	dropped := b.dropped[userKey]
	delete(b.queues, userKey)
	delete(b.dropped, userKey)
	return q, dropped
}

// Pending returns the number of queued messages for userKey.
func (b *Inbox) Pending(userKey string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[userKey])
}

// Package voice holds heard speech for the brain to collect. The body
// only transcribes; it never answers on its own, so transcripts sit in
// an inbox until the brain drains them over the bridge.
package voice

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds the inbox. When full, the oldest undelivered
// transcript is dropped; speech the brain never collected is worth
// less than speech it is about to.
const DefaultCapacity = 32

// Message is one heard utterance.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	HeardAt   time.Time `json:"heard_at"`
	Delivered bool      `json:"delivered"`
}

// Inbox is a bounded queue of transcripts.
type Inbox struct {
	mu       sync.Mutex
	messages []Message
	capacity int
	dropped  int
}

// NewInbox creates an inbox with the given capacity; 0 means
// DefaultCapacity.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Inbox{capacity: capacity}
}

// Add stores a transcript and returns its message. Empty text is
// ignored and returns a zero Message.
func (in *Inbox) Add(text string) Message {
	if text == "" {
		return Message{}
	}

	msg := Message{
		ID:      uuid.NewString(),
		Text:    text,
		HeardAt: time.Now(),
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	in.messages = append(in.messages, msg)
	if len(in.messages) > in.capacity {
		// Only count evictions the brain never got to hear.
		if !in.messages[0].Delivered {
			in.dropped++
		}
		in.messages = in.messages[1:]
	}
	return msg
}

// Drain returns all undelivered transcripts, oldest first, and marks
// them delivered.
func (in *Inbox) Drain() []Message {
	in.mu.Lock()
	defer in.mu.Unlock()

	var out []Message
	for i := range in.messages {
		if !in.messages[i].Delivered {
			out = append(out, in.messages[i])
			in.messages[i].Delivered = true
		}
	}
	return out
}

// Pending returns the number of undelivered transcripts.
func (in *Inbox) Pending() int {
	in.mu.Lock()
	defer in.mu.Unlock()

	n := 0
	for i := range in.messages {
		if !in.messages[i].Delivered {
			n++
		}
	}
	return n
}

// Recent returns up to limit transcripts, newest last, delivered or
// not.
func (in *Inbox) Recent(limit int) []Message {
	in.mu.Lock()
	defer in.mu.Unlock()

	msgs := in.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message(nil), msgs...)
}

// Dropped returns how many transcripts were evicted unheard.
func (in *Inbox) Dropped() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.dropped
}

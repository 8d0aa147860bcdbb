// Package notify delivers product change notifications to admins.
package notify

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Message is one notification addressed to a single recipient.
type Message struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Actor     string    `json:"user"`
	Change    string    `json:"change"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage builds a message with a fresh sortable id.
func NewMessage(recipient, actor, change string) Message {
	return Message{
		ID:        ulid.Make().String(),
		Recipient: recipient,
		Actor:     actor,
		Change:    change,
		CreatedAt: time.Now().UTC(),
	}
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier accepts notifications without blocking the caller.
type Notifier interface {
	Notify(actor, change string, recipients []string)
}

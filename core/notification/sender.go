package notification

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNoSender = errors.New("no sender configured for this delivery method")

// Message is what a Sender delivers.
type Message struct {
	NotificationID string
	Method         Method
	To             string
	ToName         string
	Subject        string
	Body           string
}

// Sender delivers messages on one channel (email, SMS, WhatsApp).
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Senders registers a Sender per Method.
type Senders map[Method]Sender

func (s Senders) Send(ctx context.Context, msg Message) error {
	sender, ok := s[msg.Method]
	if !ok || sender == nil {
		return ErrNoSender
	}
	return sender.Send(ctx, msg)
}

func (n Notification) message() Message {
	return Message{
		NotificationID: n.ID,
		Method:         n.Method,
		To:             n.Recipient,
		ToName:         n.RecipientName,
		Subject:        n.Subject,
		Body:           n.Message,
	}
}

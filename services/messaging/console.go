package messagingsvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/notification"
)

// ConsoleSender logs SMS and WhatsApp messages instead of sending them.
type ConsoleSender struct {
	logger core.Logger

	mu   sync.Mutex
	sent []notification.Message
}

var _ notification.Sender = (*ConsoleSender)(nil) // interface compliance check

// NewConsoleSender returns a sender that logs messages with `logger`; a nil logger disables output.
func NewConsoleSender(logger core.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) Send(_ context.Context, msg notification.Message) error {
	if s.logger != nil {
		s.logger.Info(fmt.Sprintf("[%s] To: %s\n%s\n\n%s", msg.Method, msg.To, msg.Subject, msg.Body))
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// SentMessages returns a copy of every message sent so far.
func (s *ConsoleSender) SentMessages() []notification.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]notification.Message, len(s.sent))
	copy(msgs, s.sent)
	return msgs
}

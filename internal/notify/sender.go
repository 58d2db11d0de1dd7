// Package notify delivers OTP messages to phones.
package notify

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// LogSender writes messages to the log instead of delivering them. Message
// bodies carry OTP codes, so they are only logged at debug level; the sender
// is for development and must not be used in production.
type LogSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, message string) error {
	entry := s.logger.WithField("to", NormalizePhone(to))
	entry.Info("SMS dispatched (logged for development)")
	entry.WithField("message", message).Debug("SMS body")
	return nil
}

// NormalizePhone shapes a phone number for international delivery. Numbers
// already prefixed with + are kept, 256... gains a leading +, and a leading
// 0 is replaced by the Ugandan country code. Anything else gets +256
// prepended.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	switch {
	case phone == "":
		return ""
	case strings.HasPrefix(phone, "+"):
		return phone
	case strings.HasPrefix(phone, "256"):
		return "+" + phone
	case strings.HasPrefix(phone, "0"):
		return "+256" + phone[1:]
	default:
		return "+256" + phone
	}
}

package notify

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the structured log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "notify.log")}
}

// Send logs msg.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("product change notification",
		"id", msg.ID,
		"recipient", msg.Recipient,
		"user", msg.Actor,
		"change", msg.Change,
	)
	return nil
}

package notification

import (
	"context"
	"log/slog"
)

// dummySMSSender logs instead of sending. No SMS provider is wired yet.
type dummySMSSender struct {
	log *slog.Logger
}

// NewDummySMSSender creates a new dummy SMS sender.
func NewDummySMSSender(log *slog.Logger) SMSSender {
	return &dummySMSSender{log: log}
}

func (s *dummySMSSender) Send(ctx context.Context, to, message string) error {
	s.log.Info("DUMMY SEND: SMS would be sent", "to", maskPhone(to))
	s.log.Debug("DUMMY SEND: SMS body", "message", message)
	return nil
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return "****" + p[len(p)-4:]
}

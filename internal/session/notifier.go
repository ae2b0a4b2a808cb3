package session

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers a best-effort message to an account holder.
type Notifier interface {
	Notify(ctx context.Context, address, subject, body string) error
}

// LogNotifier records notifications in the application log instead of sending them.
type LogNotifier struct {
	Logger *zap.SugaredLogger
}

func (n LogNotifier) Notify(_ context.Context, address, subject, body string) error {
	if n.Logger != nil {
		n.Logger.Infow("notification", "to", address, "subject", subject, "bytes", len(body))
	}
	return nil
}

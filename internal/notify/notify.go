// Package notify delivers fire-and-forget run notifications.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier delivers a one-shot notification. Delivery failures are never
// surfaced to the caller.
type Notifier interface {
	Notify(title, body string)
}

// Desktop shows OS desktop notifications.
type Desktop struct {
	logger *zap.Logger
}

// NewDesktop creates a desktop notifier.
func NewDesktop(logger *zap.Logger) *Desktop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desktop{logger: logger.Named("notify")}
}

// Notify shows a desktop notification; failures are logged and dropped.
func (d *Desktop) Notify(title, body string) {
	if err := beeep.Notify(title, body, ""); err != nil {
		d.logger.Warn("notification delivery failed", zap.String("title", title), zap.Error(err))
	}
}

// Log writes notifications to the logger only; used when desktop delivery is
// unavailable (headless servers, tests).
type Log struct {
	logger *zap.Logger
}

// NewLog creates a log-only notifier.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("notify")}
}

// Notify logs the notification.
func (l *Log) Notify(title, body string) {
	l.logger.Info("notification", zap.String("title", title), zap.String("body", body))
}

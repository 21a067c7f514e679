// Package notify delivers workflow notifications (invites, join requests,
// decisions). Delivery is fire-and-forget from the caller's point of view.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes notifications to the log. It stands in for SMTP when no
// mail server is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "notification", "to", to, "subject", subject, "body", body)
	return nil
}

const sendTimeout = 30 * time.Second

// Dispatcher sends in the background and logs failures.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

func (d *Dispatcher) Notify(to, subject, body string) {
	if to == "" {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := d.sender.Send(ctx, to, subject, body); err != nil {
			d.logger.Error("notification failed", "to", to, "subject", subject, "error", err)
		}
	}()
}

// Wait blocks until every pending notification has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/productcatalog/catalog/internal/metrics"
)

// DefaultTimeout bounds a whole notification fan-out.
const DefaultTimeout = 10 * time.Second

// Dispatcher sends notifications in the background.
// Errors are logged and counted, never returned to the caller.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder

	// mu orders the closed check and wg.Add in Notify against Shutdown.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher around sender.
func NewDispatcher(sender Sender, timeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		logger:  logger.With("component", "notify.dispatcher"),
		metrics: recorder,
	}
}

// Notify sends change by actor to every recipient and returns immediately.
func (d *Dispatcher) Notify(actor, change string, recipients []string) {
	if len(recipients) == 0 {
		d.metrics.IncNotification(metrics.NotificationSkipped)
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher closed, dropping notification", "change", change)
		d.metrics.IncNotification(metrics.NotificationSkipped)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		for _, recipient := range recipients {
			msg := NewMessage(recipient, actor, change)
			start := time.Now()
			err := d.sender.Send(ctx, msg)
			d.metrics.ObserveNotificationDuration(time.Since(start))

			if err != nil {
				d.logger.Warn("notification delivery failed",
					"id", msg.ID,
					"recipient", recipient,
					"change", change,
					"error", err,
				)
				d.metrics.IncNotification(metrics.NotificationFailed)
				continue
			}

			d.logger.Debug("notification delivered",
				"id", msg.ID,
				"recipient", recipient,
			)
			d.metrics.IncNotification(metrics.NotificationSent)
		}
	}()
}

// Shutdown stops accepting notifications and waits for in-flight deliveries.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncProductHit() {}
func (n *NoopRecorder) IncProductCreated() {}
func (n *NoopRecorder) IncProductUpdated() {}
func (n *NoopRecorder) IncProductDeleted() {}
func (n *NoopRecorder) IncUserCreated() {}
func (n *NoopRecorder) IncUserUpdated() {}
func (n *NoopRecorder) IncUserDeleted() {}
func (n *NoopRecorder) IncTokenIssued() {}
func (n *NoopRecorder) IncAuthFailure(reason string) {}
func (n *NoopRecorder) IncRateLimited() {}
func (n *NoopRecorder) IncNotification(status string) {}
func (n *NoopRecorder) ObserveNotificationDuration(time.Duration) {}

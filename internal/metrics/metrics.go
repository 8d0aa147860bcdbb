// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Auth failure reasons.
const (
	ReasonMissingToken   = "missing_token"
	ReasonInvalidToken   = "invalid_token"
	ReasonUnknownSubject = "unknown_subject"
	ReasonBadCredentials = "bad_credentials"
)

// Notification delivery outcomes.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Catalog metrics
	IncProductHit()
	IncProductCreated()
	IncProductUpdated()
	IncProductDeleted()

	// User metrics
	IncUserCreated()
	IncUserUpdated()
	IncUserDeleted()

	// Auth metrics
	IncTokenIssued()
	IncAuthFailure(reason string)
	IncRateLimited()

	// Notification metrics
	IncNotification(status string)
	ObserveNotificationDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

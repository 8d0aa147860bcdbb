package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ProductHits     uint64
	ProductsCreated uint64
	ProductsUpdated uint64
	ProductsDeleted uint64

	UsersCreated uint64
	UsersUpdated uint64
	UsersDeleted uint64

	TokensIssued uint64
	AuthFailures map[string]uint64
	RateLimited  uint64

	Notifications               map[string]uint64
	NotificationDurationCount   uint64
	NotificationDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory. It backs /metrics and tests.
type InMemoryRecorder struct {
	productHits     uint64
	productsCreated uint64
	productsUpdated uint64
	productsDeleted uint64

	usersCreated uint64
	usersUpdated uint64
	usersDeleted uint64

	tokensIssued uint64
	rateLimited  uint64

	notificationDurationCount   uint64
	notificationDurationTotalNs int64

	mu            sync.Mutex
	authFailures  map[string]uint64
	notifications map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		authFailures:  make(map[string]uint64),
		notifications: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	authFailures := make(map[string]uint64, len(m.authFailures))
	for k, v := range m.authFailures {
		authFailures[k] = v
	}
	notifications := make(map[string]uint64, len(m.notifications))
	for k, v := range m.notifications {
		notifications[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		ProductHits:                 atomic.LoadUint64(&m.productHits),
		ProductsCreated:             atomic.LoadUint64(&m.productsCreated),
		ProductsUpdated:             atomic.LoadUint64(&m.productsUpdated),
		ProductsDeleted:             atomic.LoadUint64(&m.productsDeleted),
		UsersCreated:                atomic.LoadUint64(&m.usersCreated),
		UsersUpdated:                atomic.LoadUint64(&m.usersUpdated),
		UsersDeleted:                atomic.LoadUint64(&m.usersDeleted),
		TokensIssued:                atomic.LoadUint64(&m.tokensIssued),
		AuthFailures:                authFailures,
		RateLimited:                 atomic.LoadUint64(&m.rateLimited),
		Notifications:               notifications,
		NotificationDurationCount:   atomic.LoadUint64(&m.notificationDurationCount),
		NotificationDurationTotalNs: atomic.LoadInt64(&m.notificationDurationTotalNs),
	}
}

// IncProductHit increments the anonymous product view counter.
func (m *InMemoryRecorder) IncProductHit() {
	atomic.AddUint64(&m.productHits, 1)
}

// IncProductCreated increments product created counter.
func (m *InMemoryRecorder) IncProductCreated() {
	atomic.AddUint64(&m.productsCreated, 1)
}

// IncProductUpdated increments product updated counter.
func (m *InMemoryRecorder) IncProductUpdated() {
	atomic.AddUint64(&m.productsUpdated, 1)
}

// IncProductDeleted increments product deleted counter.
func (m *InMemoryRecorder) IncProductDeleted() {
	atomic.AddUint64(&m.productsDeleted, 1)
}

// IncUserCreated increments user created counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncUserUpdated increments user updated counter.
func (m *InMemoryRecorder) IncUserUpdated() {
	atomic.AddUint64(&m.usersUpdated, 1)
}

// IncUserDeleted increments user deleted counter.
func (m *InMemoryRecorder) IncUserDeleted() {
	atomic.AddUint64(&m.usersDeleted, 1)
}

// IncTokenIssued increments issued token counter.
func (m *InMemoryRecorder) IncTokenIssued() {
	atomic.AddUint64(&m.tokensIssued, 1)
}

// IncAuthFailure counts a rejected request by reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.mu.Lock()
	m.authFailures[reason]++
	m.mu.Unlock()
}

// IncRateLimited counts a throttled request.
func (m *InMemoryRecorder) IncRateLimited() {
	atomic.AddUint64(&m.rateLimited, 1)
}

// IncNotification counts a notification delivery by outcome.
func (m *InMemoryRecorder) IncNotification(status string) {
	m.mu.Lock()
	m.notifications[status]++
	m.mu.Unlock()
}

// ObserveNotificationDuration records how long one delivery took.
func (m *InMemoryRecorder) ObserveNotificationDuration(duration time.Duration) {
	atomic.AddUint64(&m.notificationDurationCount, 1)
	atomic.AddInt64(&m.notificationDurationTotalNs, duration.Nanoseconds())
}

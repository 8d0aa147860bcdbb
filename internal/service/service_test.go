package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/productcatalog/catalog/internal/auth"
	"github.com/productcatalog/catalog/internal/metrics"
	"github.com/productcatalog/catalog/internal/testutil"
)

type notification struct {
	actor      string
	change     string
	recipients []string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) Notify(actor, change string, recipients []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{actor: actor, change: change, recipients: recipients})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.calls...)
}

type fixture struct {
	store    *testutil.MemStore
	notifier *recordingNotifier
	recorder *metrics.InMemoryRecorder
	users    *UserService
	products *ProductService
	auth     *AuthService
	tokens   *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher, err := auth.NewPasswordHasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewMemStore()
	notifier := &recordingNotifier{}
	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenManager("service-test-secret", 30*time.Minute)

	return &fixture{
		store:    store,
		notifier: notifier,
		recorder: recorder,
		users:    NewUserService(store, hasher, logger, recorder),
		products: NewProductService(store, store, notifier, logger, recorder),
		auth:     NewAuthService(store, hasher, tokens, logger, recorder),
		tokens:   tokens,
	}
}

func ptr[T any](v T) *T { return &v }

type failingDirectory struct{}

func (failingDirectory) ListAdminEmails(context.Context, int64) ([]string, error) {
	return nil, errors.New("db down")
}

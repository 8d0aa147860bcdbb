package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/productcatalog/catalog/internal/auth"
	"github.com/productcatalog/catalog/internal/cache"
	"github.com/productcatalog/catalog/internal/metrics"
	"github.com/productcatalog/catalog/internal/service"
	"github.com/productcatalog/catalog/internal/testutil"
)

type sentNotification struct {
	actor      string
	change     string
	recipients []string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(actor, change string, recipients []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{actor: actor, change: change, recipients: recipients})
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

type testAPI struct {
	t        *testing.T
	router   http.Handler
	store    *testutil.MemStore
	notifier *recordingNotifier
	recorder *metrics.InMemoryRecorder
	users    *service.UserService
}

const testPassword = "correct horse battery staple"

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	hasher, err := auth.NewPasswordHasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewMemStore()
	notifier := &recordingNotifier{}
	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenManager("router-test-secret-0123456789", 30*time.Minute)

	users := service.NewUserService(store, hasher, logger, recorder)
	router := NewRouter(RouterConfig{
		Logger:      logger,
		Users:       users,
		Products:    service.NewProductService(store, store, notifier, logger, recorder),
		Auth:        service.NewAuthService(store, hasher, tokens, logger, recorder),
		Metrics:     recorder,
		Snapshotter: recorder,
		Health:      map[string]HealthChecker{"postgres": store},
	})

	return &testAPI{t: t, router: router, store: store, notifier: notifier, recorder: recorder, users: users}
}

func (a *testAPI) createUser(email string, isAdmin bool) {
	a.t.Helper()
	_, err := a.users.Create(context.Background(), service.CreateUserInput{
		Email:    email,
		Password: testPassword,
		IsAdmin:  &isAdmin,
	})
	if err != nil {
		a.t.Fatalf("create user %s: %v", email, err)
	}
}

func (a *testAPI) login(email string) string {
	a.t.Helper()
	rec := a.postForm("/token", url.Values{"username": {email}, "password": {testPassword}})
	if rec.Code != http.StatusOK {
		a.t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(a.t, rec, &resp)
	if resp.TokenType != "bearer" || resp.AccessToken == "" {
		a.t.Fatalf("unexpected token response %+v", resp)
	}
	return resp.AccessToken
}

func (a *testAPI) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["code"] != code {
		t.Fatalf("expected code %s, got %v", code, body)
	}
}

type productBody struct {
	ID          int64       `json:"id"`
	SKU         string      `json:"sku"`
	Name        string      `json:"name"`
	Brand       string      `json:"brand"`
	Price       json.Number `json:"price"`
	Description *string     `json:"description"`
}

func (a *testAPI) createProduct(token, sku string) productBody {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/products/", token, map[string]any{
		"sku":         sku,
		"name":        "Rugged Boot",
		"brand":       "Acme",
		"price":       49.9,
		"description": "Waterproof leather boot",
	})
	expectStatus(a.t, rec, http.StatusOK)
	var p productBody
	decodeBody(a.t, rec, &p)
	return p
}

func (a *testAPI) hits(token string, id int64) int64 {
	a.t.Helper()
	rec := a.do(http.MethodGet, fmt.Sprintf("/products/%d/hits", id), token, nil)
	expectStatus(a.t, rec, http.StatusOK)
	var resp struct {
		Hits int64 `json:"hits"`
	}
	decodeBody(a.t, rec, &resp)
	return resp.Hits
}

func TestRouter_TokenFlow(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("alice@example.com", true)

	token := api.login("alice@example.com")

	rec := api.do(http.MethodGet, "/users/", token, nil)
	expectStatus(t, rec, http.StatusOK)

	var users []map[string]any
	decodeBody(t, rec, &users)
	if len(users) != 1 || users[0]["email"] != "alice@example.com" {
		t.Fatalf("unexpected users %v", users)
	}
	for _, forbidden := range []string{"password", "password_hash", "hashed_password"} {
		if _, ok := users[0][forbidden]; ok {
			t.Fatalf("user output leaks %s", forbidden)
		}
	}
}

func TestRouter_TokenRejections(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("alice@example.com", true)

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"wrong password", url.Values{"username": {"alice@example.com"}, "password": {"nope"}}, http.StatusUnauthorized},
		{"unknown user", url.Values{"username": {"bob@example.com"}, "password": {testPassword}}, http.StatusUnauthorized},
		{"missing password", url.Values{"username": {"alice@example.com"}}, http.StatusUnprocessableEntity},
		{"empty form", url.Values{}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.postForm("/token", tt.form)
			expectStatus(t, rec, tt.want)
		})
	}
}

func TestRouter_AuthenticationRequired(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"list users anonymous", http.MethodGet, "/users/", ""},
		{"get user anonymous", http.MethodGet, "/users/1", ""},
		{"hits anonymous", http.MethodGet, "/products/1/hits", ""},
		{"create product anonymous", http.MethodPost, "/products/", ""},
		{"garbage token", http.MethodGet, "/users/", "not-a-jwt"},
		{"garbage token on optional route", http.MethodGet, "/products/", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, tt.token, nil)
			expectCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
		})
	}
}

func TestRouter_DeletedUserTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("alice@example.com", true)
	api.createUser("bob@example.com", true)

	aliceToken := api.login("alice@example.com")
	bobToken := api.login("bob@example.com")

	var users []map[string]any
	decodeBody(t, api.do(http.MethodGet, "/users/", aliceToken, nil), &users)
	var bobID int64
	for _, u := range users {
		if u["email"] == "bob@example.com" {
			bobID = int64(u["id"].(float64))
		}
	}

	rec := api.do(http.MethodDelete, fmt.Sprintf("/users/%d", bobID), aliceToken, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = api.do(http.MethodGet, "/users/", bobToken, nil)
	expectCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	rec = api.do(http.MethodGet, "/products/", bobToken, nil)
	expectCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestRouter_NonAdminForbidden(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("viewer@example.com", false)
	token := api.login("viewer@example.com")

	expectStatus(t, api.do(http.MethodGet, "/users/", token, nil), http.StatusOK)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/users/", map[string]any{"email": "x@example.com", "password": "pw"}},
		{http.MethodPut, "/users/1", map[string]any{"is_admin": true}},
		{http.MethodDelete, "/users/1", nil},
		{http.MethodPost, "/products/", map[string]any{"sku": "S", "name": "N", "brand": "B", "price": 1}},
		{http.MethodPut, "/products/1", map[string]any{"name": "N"}},
		{http.MethodDelete, "/products/1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			before := api.store.Mutations()
			rec := api.do(tt.method, tt.path, token, tt.body)
			expectCode(t, rec, http.StatusForbidden, "FORBIDDEN")
			if api.store.Mutations() != before {
				t.Fatal("forbidden request reached the store")
			}
		})
	}
}

func TestRouter_UserCRUD(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("root@example.com", true)
	token := api.login("root@example.com")

	rec := api.do(http.MethodPost, "/users/", token, map[string]any{
		"email":    "carol@example.com",
		"password": "s3cret",
	})
	expectStatus(t, rec, http.StatusOK)
	var created map[string]any
	decodeBody(t, rec, &created)
	if created["is_admin"] != true {
		t.Errorf("new users default to admin, got %v", created["is_admin"])
	}
	id := int64(created["id"].(float64))

	rec = api.do(http.MethodPost, "/users/", token, map[string]any{
		"email":    "carol@example.com",
		"password": "other",
	})
	expectCode(t, rec, http.StatusBadRequest, "EMAIL_EXISTS")

	before := api.store.Mutations()
	rec = api.do(http.MethodPut, fmt.Sprintf("/users/%d", id), token, map[string]any{
		"email": "caroline@example.com",
	})
	expectStatus(t, rec, http.StatusOK)
	var updated map[string]any
	decodeBody(t, rec, &updated)
	if updated["email"] != "caroline@example.com" || updated["is_admin"] != true {
		t.Errorf("partial update changed more than email: %v", updated)
	}
	if api.store.Mutations() != before+1 {
		t.Errorf("expected exactly one store write")
	}

	// Password untouched: the old one still logs in under the new email.
	rec = api.postForm("/token", url.Values{"username": {"caroline@example.com"}, "password": {"s3cret"}})
	expectStatus(t, rec, http.StatusOK)

	rec = api.do(http.MethodGet, fmt.Sprintf("/users/%d", id), token, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = api.do(http.MethodDelete, fmt.Sprintf("/users/%d", id), token, nil)
	expectStatus(t, rec, http.StatusOK)
	var deleted map[string]int64
	decodeBody(t, rec, &deleted)
	if deleted["id"] != id {
		t.Errorf("expected deleted id %d, got %v", id, deleted)
	}

	rec = api.do(http.MethodGet, fmt.Sprintf("/users/%d", id), token, nil)
	expectCode(t, rec, http.StatusNotFound, "USER_NOT_FOUND")
}

func TestRouter_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("root@example.com", true)
	token := api.login("root@example.com")
	p := api.createProduct(token, "VAL-1")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"malformed json", http.MethodPost, "/users/", `{"email":`},
		{"bad email", http.MethodPost, "/users/", map[string]any{"email": "nope", "password": "pw"}},
		{"missing password", http.MethodPost, "/users/", map[string]any{"email": "d@example.com"}},
		{"missing sku", http.MethodPost, "/products/", map[string]any{"name": "N", "brand": "B", "price": 1}},
		{"zero price", http.MethodPost, "/products/", map[string]any{"sku": "Z", "name": "N", "brand": "B", "price": 0}},
		{"negative price", http.MethodPost, "/products/", map[string]any{"sku": "Z", "name": "N", "brand": "B", "price": "-3.50"}},
		{"negative price update", http.MethodPut, fmt.Sprintf("/products/%d", p.ID), map[string]any{"price": -1}},
		{"bad email update", http.MethodPut, "/users/1", map[string]any{"email": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := api.store.Mutations()
			rec := api.do(tt.method, tt.path, token, tt.body)
			expectCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
			if api.store.Mutations() != before {
				t.Fatal("invalid request reached the store")
			}
		})
	}
}

func TestRouter_ProductCRUD(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("root@example.com", true)
	token := api.login("root@example.com")

	p := api.createProduct(token, "BOOT-1")
	if p.Price.String() != "49.9" {
		t.Errorf("expected price 49.9, got %s", p.Price)
	}
	if p.Description == nil || *p.Description != "Waterproof leather boot" {
		t.Errorf("details view should carry the description")
	}

	rec := api.do(http.MethodPost, "/products/", token, map[string]any{
		"sku": "BOOT-1", "name": "Other", "brand": "Other", "price": "10.00",
	})
	expectCode(t, rec, http.StatusBadRequest, "SKU_EXISTS")

	rec = api.do(http.MethodGet, "/products/", "", nil)
	expectStatus(t, rec, http.StatusOK)
	var list []map[string]any
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("expected one product, got %d", len(list))
	}
	if _, ok := list[0]["description"]; ok {
		t.Error("list view must not carry the description")
	}

	rec = api.do(http.MethodPut, fmt.Sprintf("/products/%d", p.ID), token, map[string]any{"price": "59.95"})
	expectStatus(t, rec, http.StatusOK)
	var updated productBody
	decodeBody(t, rec, &updated)
	if updated.Price.String() != "59.95" || updated.Name != "Rugged Boot" {
		t.Errorf("unexpected update result %+v", updated)
	}

	rec = api.do(http.MethodDelete, fmt.Sprintf("/products/%d", p.ID), token, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = api.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), "", nil)
	expectCode(t, rec, http.StatusNotFound, "PRODUCT_NOT_FOUND")
}

func TestRouter_PriceMustFitColumn(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("root@example.com", true)
	token := api.login("root@example.com")
	p := api.createProduct(token, "PRICE-1")

	for _, price := range []string{"0.001", "10.005", "99999999999999"} {
		t.Run("create "+price, func(t *testing.T) {
			before := api.store.Mutations()
			rec := api.do(http.MethodPost, "/products/", token,
				fmt.Sprintf(`{"sku":"P-%s","name":"N","brand":"B","price":%s}`, price, price))
			expectCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
			if api.store.Mutations() != before {
				t.Fatal("rejected price reached the store")
			}
		})

		t.Run("update "+price, func(t *testing.T) {
			rec := api.do(http.MethodPut, fmt.Sprintf("/products/%d", p.ID), token,
				fmt.Sprintf(`{"price":%s}`, price))
			expectCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
		})
	}

	rec := api.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), token, nil)
	expectStatus(t, rec, http.StatusOK)
	var got productBody
	decodeBody(t, rec, &got)
	if got.Price.String() != "49.9" {
		t.Errorf("price changed to %s", got.Price)
	}

	rec = api.do(http.MethodPost, "/products/", token, `{"sku":"P-MAX","name":"N","brand":"B","price":9999999999.99}`)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &got)
	if got.Price.String() != "9999999999.99" {
		t.Errorf("largest price echoed as %s", got.Price)
	}
}

func TestRouter_HitCounting(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("root@example.com", true)
	token := api.login("root@example.com")
	p := api.createProduct(token, "X1")
	path := fmt.Sprintf("/products/%d", p.ID)

	expectStatus(t, api.do(http.MethodGet, path, "", nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodGet, path, "", nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodGet, path, token, nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodGet, "/products/", "", nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodGet, "/products/", token, nil), http.StatusOK)

	if got := api.hits(token, p.ID); got != 2 {
		t.Fatalf("expected 2 hits, got %d", got)
	}
	if got := api.recorder.Snapshot().ProductHits; got != 2 {
		t.Errorf("expected 2 recorded hit metrics, got %d", got)
	}
}

func TestRouter_NotifiesOtherAdmins(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("a@example.com", true)
	api.createUser("b@example.com", true)
	api.createUser("viewer@example.com", false)
	token := api.login("a@example.com")

	p := api.createProduct(token, "N-1")

	sent := api.notifier.all()
	if len(sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sent))
	}
	got := sent[0]
	if got.actor != "a@example.com" {
		t.Errorf("expected actor a@example.com, got %s", got.actor)
	}
	if got.change != fmt.Sprintf("created product #%d", p.ID) {
		t.Errorf("unexpected change %q", got.change)
	}
	if len(got.recipients) != 1 || got.recipients[0] != "b@example.com" {
		t.Errorf("expected only b@example.com, got %v", got.recipients)
	}
}

func TestRouter_UnknownIDs(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("root@example.com", true)
	token := api.login("root@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   string
	}{
		{"get user", http.MethodGet, "/users/999", nil, "USER_NOT_FOUND"},
		{"update user", http.MethodPut, "/users/999", map[string]any{"email": "z@example.com"}, "USER_NOT_FOUND"},
		{"delete user", http.MethodDelete, "/users/999", nil, "USER_NOT_FOUND"},
		{"non-numeric user", http.MethodGet, "/users/abc", nil, "USER_NOT_FOUND"},
		{"get product", http.MethodGet, "/products/999", nil, "PRODUCT_NOT_FOUND"},
		{"product hits", http.MethodGet, "/products/999/hits", nil, "PRODUCT_NOT_FOUND"},
		{"update product", http.MethodPut, "/products/999", map[string]any{"name": "N"}, "PRODUCT_NOT_FOUND"},
		{"delete product", http.MethodDelete, "/products/999", nil, "PRODUCT_NOT_FOUND"},
		{"non-numeric product", http.MethodGet, "/products/abc", nil, "PRODUCT_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := api.store.Mutations()
			rec := api.do(tt.method, tt.path, token, tt.body)
			expectCode(t, rec, http.StatusNotFound, tt.code)
			if api.store.Mutations() != before {
				t.Fatal("unknown id caused a store write")
			}
		})
	}

	if n := len(api.notifier.all()); n != 0 {
		t.Errorf("failed mutations must not notify, got %d", n)
	}
}

func TestRouter_MetricsAndHealth(t *testing.T) {
	api := newTestAPI(t)
	api.createUser("root@example.com", true)
	api.login("root@example.com")
	api.postForm("/token", url.Values{"username": {"root@example.com"}, "password": {"wrong"}})

	rec := api.do(http.MethodGet, "/metrics", "", nil)
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{
		"catalog_tokens_issued_total 1",
		`catalog_auth_failures_total{reason="bad_credentials"} 1`,
		"catalog_users_created_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q in:\n%s", want, body)
		}
	}

	expectStatus(t, api.do(http.MethodGet, "/readyz", "", nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodGet, "/healthz", "", nil), http.StatusOK)
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, string, int, int) cache.Result {
	return cache.Result{Allowed: false, RetryAfter: 2 * time.Second}
}

func TestRouter_RateLimitedPublicRoutes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewMemStore()
	router := NewRouter(RouterConfig{
		Logger:      logger,
		Products:    service.NewProductService(store, store, &recordingNotifier{}, logger, nil),
		Limiter:     denyLimiter{},
		RateLimitOn: true,
	})

	for _, path := range []string{"/products/", "/token"} {
		method := http.MethodGet
		if path == "/token" {
			method = http.MethodPost
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("%s: expected 429, got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("root must not be rate limited, got %d", rec.Code)
	}
}

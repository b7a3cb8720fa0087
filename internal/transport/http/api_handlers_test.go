package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/vovakirdan/dialogline/internal/store"
)

func loginToken(t *testing.T, env *testEnv) string {
	t.Helper()

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/login",
		bytes.NewBufferString(`{"username":"admin","password":"`+testAdminPassword+`"}`))
	req.Header.Set("Content-Type", "application/json")

	resp := env.do(req)
	if resp.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var auth AuthResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &auth); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if auth.Token == "" {
		t.Fatal("expected a token")
	}
	return auth.Token
}

func seedExchanges(t *testing.T, st store.ExchangeStore, n int) {
	t.Helper()
	for i := range n {
		err := st.SaveExchange(context.Background(), &store.Exchange{
			Source:      "user",
			ChatID:      "U1",
			SenderID:    "U1",
			InboundText: "q" + strconv.Itoa(i),
			ReplyText:   "a" + strconv.Itoa(i),
			ReplyKind:   "fulfillment",
			Delivered:   true,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("seed exchange: %v", err)
		}
	}
}

func TestAdminRoutesAbsentWithoutAuth(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{"/api/exchanges", "/ws"} {
		if resp := env.do(httptest.NewRequest(stdhttp.MethodGet, path, nil)); resp.Code != stdhttp.StatusNotFound {
			t.Errorf("%s: expected 404 while admin is disabled, got %d", path, resp.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, true)
	loginToken(t, env)

	// Wrong password
	req := httptest.NewRequest(stdhttp.MethodPost, "/api/login",
		bytes.NewBufferString(`{"username":"admin","password":"nope-nope"}`))
	req.Header.Set("Content-Type", "application/json")
	if resp := env.do(req); resp.Code != stdhttp.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.Code)
	}

	// Missing fields
	req = httptest.NewRequest(stdhttp.MethodPost, "/api/login", bytes.NewBufferString(`{"username":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	if resp := env.do(req); resp.Code != stdhttp.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, true)

	var last int
	for range loginAttemptsPerMinute + 1 {
		req := httptest.NewRequest(stdhttp.MethodPost, "/api/login",
			bytes.NewBufferString(`{"username":"admin","password":"guess-guess"}`))
		req.Header.Set("Content-Type", "application/json")
		last = env.do(req).Code
	}
	if last != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status 429 after %d attempts, got %d", loginAttemptsPerMinute, last)
	}
}

func TestListExchanges(t *testing.T) {
	env := newTestEnv(t, true)
	seedExchanges(t, env.store, 5)
	token := loginToken(t, env)

	// Without token
	if resp := env.do(httptest.NewRequest(stdhttp.MethodGet, "/api/exchanges", nil)); resp.Code != stdhttp.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.Code)
	}

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/exchanges?limit=2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := env.do(req)
	if resp.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var page []ExchangeResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(page) != 2 || page[0].ID != 5 || page[1].ID != 4 {
		t.Fatalf("unexpected first page: %+v", page)
	}

	req = httptest.NewRequest(stdhttp.MethodGet, "/api/exchanges?before=4", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = env.do(req)
	if err := json.Unmarshal(resp.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(page) != 3 || page[0].ID != 3 {
		t.Fatalf("unexpected second page: %+v", page)
	}

	req = httptest.NewRequest(stdhttp.MethodGet, "/api/exchanges?limit=abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := env.do(req); resp.Code != stdhttp.StatusBadRequest {
		t.Errorf("expected status 400 for bad limit, got %d", resp.Code)
	}
}

func TestGetExchange(t *testing.T) {
	env := newTestEnv(t, true)
	seedExchanges(t, env.store, 1)
	token := loginToken(t, env)

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/exchanges/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := env.do(req)
	if resp.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var ex ExchangeResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &ex); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if ex.InboundText != "q0" || ex.ReplyKind != "fulfillment" || !ex.Delivered {
		t.Fatalf("unexpected exchange: %+v", ex)
	}

	req = httptest.NewRequest(stdhttp.MethodGet, "/api/exchanges/99", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := env.do(req); resp.Code != stdhttp.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.Code)
	}
}

func TestRecordingDisabled(t *testing.T) {
	env := newTestEnvWith(t, envOptions{admin: true, noStore: true})
	token := loginToken(t, env)

	if resp := env.do(httptest.NewRequest(stdhttp.MethodGet, "/ready", nil)); resp.Code != stdhttp.StatusOK || resp.Body.String() != "ready" {
		t.Fatalf("ready without a store: got %d %q", resp.Code, resp.Body.String())
	}

	// Replies still go out when nothing is recorded.
	resp := env.do(newSignedCallback(callbackBody(textEvent("e1", "rt-1", userSource, "hello"))))
	if resp.Code != stdhttp.StatusOK || len(env.replier.sent()) != 1 {
		t.Fatalf("callback without a store: got %d, replies=%d", resp.Code, len(env.replier.sent()))
	}

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/exchanges", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = env.do(req)
	if resp.Code != stdhttp.StatusOK || resp.Body.String() != "[]" {
		t.Fatalf("expected empty list, got %d %q", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(stdhttp.MethodGet, "/api/exchanges/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := env.do(req); resp.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"openpay/internal/requestctx"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitUsesActorKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, time.Minute, ActorOrIPKey)(noContent())
	ctx := requestctx.WithActor(context.Background(), requestctx.Actor{UserID: "user-1"})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil).WithContext(ctx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil).WithContext(ctx)
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by actor key, got %d", secondRec.Code)
	}
	if secondRec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestLoginRateLimitByEmail(t *testing.T) {
	limited := LoginRateLimit(1, time.Minute)(noContent())

	send := func(email, addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"`+email+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("a@example.com", "203.0.113.10:1"); code != http.StatusNoContent {
		t.Fatalf("expected first login to pass, got %d", code)
	}
	if code := send("A@example.com", "203.0.113.11:1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected same email from another address to be throttled, got %d", code)
	}
	if code := send("b@example.com", "203.0.113.10:2"); code != http.StatusTooManyRequests {
		t.Fatalf("expected same address with another email to be throttled, got %d", code)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	rl := newRateLimiter(1, time.Minute, ClientIPKey)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.20:1111"
	if !rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected first request to pass")
	}
	if rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected second request to be throttled")
	}
	now = now.Add(61 * time.Second)
	if !rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected request after window reset to pass")
	}
}

func TestRateLimitDisabled(t *testing.T) {
	limited := RateLimit(0, time.Minute, nil)(noContent())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected disabled limiter to pass, got %d", rec.Code)
		}
	}
}

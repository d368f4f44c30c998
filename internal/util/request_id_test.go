package util

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithRequestIDPropagatesIncomingHeader(t *testing.T) {
	const incoming = "req-incoming-123"
	handler := WithRequestID(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RequestIDFromRequest(r); got != incoming {
			t.Fatalf("unexpected request id in context: got %q want %q", got, incoming)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != incoming {
		t.Fatalf("unexpected response request id: got %q want %q", got, incoming)
	}
}

func TestWithRequestIDReplacesMalformedHeader(t *testing.T) {
	for _, incoming := range []string{"", "bad id\nforged=1", strings.Repeat("a", maxRequestIDLen+1)} {
		var seen string
		handler := WithRequestID(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromRequest(r)
		}))
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		if incoming != "" {
			req.Header.Set("X-Request-Id", incoming)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		got := rec.Header().Get("X-Request-Id")
		if got == "" || got == incoming || got != seen {
			t.Fatalf("expected a fresh id for %q, got header %q context %q", incoming, got, seen)
		}
	}
}

func TestWithRequestIDRecordsClientAndUser(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}
	var ip, user string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithUserID(r.Context(), "u1")
		if UserIDFromContext(ctx) != "u1" {
			t.Fatalf("expected user id on derived context")
		}
	})
	handler := WithRequestID(trusted, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, r)
		ip = ClientIPFromContext(r.Context())
		user = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/meals", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if ip != "203.0.113.5" {
		t.Fatalf("client ip = %q", ip)
	}
	if user != "u1" {
		t.Fatalf("expected user recorded by inner handler to reach outer one, got %q", user)
	}
}

func TestWithUserIDWithoutRequestContext(t *testing.T) {
	ctx := WithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "u1")
	if got := UserIDFromContext(ctx); got != "" {
		t.Fatalf("expected no user outside WithRequestID, got %q", got)
	}
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("expected logger")
	}
}

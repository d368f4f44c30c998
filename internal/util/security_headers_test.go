package util

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveSecurityHeaders(t *testing.T, trusted *TrustedProxies, req *http.Request) http.Header {
	t.Helper()
	h := WithSecurityHeaders(trusted, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Header()
}

func TestWithSecurityHeaders(t *testing.T) {
	got := serveSecurityHeaders(t, nil, httptest.NewRequest(http.MethodGet, "/api/summary/daily", nil))

	want := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"Referrer-Policy":              "no-referrer",
		"Cross-Origin-Resource-Policy": "same-origin",
		"Cache-Control":                "no-store",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Fatalf("%s = %q, want %q", k, got.Get(k), v)
		}
	}
	if got.Get("Content-Security-Policy") == "" {
		t.Fatalf("expected CSP header")
	}
	if got.Get("Strict-Transport-Security") != "" {
		t.Fatalf("did not expect HSTS for plain http request")
	}
}

func TestWithSecurityHeadersLeavesMetricsCacheable(t *testing.T) {
	for _, path := range []string{"/metrics", "/healthz"} {
		got := serveSecurityHeaders(t, nil, httptest.NewRequest(http.MethodGet, path, nil))
		if got.Get("Cache-Control") != "" {
			t.Fatalf("%s: unexpected Cache-Control %q", path, got.Get("Cache-Control"))
		}
		if got.Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s: expected base headers", path)
		}
	}
	got := serveSecurityHeaders(t, nil, httptest.NewRequest(http.MethodDelete, "/internal/users/u1", nil))
	if got.Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store on internal routes")
	}
}

func TestWithSecurityHeadersHSTS(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}

	forwarded := func(remote string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/meals", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-Proto", "https")
		return req
	}
	if got := serveSecurityHeaders(t, trusted, forwarded("10.0.0.3:443")); got.Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS when a trusted proxy forwards https")
	}
	if got := serveSecurityHeaders(t, trusted, forwarded("198.51.100.4:443")); got.Get("Strict-Transport-Security") != "" {
		t.Fatalf("did not expect HSTS from an untrusted forwarded header")
	}

	direct := httptest.NewRequest(http.MethodGet, "/api/meals", nil)
	direct.TLS = &tls.ConnectionState{}
	if got := serveSecurityHeaders(t, nil, direct); got.Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS on direct TLS")
	}
}

package util

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 64
)

type requestInfoKey struct{}

// requestInfo is shared by every handler of one request. The user id is
// filled in after authentication so the access log can report it.
type requestInfo struct {
	id       string
	clientIP string

	mu     sync.Mutex
	userID string
}

// WithRequestID accepts a well-formed incoming X-Request-Id or mints one,
// echoes it on the response and stores it, together with the resolved
// client IP, in the request context. The context logger carries both.
func WithRequestID(trusted *TrustedProxies, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if !validRequestID(requestID) {
			requestID = NewID()
		}
		w.Header().Set(requestIDHeader, requestID)

		info := &requestInfo{id: requestID, clientIP: ClientIP(r, trusted)}
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
		logger := slog.Default().With("request_id", requestID, "client_ip", info.clientIP)
		ctx = ContextWithLogger(ctx, logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID keeps caller-chosen ids short and free of characters that
// could break log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

func infoFromContext(ctx context.Context) *requestInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// WithUserID records the authenticated user on the request and returns a
// context whose logger carries user_id.
func WithUserID(ctx context.Context, userID string) context.Context {
	if info := infoFromContext(ctx); info != nil {
		info.mu.Lock()
		info.userID = userID
		info.mu.Unlock()
	}
	return ContextWithLogger(ctx, LoggerFromContext(ctx).With("user_id", userID))
}

func RequestIDFromContext(ctx context.Context) string {
	if info := infoFromContext(ctx); info != nil {
		return info.id
	}
	return ""
}

func RequestIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return RequestIDFromContext(r.Context())
}

// ClientIPFromContext returns the address resolved by WithRequestID.
func ClientIPFromContext(ctx context.Context) string {
	if info := infoFromContext(ctx); info != nil {
		return info.clientIP
	}
	return ""
}

// UserIDFromContext returns the user recorded by WithUserID, if any.
func UserIDFromContext(ctx context.Context) string {
	info := infoFromContext(ctx)
	if info == nil {
		return ""
	}
	info.mu.Lock()
	defer info.mu.Unlock()
	return info.userID
}

package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"neurostudy/internal/auth"
	"neurostudy/internal/domain"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/httputil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoUser writes the resolved user ID as the body.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, httputil.GetUserID(r))
})

type stubVerifier struct {
	tokens map[string]string
}

func (v *stubVerifier) VerifyToken(token string) (*auth.Claims, error) {
	sub, ok := v.tokens[token]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	c := &auth.Claims{Role: "authenticated"}
	c.Subject = sub
	return c, nil
}

func (v *stubVerifier) Close() error { return nil }

func TestAuth(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]string{"good": "user-42"}}

	tests := []struct {
		name     string
		verifier auth.TokenVerifier
		header   string
		status   int
		body     string
	}{
		{name: "local user without verifier", status: http.StatusOK, body: "local"},
		{name: "valid token", verifier: verifier, header: "Bearer good", status: http.StatusOK, body: "user-42"},
		{name: "scheme is case insensitive", verifier: verifier, header: "bearer good", status: http.StatusOK, body: "user-42"},
		{name: "missing token", verifier: verifier, status: http.StatusUnauthorized},
		{name: "invalid token", verifier: verifier, header: "Bearer bad", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Auth(tt.verifier, "local", testLogger())(echoUser)

			req := httptest.NewRequest(http.MethodGet, "/api/tree", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

type countingFolders struct {
	studySvc.FolderService

	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (f *countingFolders) EnsureDefaults(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[userID]++
	return f.err
}

func TestLibrary(t *testing.T) {
	t.Run("bootstraps each user once", func(t *testing.T) {
		folders := &countingFolders{}
		h := Library(folders, testLogger())(echoUser)

		for _, user := range []string{"a", "a", "b", "a"} {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httputil.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil), user))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
		}

		if folders.calls["a"] != 1 || folders.calls["b"] != 1 {
			t.Errorf("EnsureDefaults calls = %v, want one per user", folders.calls)
		}
	})

	t.Run("failure is retried on the next request", func(t *testing.T) {
		folders := &countingFolders{err: errors.New("db down")}
		h := Library(folders, testLogger())(echoUser)

		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httputil.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil), "a"))
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
		}
		if folders.calls["a"] != 2 {
			t.Errorf("EnsureDefaults calls = %d, want 2", folders.calls["a"])
		}
	})
}

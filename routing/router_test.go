package routing_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-fenix/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func do(t *testing.T, router *routing.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r := routing.New(nil)
	r.Get("/hello", okHandler)
	r.Delete("/users/{id}", okHandler)
	r.Handle("/any", http.HandlerFunc(okHandler))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/hello", http.StatusOK},
		{http.MethodDelete, "/users/1", http.StatusOK},
		{http.MethodPost, "/hello", http.StatusMethodNotAllowed},
		{http.MethodGet, "/any", http.StatusOK},
		{http.MethodPut, "/any", http.StatusOK},
		{http.MethodGet, "/not-registered", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, r, tt.method, tt.path).Code)
		})
	}
}

// ── Route params ─────────────────────────────────────────────────────────────

func TestRouter_Param(t *testing.T) {
	r := routing.New(nil)
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(routing.Param(req, "id")))
	})

	rr := do(t, r, http.MethodGet, "/users/42")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", rr.Body.String())
}

// ── Prefix / Group ───────────────────────────────────────────────────────────

func TestRouter_Prefix(t *testing.T) {
	r := routing.New(nil)
	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/users", okHandler)
	})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/users").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users").Code)
}

func TestRouter_Group_Middleware(t *testing.T) {
	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	r := routing.New(nil)
	r.Get("/open", okHandler)
	r.Group(func(g *routing.Router) {
		g.Middleware(mw)
		g.Get("/protected", okHandler)
	})

	do(t, r, http.MethodGet, "/open")
	assert.False(t, called, "group middleware stays inside the group")

	do(t, r, http.MethodGet, "/protected")
	assert.True(t, called)
}

// ── Recovery and access log ──────────────────────────────────────────────────

func TestRouter_RecoversPanics(t *testing.T) {
	r := routing.New(nil)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	assert.Equal(t, http.StatusInternalServerError, do(t, r, http.MethodGet, "/boom").Code)
}

func TestRouter_AccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := routing.New(zap.New(core))
	r.Get("/hello", okHandler)

	do(t, r, http.MethodGet, "/hello")

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/hello", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.NotEmpty(t, fields["requestID"])
}

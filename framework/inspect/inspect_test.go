package inspect_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-fenix/framework/container"
	"github.com/km-arc/go-fenix/framework/inspect"
	"github.com/km-arc/go-fenix/framework/metrics"
)

type Api struct{}
type Repo struct{}

type body struct {
	Data       json.RawMessage `json:"data"`
	Meta       struct {
		Count int `json:"count"`
	} `json:"meta"`
	Message    string          `json:"message"`
	Dependents []string        `json:"dependents"`
}

func serve(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, body) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	var b body
	if rr.Body.Len() > 0 && rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &b))
	}
	return rr, b
}

func newRegistry(t *testing.T) *container.Container {
	t.Helper()
	c := container.New()
	_, err := container.Provide(c, "a", &Api{})
	require.NoError(t, err)
	_, err = container.Provide(c, "r", &Repo{})
	require.NoError(t, err)
	require.NoError(t, container.DependsOn[*Repo, *Api](c, "r", "a"))
	require.NoError(t, container.ProvideFactory(c, "a", func(*container.Container) (string, error) { return "x", nil }))
	return c
}

func TestRegistry_List(t *testing.T) {
	h := inspect.New(newRegistry(t)).Handler()

	rr, b := serve(t, h, http.MethodGet, "/registry")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "no-cache")
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(b.Data, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, 3, b.Meta.Count)

	api := entries[0]
	assert.Equal(t, "*inspect_test.Api#a", api["key"])
	assert.Equal(t, "github.com/km-arc/go-fenix/framework/inspect_test.Api", api["type"])
	assert.Equal(t, "a", api["tag"])
	assert.Equal(t, true, api["live"])
	assert.Equal(t, []any{"instance"}, api["kinds"])
	assert.Equal(t, []any{"*inspect_test.Repo#r"}, api["dependents"])

	assert.Equal(t, []any{"*inspect_test.Api#a"}, entries[1]["dependencies"])
	assert.Equal(t, false, entries[2]["live"])
}

func TestRegistry_ByTag(t *testing.T) {
	h := inspect.New(newRegistry(t)).Handler()

	rr, b := serve(t, h, http.MethodGet, "/registry/tags/a")
	require.Equal(t, http.StatusOK, rr.Code)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(b.Data, &raw))
	require.Len(t, raw, 2)
	assert.Equal(t, 2, b.Meta.Count)
	assert.Equal(t, "*inspect_test.Api#a", raw[0]["key"])
	assert.Equal(t, "string#a", raw[1]["key"])
	assert.Equal(t, []any{"factory"}, raw[1]["kinds"])

	rr, _ = serve(t, h, http.MethodGet, "/registry/tags/zzz")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRegistry_RemoveByTag(t *testing.T) {
	c := newRegistry(t)
	h := inspect.New(c).Handler()

	rr, b := serve(t, h, http.MethodDelete, "/registry/tags/a")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, []string{"*inspect_test.Repo#r"}, b.Dependents)
	assert.True(t, container.Has[*Api](c, "a"))

	rr, _ = serve(t, h, http.MethodDelete, "/registry/tags/r")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = serve(t, h, http.MethodDelete, "/registry/tags/a")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, container.Has[*Api](c, "a"))

	rr, _ = serve(t, h, http.MethodDelete, "/registry/tags/r")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRegistry_Disposed(t *testing.T) {
	c := newRegistry(t)
	require.NoError(t, c.Close(context.Background()))
	h := inspect.New(c).Handler()

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/registry"},
		{http.MethodGet, "/registry/tags/a"},
		{http.MethodDelete, "/registry/tags/a"},
	} {
		rr, _ := serve(t, h, tt.method, tt.path)
		assert.Equal(t, http.StatusGone, rr.Code, tt.method+" "+tt.path)
	}

	rr, b := serve(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "registry disposed", b.Message)
}

func TestHealthz(t *testing.T) {
	h := inspect.New(newRegistry(t)).Handler()

	rr, b := serve(t, h, http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","keys":3}`, string(b.Data))
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.NewCollector("inspect")
	c := container.New(container.WithRecorder(m))
	_, err := container.Provide(c, "", &Api{})
	require.NoError(t, err)

	withMetrics := inspect.New(c, inspect.WithMetrics(m.Handler())).Handler()
	rr, _ := serve(t, withMetrics, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `inspect_registrations_total{kind="instance"} 1`)

	without := inspect.New(c).Handler()
	rr, _ = serve(t, without, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatus(t *testing.T) {
	k := container.KeyOf[*Api]("a")
	tests := []struct {
		err  error
		want int
	}{
		{&container.KeyError{Key: k, Err: container.ErrNotFound}, http.StatusNotFound},
		{&container.KeyError{Key: k, Err: container.ErrStillDepended}, http.StatusConflict},
		{&container.KeyError{Key: k, Err: container.ErrRequiresAsyncRemoval}, http.StatusConflict},
		{&container.KeyError{Err: container.ErrInvalidTag}, http.StatusUnprocessableEntity},
		{&container.KeyError{Err: container.ErrAlreadyDisposed}, http.StatusGone},
		{fmt.Errorf("wrapped: %w", container.ErrNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, inspect.Status(tt.err))
		})
	}
}

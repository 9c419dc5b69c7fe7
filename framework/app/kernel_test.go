package app_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/km-arc/go-fenix/framework/app"
	"github.com/km-arc/go-fenix/framework/config"
	"github.com/km-arc/go-fenix/framework/container"
	"github.com/km-arc/go-fenix/framework/inspect"
	"github.com/km-arc/go-fenix/framework/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Name: "fenix-test", Env: "testing"},
		Log:       config.LogConfig{Level: "error"},
		Inspector: config.InspectorConfig{Addr: "127.0.0.1:0", Enabled: true},
		Metrics:   config.MetricsConfig{Namespace: "fenix_test"},
		Registry:  config.RegistryConfig{DisposeTimeout: time.Second},
	}
}

func newApp(t *testing.T) *app.Application {
	t.Helper()
	a, err := app.NewWithConfig(testConfig())
	require.NoError(t, err)
	return a
}

type store struct{ closed bool }

func (s *store) Dispose() { s.closed = true }

type storeProvider struct {
	container.BaseProvider
	booted bool
}

func (p *storeProvider) Register(c *container.Container) error {
	return container.ProvideLazy(c, "", func(*container.Container) (*store, error) { return &store{}, nil })
}

func (p *storeProvider) Boot(*container.Container) error {
	p.booted = true
	return nil
}

func TestNew_BindsFrameworkServices(t *testing.T) {
	a := newApp(t)

	assert.Same(t, a.Config(), container.MustGet[*config.Config](a.Container, ""))
	assert.Same(t, a.Logger(), container.MustGet[*zap.Logger](a.Container, ""))
	assert.Same(t, a.Metrics(), container.MustGet[*metrics.Collector](a.Container, ""))
}

func TestNew_InspectorIsDeferred(t *testing.T) {
	a := newApp(t)
	key := container.KeyOf[*inspect.Inspector]("")

	assert.True(t, a.IsRegistered(key))
	assert.False(t, a.IsLive(key))

	ins, err := a.Inspector()
	require.NoError(t, err)
	require.NotNil(t, ins)
	assert.True(t, a.IsLive(key))

	_, err = container.Drop[*metrics.Collector](a.Container, "")
	assert.ErrorIs(t, err, container.ErrStillDepended, "inspector keeps the collector alive")
}

func TestRegister_UserProvider(t *testing.T) {
	a := newApp(t)
	p := &storeProvider{}

	require.NoError(t, a.Register(p))
	require.NoError(t, a.Boot())

	assert.True(t, p.booted)
	s := container.MustGet[*store](a.Container, "")
	require.NoError(t, a.Shutdown(context.Background()))
	assert.True(t, s.closed)
	assert.True(t, a.IsDisposed())
}

func TestServe_InspectorAndShutdown(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Register(&storeProvider{}))
	s := container.MustGet[*store](a.Container, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	client := &http.Client{Timeout: 2 * time.Second}

	require.Eventually(t, func() bool {
		resp, err := client.Get(base + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := client.Get(base + "/registry")
	require.NoError(t, err)
	var body struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	var keys []any
	for _, e := range body.Data {
		keys = append(keys, e["key"])
	}
	assert.Contains(t, keys, "*config.Config")
	assert.Contains(t, keys, "*inspect.Inspector")

	resp, err = client.Get(base + "/metrics")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Contains(t, string(raw), "fenix_test_registrations_total")

	client.CloseIdleConnections()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.True(t, a.IsDisposed())
	assert.True(t, s.closed)
}

func TestRun_InspectorDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Inspector.Enabled = false
	a, err := app.NewWithConfig(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Run(ctx))
	assert.True(t, a.Providers.Booted())
	assert.True(t, a.IsDisposed())
}

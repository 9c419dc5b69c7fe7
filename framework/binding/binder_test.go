package binding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-fenix/framework/binding"
	"github.com/km-arc/go-fenix/framework/container"
	"github.com/km-arc/go-fenix/framework/reactive"
)

var counterKey = container.KeyOf[*reactive.Value[int]]("counter")

func newCounter(t *testing.T) (*container.Container, *reactive.Value[int]) {
	t.Helper()
	c := container.New()
	v, err := container.Provide(c, "counter", reactive.New(0))
	require.NoError(t, err)
	return c, v
}

func TestAcquire_Subscribes(t *testing.T) {
	c, v := newCounter(t)
	b := binding.New(c)
	var seen []int

	h, err := binding.Acquire[int](b, "counter", func(n int) { seen = append(seen, n) })
	require.NoError(t, err)
	require.NoError(t, v.Set(1))

	assert.Equal(t, []int{1}, seen)
	assert.Equal(t, counterKey, h.Key())
	assert.Equal(t, 1, b.Refs(counterKey))
}

func TestAcquire_NotFound(t *testing.T) {
	b := binding.New(container.New())

	_, err := binding.Acquire[int](b, "missing", func(int) {})

	assert.ErrorIs(t, err, container.ErrNotFound)
}

func TestAcquire_DisposedValue(t *testing.T) {
	c, v := newCounter(t)
	v.Dispose()

	_, err := binding.Acquire[int](binding.New(c), "counter", func(int) {})

	assert.ErrorIs(t, err, reactive.ErrDisposed)
}

func TestRelease_Unsubscribes(t *testing.T) {
	c, v := newCounter(t)
	b := binding.New(c)
	calls := 0
	h, err := binding.Acquire[int](b, "counter", func(int) { calls++ })
	require.NoError(t, err)

	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
	require.NoError(t, v.Set(5))

	assert.Zero(t, calls)
	assert.Zero(t, b.Refs(counterKey))
	assert.True(t, c.IsLive(counterKey), "no cleanup without AutoCleanup")
}

func TestAutoCleanup_RemovesOnLastRelease(t *testing.T) {
	c, v := newCounter(t)
	b := binding.New(c, binding.AutoCleanup())

	first, err := binding.Acquire[int](b, "counter", func(int) {})
	require.NoError(t, err)
	second, err := binding.Acquire[int](b, "counter", func(int) {})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Refs(counterKey))

	require.NoError(t, first.Release())
	assert.True(t, c.IsLive(counterKey))

	require.NoError(t, second.Release())
	assert.False(t, c.IsRegistered(counterKey))
	assert.True(t, v.IsDisposed())
}

func TestAutoCleanup_KeepsValueWithForeignListener(t *testing.T) {
	c, v := newCounter(t)
	b := binding.New(c, binding.AutoCleanup())
	_, err := v.AddListener(func(int) {})
	require.NoError(t, err)

	h, err := binding.Acquire[int](b, "counter", func(int) {})
	require.NoError(t, err)
	require.NoError(t, h.Release())

	assert.True(t, c.IsLive(counterKey))
	assert.False(t, v.IsDisposed())
}

func TestAutoCleanup_AlreadyRemoved(t *testing.T) {
	c, _ := newCounter(t)
	b := binding.New(c, binding.AutoCleanup())
	h, err := binding.Acquire[int](b, "counter", func(int) {})
	require.NoError(t, err)

	_, err = c.Remove(counterKey)
	require.NoError(t, err)

	assert.NoError(t, h.Release())
}

func TestAutoCleanup_StillDepended(t *testing.T) {
	c, v := newCounter(t)
	_, err := container.Provide(c, "view", &struct{ Name string }{"view"})
	require.NoError(t, err)
	require.NoError(t, container.DependsOn[*struct{ Name string }, *reactive.Value[int]](c, "view", "counter"))
	b := binding.New(c, binding.AutoCleanup())
	h, err := binding.Acquire[int](b, "counter", func(int) {})
	require.NoError(t, err)

	err = h.Release()

	assert.ErrorIs(t, err, container.ErrStillDepended)
	assert.False(t, v.IsDisposed())
	assert.ErrorIs(t, h.Release(), container.ErrStillDepended, "Release reports the same result twice")
}

func TestAutoCleanup_RebornValueComesBack(t *testing.T) {
	c := container.New()
	builds := 0
	require.NoError(t, container.ProvideLazy(c, "counter", func(*container.Container) (*reactive.Value[int], error) {
		builds++
		return reactive.New(builds), nil
	}, container.Reborn()))
	b := binding.New(c, binding.AutoCleanup())

	h, err := binding.Acquire[int](b, "counter", func(int) {})
	require.NoError(t, err)
	require.NoError(t, h.Release())

	h, err = binding.Acquire[int](b, "counter", func(int) {})
	require.NoError(t, err)
	defer h.Release()

	assert.Equal(t, 2, builds)
	assert.Equal(t, 2, container.MustGet[*reactive.Value[int]](c, "counter").Value())
}

func TestAcquireAsync(t *testing.T) {
	c := container.New()
	ctx := context.Background()
	require.NoError(t, container.ProvideLazyAsync(ctx, c, "counter", func(context.Context, *container.Container) (*reactive.Value[int], error) {
		return reactive.New(7), nil
	}))
	b := binding.New(c)

	_, err := binding.Acquire[int](b, "counter", func(int) {})
	require.ErrorIs(t, err, container.ErrRequiresAsyncResolution)

	h, err := binding.AcquireAsync[int](ctx, b, "counter", func(int) {})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Refs(h.Key()))
}

package reactive_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/km-arc/go-fenix/framework/reactive"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// counter subscribes to v and counts notifications.
func counter[T any](t *testing.T, v *reactive.Value[T]) *int {
	t.Helper()
	n := new(int)
	_, err := v.AddListener(func(T) { *n++ })
	require.NoError(t, err)
	return n
}

// ── Construction ──────────────────────────────────────────────────────────────

func TestNew_CurrentAndPreviousStartEqual(t *testing.T) {
	v := reactive.New(7, reactive.WithTag("seven"))

	assert.Equal(t, 7, v.Value())
	assert.Equal(t, 7, v.Previous())
	assert.Equal(t, "seven", v.Tag())
	assert.Equal(t, reactive.ModeAuto, v.Mode())
	assert.False(t, v.IsPaused())
}

func TestNew_GeneratesTagWhenMissing(t *testing.T) {
	a := reactive.New(0)
	b := reactive.New(0)

	assert.NotEmpty(t, a.Tag())
	assert.NotEqual(t, a.Tag(), b.Tag())
}

// ── Set ───────────────────────────────────────────────────────────────────────

func TestSet_EqualValueNeverNotifies(t *testing.T) {
	v := reactive.New("a")
	n := counter(t, v)

	require.NoError(t, v.Set("a"))
	require.NoError(t, v.Set("a"))

	assert.Zero(t, *n)
	assert.Equal(t, "a", v.Previous())
}

func TestSet_DifferentValueNotifiesOnce(t *testing.T) {
	v := reactive.New(1)
	var got []int
	_, err := v.AddListener(func(x int) { got = append(got, x) })
	require.NoError(t, err)

	require.NoError(t, v.Set(2))

	assert.Equal(t, []int{2}, got)
	assert.Equal(t, 2, v.Value())
	assert.Equal(t, 1, v.Previous())
}

func TestSet_DeepEqualityForStructs(t *testing.T) {
	type user struct {
		Name  string
		Roles []string
	}
	v := reactive.New(user{Name: "ada", Roles: []string{"admin"}})
	n := counter(t, v)

	require.NoError(t, v.Set(user{Name: "ada", Roles: []string{"admin"}}))
	assert.Zero(t, *n)

	require.NoError(t, v.Set(user{Name: "ada", Roles: []string{"admin", "ops"}}))
	assert.Equal(t, 1, *n)
}

func TestSet_CustomEquality(t *testing.T) {
	sameLen := func(a, b string) bool { return len(a) == len(b) }
	v := reactive.NewFunc("abc", sameLen)
	n := counter(t, v)

	require.NoError(t, v.Set("xyz"))
	assert.Zero(t, *n)
	assert.Equal(t, "abc", v.Value())
}

func TestSet_ManualModeRejected(t *testing.T) {
	v := reactive.New(0, reactive.Manual())

	assert.ErrorIs(t, v.Set(1), reactive.ErrInvalidMode)
	assert.ErrorIs(t, v.Update(func(n int) int { return n + 1 }), reactive.ErrInvalidMode)
	assert.Equal(t, 0, v.Value())
}

func TestSet_PausedAppliesWithoutNotifying(t *testing.T) {
	v := reactive.New(0, reactive.Paused())
	n := counter(t, v)

	require.NoError(t, v.Set(5))
	assert.Equal(t, 5, v.Value())
	assert.Zero(t, *n)

	v.Resume()
	require.NoError(t, v.Set(6))
	assert.Equal(t, 1, *n)

	v.Pause()
	require.NoError(t, v.Set(7))
	assert.Equal(t, 1, *n)
}

func TestUpdate_ReceivesCurrentValue(t *testing.T) {
	v := reactive.New(10)
	n := counter(t, v)

	require.NoError(t, v.Update(func(x int) int { return x + 5 }))

	assert.Equal(t, 15, v.Value())
	assert.Equal(t, 1, *n)
}

// readable fails the test if v stays locked.
func readable[T any](t *testing.T, v *reactive.Value[T]) T {
	t.Helper()
	got := make(chan T, 1)
	go func() { got <- v.Value() }()
	select {
	case x := <-got:
		return x
	case <-time.After(time.Second):
		t.Fatal("value still locked")
		var zero T
		return zero
	}
}

func TestUpdate_PanickingTransformReleasesLock(t *testing.T) {
	v := reactive.New(3)
	n := counter(t, v)

	assert.PanicsWithValue(t, "boom", func() {
		_ = v.Update(func(int) int { panic("boom") })
	})

	assert.Equal(t, 3, readable(t, v))
	require.NoError(t, v.Set(4))
	assert.Equal(t, 3, v.Previous())
	assert.Equal(t, 1, *n)
	v.Dispose()
	assert.True(t, v.IsDisposed())
}

func TestUpdateSilently_PanickingTransformReleasesLock(t *testing.T) {
	v := reactive.New(3, reactive.Manual())

	assert.Panics(t, func() {
		_ = v.UpdateSilently(func(int) int { panic("boom") })
	})

	assert.Equal(t, 3, readable(t, v))
	require.NoError(t, v.SetSilently(5))
	assert.Equal(t, 5, v.Value())
}

// ── Manual mode ───────────────────────────────────────────────────────────────

func TestSetSilently_NeverNotifies(t *testing.T) {
	v := reactive.New(0, reactive.Manual())
	n := counter(t, v)

	for i := 1; i <= 5; i++ {
		require.NoError(t, v.SetSilently(i))
	}
	require.NoError(t, v.UpdateSilently(func(x int) int { return x * 10 }))

	assert.Zero(t, *n)
	assert.Equal(t, 50, v.Value())
	assert.Equal(t, 5, v.Previous())
}

func TestSetSilently_AutoModeRejected(t *testing.T) {
	v := reactive.New(0)

	assert.ErrorIs(t, v.SetSilently(1), reactive.ErrInvalidMode)
	assert.ErrorIs(t, v.UpdateSilently(func(int) int { return 1 }), reactive.ErrInvalidMode)
}

func TestForceNotify_OncePerCall(t *testing.T) {
	v := reactive.New(0, reactive.Manual())
	n := counter(t, v)

	require.NoError(t, v.SetSilently(1))
	require.NoError(t, v.SetSilently(2))
	require.NoError(t, v.SetSilently(3))
	v.ForceNotify()
	assert.Equal(t, 1, *n)

	v.ForceNotify()
	assert.Equal(t, 2, *n)
}

func TestForceNotify_IgnoresPause(t *testing.T) {
	v := reactive.New(0, reactive.Paused())
	n := counter(t, v)

	v.ForceNotify()

	assert.Equal(t, 1, *n)
}

// ── UpdateAsync ───────────────────────────────────────────────────────────────

func TestUpdateAsync_NotifiesAfterCompletion(t *testing.T) {
	v := reactive.New(1)
	n := counter(t, v)

	err := v.UpdateAsync(context.Background(), func(_ context.Context, x int) (int, error) {
		assert.Zero(t, *n, "no notification while fn runs")
		return x + 1, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, v.Value())
	assert.Equal(t, 1, *n)
}

func TestUpdateAsync_ErrorLeavesValue(t *testing.T) {
	v := reactive.New(1)
	n := counter(t, v)
	boom := errors.New("boom")

	err := v.UpdateAsync(context.Background(), func(context.Context, int) (int, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, v.Value())
	assert.Zero(t, *n)
}

func TestUpdateAsync_DisposedWhileRunning(t *testing.T) {
	v := reactive.New(1)

	err := v.UpdateAsync(context.Background(), func(_ context.Context, x int) (int, error) {
		v.Dispose()
		return x + 1, nil
	})

	assert.ErrorIs(t, err, reactive.ErrDisposed)
	assert.Equal(t, 1, v.Value())
}

func TestUpdateAsync_ManualModeRejected(t *testing.T) {
	v := reactive.New(1, reactive.Manual())

	err := v.UpdateAsync(context.Background(), func(_ context.Context, x int) (int, error) {
		t.Fatal("fn must not run")
		return x, nil
	})

	assert.ErrorIs(t, err, reactive.ErrInvalidMode)
}

// ── Listeners ─────────────────────────────────────────────────────────────────

func TestRemoveListener(t *testing.T) {
	v := reactive.New(0)
	var a, b int
	idA, err := v.AddListener(func(int) { a++ })
	require.NoError(t, err)
	_, err = v.AddListener(func(int) { b++ })
	require.NoError(t, err)
	assert.Equal(t, 2, v.ListenerCount())

	v.RemoveListener(idA)
	v.RemoveListener(idA)
	require.NoError(t, v.Set(1))

	assert.Zero(t, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 1, v.ListenerCount())
}

func TestListeners_CalledInSubscriptionOrder(t *testing.T) {
	v := reactive.New(0)
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := v.AddListener(func(int) { order = append(order, name) })
		require.NoError(t, err)
	}

	require.NoError(t, v.Set(1))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestListener_CanReadValueWithoutDeadlock(t *testing.T) {
	v := reactive.New(0)
	var seen int
	_, err := v.AddListener(func(int) { seen = v.Value() })
	require.NoError(t, err)

	require.NoError(t, v.Set(3))

	assert.Equal(t, 3, seen)
}

func TestConcurrentSet(t *testing.T) {
	v := reactive.New(0)
	var mu sync.Mutex
	calls := 0
	_, err := v.AddListener(func(int) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = v.Update(func(x int) int { return x + 1 })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, v.Value())
	assert.Equal(t, 50, calls)
}

// ── Dispose ───────────────────────────────────────────────────────────────────

func TestDispose(t *testing.T) {
	v := reactive.New("last")
	n := counter(t, v)
	id, err := v.AddListener(func(string) {})
	require.NoError(t, err)

	v.Dispose()
	v.Dispose()

	assert.True(t, v.IsDisposed())
	assert.Equal(t, "last", v.Value())
	assert.Zero(t, v.ListenerCount())

	_, err = v.AddListener(func(string) {})
	assert.ErrorIs(t, err, reactive.ErrDisposed)
	assert.ErrorIs(t, v.Set("next"), reactive.ErrDisposed)
	assert.ErrorIs(t, v.Update(func(s string) string { return s }), reactive.ErrDisposed)

	v.ForceNotify()
	v.RemoveListener(id)
	assert.Zero(t, *n)
}

func TestDispose_ManualMutationsRejected(t *testing.T) {
	v := reactive.New(1, reactive.Manual())
	v.Dispose()

	assert.ErrorIs(t, v.SetSilently(2), reactive.ErrDisposed)
	assert.Equal(t, 1, v.Value())
}

package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Disposer is implemented by objects that release resources synchronously.
type Disposer interface {
	Dispose()
}

// AsyncDisposer is implemented by objects whose release has to wait on
// something (flushing a buffer, closing a connection). Async removal paths
// prefer it over Disposer.
type AsyncDisposer interface {
	DisposeAsync(ctx context.Context) error
}

func isAsyncDisposable(v any) bool {
	_, ok := v.(AsyncDisposer)
	return ok
}

// disposeSync calls Dispose on v if it has one. A panic inside Dispose is
// logged and swallowed: the registry has already forgotten v.
func (c *Container) disposeSync(k Key, v any) {
	d, ok := v.(Disposer)
	if !ok {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			c.disposeFailed(k, fmt.Errorf("panic: %v", rec))
		}
	}()
	d.Dispose()
}

// disposeAsync prefers DisposeAsync and falls back to Dispose.
func (c *Container) disposeAsync(ctx context.Context, k Key, v any) {
	ad, ok := v.(AsyncDisposer)
	if !ok {
		c.disposeSync(k, v)
		return
	}

	if c.disposeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.disposeTimeout)
		defer cancel()
	}

	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		return ad.DisposeAsync(ctx)
	}()
	if err != nil {
		c.disposeFailed(k, err)
	}
}

func (c *Container) disposeFailed(k Key, err error) {
	c.logger.Warn("dispose failed",
		zap.Stringer("key", k),
		zap.Error(err),
	)
	c.recorder.DisposeFailed()
}

package container

import (
	"context"
	"fmt"
	"reflect"
)

// ── Generics helpers ──────────────────────────────────────────────────────────
//
// The helpers below key registrations by their type parameter, so
//
//	container.Provide(c, "main", db)          // key: *sql.DB#main
//	db, err := container.Get[*sql.DB](c, "main")
//
// replaces building a Key by hand and type-asserting the result.

// Provide registers v under KeyOf[T](tag). See Container.Register.
func Provide[T any](c *Container, tag string, v T) (T, error) {
	if _, err := c.Register(KeyOf[T](tag), v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// ProvideAsync awaits build and registers the result. See
// Container.RegisterAsync.
func ProvideAsync[T any](ctx context.Context, c *Container, tag string, build func(context.Context, *Container) (T, error), opts ...RegisterOption) (T, error) {
	k := KeyOf[T](tag)
	v, err := c.RegisterAsync(ctx, k, asyncBuilder(build), opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](k, v)
}

// ProvideLazy registers a builder run on first lookup. See
// Container.RegisterLazy.
func ProvideLazy[T any](c *Container, tag string, build func(*Container) (T, error), opts ...RegisterOption) error {
	return c.RegisterLazy(KeyOf[T](tag), builder(build), opts...)
}

// ProvideLazyAsync registers an async builder run on first lookup. See
// Container.RegisterLazyAsync.
func ProvideLazyAsync[T any](ctx context.Context, c *Container, tag string, build func(context.Context, *Container) (T, error), opts ...RegisterOption) error {
	return c.RegisterLazyAsync(ctx, KeyOf[T](tag), asyncBuilder(build), opts...)
}

// ProvideFactory registers a builder run on every lookup. See
// Container.RegisterFactory.
func ProvideFactory[T any](c *Container, tag string, build func(*Container) (T, error)) error {
	return c.RegisterFactory(KeyOf[T](tag), builder(build))
}

// Get resolves KeyOf[T](tag).
func Get[T any](c *Container, tag string) (T, error) {
	k := KeyOf[T](tag)
	v, err := c.Resolve(k)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](k, v)
}

// GetAsync resolves KeyOf[T](tag) through the async path.
func GetAsync[T any](ctx context.Context, c *Container, tag string) (T, error) {
	k := KeyOf[T](tag)
	v, err := c.ResolveAsync(ctx, k)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](k, v)
}

// TryGet is Get with not-found reported as ok=false.
func TryGet[T any](c *Container, tag string) (T, bool, error) {
	k := KeyOf[T](tag)
	v, ok, err := c.TryResolve(k)
	return tryCast[T](k, v, ok, err)
}

// TryGetAsync is GetAsync with not-found reported as ok=false.
func TryGetAsync[T any](ctx context.Context, c *Container, tag string) (T, bool, error) {
	k := KeyOf[T](tag)
	v, ok, err := c.TryResolveAsync(ctx, k)
	return tryCast[T](k, v, ok, err)
}

// MustGet is Get that panics on any error. Meant for composition roots and
// tests where a missing registration is a programming error.
//
//	cfg := container.MustGet[*config.Config](c, "")
func MustGet[T any](c *Container, tag string) T {
	v, err := Get[T](c, tag)
	if err != nil {
		panic(fmt.Sprintf("container: MustGet[%s]: %v", reflect.TypeFor[T](), err))
	}
	return v
}

// Has reports whether KeyOf[T](tag) is registered.
func Has[T any](c *Container, tag string) bool {
	return c.IsRegistered(KeyOf[T](tag))
}

// Drop removes KeyOf[T](tag). See Container.Remove.
func Drop[T any](c *Container, tag string) (bool, error) {
	return c.Remove(KeyOf[T](tag))
}

// DropAsync removes KeyOf[T](tag) through the async path.
func DropAsync[T any](ctx context.Context, c *Container, tag string) (bool, error) {
	return c.RemoveAsync(ctx, KeyOf[T](tag))
}

// DependsOn records that KeyOf[D](dependentTag) needs KeyOf[T](dependencyTag).
//
//	container.DependsOn[*Repo, *Api](c, "r", "a")
func DependsOn[D, T any](c *Container, dependentTag, dependencyTag string) error {
	return c.BindDependency(KeyOf[D](dependentTag), KeyOf[T](dependencyTag))
}

func builder[T any](build func(*Container) (T, error)) Builder {
	return func(c *Container) (any, error) {
		v, err := build(c)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func asyncBuilder[T any](build func(context.Context, *Container) (T, error)) AsyncBuilder {
	return func(ctx context.Context, c *Container) (any, error) {
		v, err := build(ctx, c)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func cast[T any](k Key, v any) (T, error) {
	if v == nil {
		var zero T
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, &WrongTypeError{Key: k, Got: reflect.TypeOf(v).String()}
	}
	return typed, nil
}

func tryCast[T any](k Key, v any, ok bool, err error) (T, bool, error) {
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	typed, err := cast[T](k, v)
	if err != nil {
		return typed, false, err
	}
	return typed, true, nil
}

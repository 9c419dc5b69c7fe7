package container

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when nothing is registered under a key or tag.
	ErrNotFound = errors.New("container: not found")

	// ErrRequiresAsyncResolution is returned by the sync resolve path when
	// the key is backed by an async builder.
	ErrRequiresAsyncResolution = errors.New("container: requires async resolution")

	// ErrRequiresAsyncRemoval is returned by the sync remove paths when the
	// instance implements AsyncDisposer.
	ErrRequiresAsyncRemoval = errors.New("container: requires async removal")

	// ErrStillDepended is returned when a live instance still depends on the
	// key being removed.
	ErrStillDepended = errors.New("container: still depended on")

	// ErrStillAsyncDisposable is returned by the sync register paths when the
	// instance they would replace implements AsyncDisposer.
	ErrStillAsyncDisposable = errors.New("container: replaced instance is async disposable")

	// ErrInvalidTag is returned by tag based operations given an empty tag.
	ErrInvalidTag = errors.New("container: invalid tag")

	// ErrInvalidKey is returned for keys without a type.
	ErrInvalidKey = errors.New("container: invalid key")

	// ErrSelfDependency is returned when a key is bound as its own dependency.
	ErrSelfDependency = errors.New("container: key cannot depend on itself")

	// ErrAlreadyDisposed is returned by every operation on a closed container.
	ErrAlreadyDisposed = errors.New("container: already disposed")
)

// KeyError attaches the offending key to one of the sentinel errors above.
type KeyError struct {
	Key Key
	Err error

	// Dependents lists the live dependents for ErrStillDepended.
	Dependents []Key
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	// Example: container: still depended on [*app.Api#a] (dependents: *app.Repo#r)
	var b strings.Builder
	b.WriteString(e.Err.Error())
	b.WriteString(" [")
	b.WriteString(e.Key.String())
	b.WriteString("]")
	if len(e.Dependents) > 0 {
		b.WriteString(" (dependents: ")
		for i, d := range e.Dependents {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.String())
		}
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes the sentinel for errors.Is.
func (e *KeyError) Unwrap() error { return e.Err }

func keyErr(k Key, err error) *KeyError { return &KeyError{Key: k, Err: err} }

// BuildError wraps an error returned by a registered builder.
type BuildError struct {
	Key Key
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return "container: build " + strconv.Quote(e.Key.String()) + ": " + e.Err.Error()
}

// Unwrap returns the builder's error.
func (e *BuildError) Unwrap() error { return e.Err }

// WrongTypeError is returned by the typed helpers when the stored value does
// not have the requested type.
type WrongTypeError struct {
	Key Key
	Got string
}

// Error implements the error interface.
func (e *WrongTypeError) Error() string {
	return "container: " + strconv.Quote(e.Key.String()) + " resolved to wrong type (" + e.Got + ")"
}

// isNotFoundFor reports whether err is the container's own not-found for k,
// as opposed to a builder failing because one of its dependencies is missing.
func isNotFoundFor(err error, k Key) bool {
	ke, ok := err.(*KeyError)
	return ok && ke.Key == k && ke.Err == ErrNotFound
}

package container

import (
	"reflect"
)

// Key identifies a registration: the declared type plus an optional tag.
// Two keys with the same type and different tags are unrelated.
type Key struct {
	Type reflect.Type
	Tag  string
}

// KeyOf returns the key for T. Interface types work as well:
//
//	container.KeyOf[UserRepository]("")
//	container.KeyOf[*reactive.Value[int]]("counter")
func KeyOf[T any](tag string) Key {
	return Key{Type: reflect.TypeFor[T](), Tag: tag}
}

// KeyFor returns the key for the dynamic type of v.
func KeyFor(v any, tag string) Key {
	return Key{Type: reflect.TypeOf(v), Tag: tag}
}

// String renders the key as "pkg.Type" or "pkg.Type#tag".
func (k Key) String() string {
	name := "<nil>"
	if k.Type != nil {
		name = k.Type.String()
	}
	if k.Tag == "" {
		return name
	}
	return name + "#" + k.Tag
}

// MarshalText renders the key as String does, so keys encode as JSON
// strings.
func (k Key) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// TypeName returns the package-qualified name of the key's type,
// dereferencing one level of pointer.
func (k Key) TypeName() string { return typeName(k.Type) }

// TypeKey returns the package-qualified type name of v, dereferencing one
// level of pointer. It matches Key.TypeName for KeyFor(v, tag).
//
//	container.TypeKey((*UserRepository)(nil)) // "example.com/app.UserRepository"
func TypeKey(v any) string {
	return typeName(reflect.TypeOf(v))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func (k Key) valid() bool { return k.Type != nil }

// sameInstance reports whether a and b are the same stored object without
// panicking on uncomparable dynamic types.
func sameInstance(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

package container

import "time"

// Kind names the registration tables.
type Kind int

// Registration kinds, in the order Snapshot reports them.
const (
	KindInstance    Kind = iota // a stored value
	KindFactory                 // built on every lookup, never cached
	KindLazy                    // built once on first lookup, then cached
	KindLazyAsync               // KindLazy behind an AsyncBuilder
	KindReborn                  // rebuilds the instance after it is removed
	KindRebornAsync             // KindReborn behind an AsyncBuilder
)

var kindNames = [...]string{
	KindInstance:    "instance",
	KindFactory:     "factory",
	KindLazy:        "lazy",
	KindLazyAsync:   "lazy_async",
	KindReborn:      "reborn",
	KindRebornAsync: "reborn_async",
}

// String returns the kind's name, as used in metric labels and JSON.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Recorder receives lifecycle counts. framework/metrics provides a Prometheus
// implementation.
type Recorder interface {
	Registered(kind Kind)
	Resolved(kind Kind)
	Built(kind Kind, took time.Duration)
	Removed(async bool)
	DisposeFailed()
}

type nopRecorder struct{}

func (nopRecorder) Registered(Kind)           {}
func (nopRecorder) Resolved(Kind)             {}
func (nopRecorder) Built(Kind, time.Duration) {}
func (nopRecorder) Removed(bool)              {}
func (nopRecorder) DisposeFailed()            {}

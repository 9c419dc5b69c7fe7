// Package inspect serves a read-mostly HTTP view of a live container.
//
//	GET    /healthz
//	GET    /metrics               (when a metrics handler is configured)
//	GET    /registry              every key in registration order
//	GET    /registry/tags/{tag}   keys carrying tag
//	DELETE /registry/tags/{tag}   RemoveByTagAsync(tag)
package inspect

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-fenix/framework/container"
	gohttp "github.com/km-arc/go-fenix/http"
	"github.com/km-arc/go-fenix/routing"
)

// Inspector exposes a container over HTTP.
type Inspector struct {
	c       *container.Container
	logger  *zap.Logger
	metrics http.Handler
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger used for access logs and removals.
func WithLogger(l *zap.Logger) Option {
	return func(i *Inspector) { i.logger = l }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(i *Inspector) { i.metrics = h }
}

// New creates an Inspector for c.
func New(c *container.Container, opts ...Option) *Inspector {
	i := &Inspector{c: c, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Handler returns a router with every inspector route.
func (i *Inspector) Handler() http.Handler {
	r := routing.New(i.logger)
	i.Routes(r)
	return r
}

// Routes registers the inspector routes on r.
func (i *Inspector) Routes(r *routing.Router) {
	r.Get("/healthz", i.health)
	if i.metrics != nil {
		r.Handle("/metrics", i.metrics)
	}
	r.Group(func(g *routing.Router) {
		g.Middleware(middleware.NoCache)
		g.Prefix("/registry", func(reg *routing.Router) {
			reg.Get("/", i.list)
			reg.Get("/tags/{tag}", i.byTag)
			reg.Delete("/tags/{tag}", i.removeByTag)
		})
	})
}

// EntryView is the JSON shape of one registered key.
type EntryView struct {
	Key          container.Key    `json:"key"`
	Type         string           `json:"type"`
	Tag          string           `json:"tag,omitempty"`
	Kinds        []container.Kind `json:"kinds"`
	Live         bool             `json:"live"`
	Dependents   []container.Key  `json:"dependents,omitempty"`
	Dependencies []container.Key  `json:"dependencies,omitempty"`
}

func view(e container.Entry) EntryView {
	return EntryView{
		Key:          e.Key,
		Type:         e.Key.TypeName(),
		Tag:          e.Key.Tag,
		Kinds:        e.Kinds,
		Live:         e.Live,
		Dependents:   e.Dependents,
		Dependencies: e.Dependencies,
	}
}

func (i *Inspector) health(w http.ResponseWriter, _ *http.Request) {
	res := gohttp.NewResponse(w)
	if i.c.IsDisposed() {
		res.Error(http.StatusServiceUnavailable, "registry disposed")
		return
	}
	res.Success(map[string]any{"status": "ok", "keys": len(i.c.Keys())})
}

func (i *Inspector) list(w http.ResponseWriter, _ *http.Request) {
	res := gohttp.NewResponse(w)
	if i.c.IsDisposed() {
		i.fail(res, container.ErrAlreadyDisposed)
		return
	}
	entries := i.c.Snapshot()
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, view(e))
	}
	res.Collection(out, len(out))
}

func (i *Inspector) byTag(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	tag := routing.Param(r, "tag")
	if tag == "" {
		i.fail(res, container.ErrInvalidTag)
		return
	}
	if i.c.IsDisposed() {
		i.fail(res, container.ErrAlreadyDisposed)
		return
	}
	var out []EntryView
	for _, e := range i.c.Snapshot() {
		if e.Key.Tag == tag {
			out = append(out, view(e))
		}
	}
	if len(out) == 0 {
		res.NotFound("no key tagged " + tag)
		return
	}
	res.Collection(out, len(out))
}

func (i *Inspector) removeByTag(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	tag := routing.Param(r, "tag")

	ok, err := i.c.RemoveByTagAsync(r.Context(), tag)
	if err != nil {
		i.fail(res, err)
		return
	}
	if !ok {
		res.NotFound("no key tagged " + tag)
		return
	}
	i.logger.Info("removed by tag", zap.String("tag", tag))
	res.NoContent()
}

// fail writes err with the status Status maps it to. Live dependents are
// listed for ErrStillDepended.
func (i *Inspector) fail(res *gohttp.Response, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		i.logger.Error("inspector request failed", zap.Error(err))
		res.ServerError()
		return
	}
	var ke *container.KeyError
	if errors.As(err, &ke) && len(ke.Dependents) > 0 {
		res.ErrorWith(status, err.Error(), map[string]any{"dependents": ke.Dependents})
		return
	}
	res.Error(status, err.Error())
}

// Status maps a container error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, container.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, container.ErrStillDepended),
		errors.Is(err, container.ErrRequiresAsyncRemoval),
		errors.Is(err, container.ErrStillAsyncDisposable):
		return http.StatusConflict
	case errors.Is(err, container.ErrInvalidTag),
		errors.Is(err, container.ErrInvalidKey):
		return http.StatusUnprocessableEntity
	case errors.Is(err, container.ErrAlreadyDisposed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

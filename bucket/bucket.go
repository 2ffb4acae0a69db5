package bucket

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrRoutingActive is returned when a routing scope is entered while
	// another one is still held on the same router. Scopes must be acquired
	// immediately before an open and released immediately after.
	ErrRoutingActive = errors.New("storage routing scope already active")
)

// Target is where object files are created while a routing scope is active.
type Target interface {
	Create(name string, flag int, mode os.FileMode) (*os.File, error)
}

// Storage is a pluggable object-store backend. Writable object files are
// created in the backend's local cache; Flush uploads a sealed object into
// the bucket, after which Exists reports it.
type Storage interface {
	Target
	Flush(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	Statistics() Statistics
}

// Statistics counts backend operations.
type Statistics struct {
	CreateCount       uint64
	PutObjectCount    uint64
	ObjectExistsCount uint64
}

// Router directs file creation for one session. With no storage configured
// it routes to local disk, identically to opens made outside any scope.
type Router struct {
	storage Storage
	active  bool
}

// NewRouter returns a router for the session. storage may be nil.
func NewRouter(storage Storage) *Router {
	return &Router{storage: storage}
}

// Storage returns the configured backend, nil when files go to local disk.
func (r *Router) Storage() Storage {
	return r.storage
}

// WithRouting runs fn inside a routing scope. File creation performed
// through the provided target lands in the configured bucket backend, or on
// local disk when none is configured. The scope is released on every exit
// path, so routing never leaks into later operations on the same session.
func (r *Router) WithRouting(fn func(Target) error) error {
	if r.active {
		return ErrRoutingActive
	}
	r.active = true
	defer func() {
		r.active = false
	}()

	var target Target = localTarget{}
	if r.storage != nil {
		target = r.storage
	}
	return fn(target)
}

// localTarget creates files directly on local disk.
type localTarget struct{}

func (localTarget) Create(name string, flag int, mode os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(name, flag, mode)
	return f, errors.Wrapf(err, "cannot create %s", name)
}

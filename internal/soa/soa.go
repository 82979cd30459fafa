// Package soa defines the publish/subscribe contract every desk service is
// built on: keyed services, listeners notified synchronously in registration
// order, and connectors at the process boundary.
package soa

import (
	"context"
	"errors"
	"io"
)

// ErrSubscribeUnsupported is returned by publish-only connectors.
var ErrSubscribeUnsupported = errors.New("soa: connector does not subscribe")

// Listener observes changes to a service's data.
type Listener[V any] interface {
	ProcessAdd(ctx context.Context, v V) error
	ProcessRemove(ctx context.Context, v V) error
	ProcessUpdate(ctx context.Context, v V) error
}

// Service is a keyed store of the latest V per K.
type Service[K comparable, V any] interface {
	// GetData returns the zero V when key is absent.
	GetData(key K) V
	Lookup(key K) (V, bool)
	OnMessage(ctx context.Context, v V) error
	AddListener(l Listener[V])
	Listeners() []Listener[V]
}

// Connector moves values across the process boundary. Subscribe ingests
// records from r into a service; Publish pushes a value outward.
type Connector[V any] interface {
	Publish(ctx context.Context, v V) error
	Subscribe(ctx context.Context, r io.Reader) error
}

// ListenerFuncs adapts plain functions into a Listener. Nil hooks are no-ops.
type ListenerFuncs[V any] struct {
	Add    func(ctx context.Context, v V) error
	Remove func(ctx context.Context, v V) error
	Update func(ctx context.Context, v V) error
}

func (f ListenerFuncs[V]) ProcessAdd(ctx context.Context, v V) error {
	if f.Add == nil {
		return nil
	}
	return f.Add(ctx, v)
}

func (f ListenerFuncs[V]) ProcessRemove(ctx context.Context, v V) error {
	if f.Remove == nil {
		return nil
	}
	return f.Remove(ctx, v)
}

func (f ListenerFuncs[V]) ProcessUpdate(ctx context.Context, v V) error {
	if f.Update == nil {
		return nil
	}
	return f.Update(ctx, v)
}

// OnAdd is shorthand for a listener that only reacts to adds.
func OnAdd[V any](fn func(ctx context.Context, v V) error) Listener[V] {
	return ListenerFuncs[V]{Add: fn}
}

// Recorder collects every value passed to ProcessAdd. Zero value is ready.
type Recorder[V any] struct {
	Added   []V
	Removed []V
	Updated []V
}

func (r *Recorder[V]) ProcessAdd(_ context.Context, v V) error {
	r.Added = append(r.Added, v)
	return nil
}

func (r *Recorder[V]) ProcessRemove(_ context.Context, v V) error {
	r.Removed = append(r.Removed, v)
	return nil
}

func (r *Recorder[V]) ProcessUpdate(_ context.Context, v V) error {
	r.Updated = append(r.Updated, v)
	return nil
}

// Last returns the most recently added value.
func (r *Recorder[V]) Last() (V, bool) {
	var zero V
	if len(r.Added) == 0 {
		return zero, false
	}
	return r.Added[len(r.Added)-1], true
}

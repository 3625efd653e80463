package latent

import (
	"context"

	"github.com/b97tsk/unco"
)

// A Loader loads the resource named by key.
//
// Load runs on its own goroutine and should return promptly once ctx is
// canceled.
type Loader[T any] interface {
	Load(ctx context.Context, key string) (T, error)
}

// The LoaderFunc type is an adapter to allow the use of ordinary functions
// as a [Loader].
type LoaderFunc[T any] func(ctx context.Context, key string) (T, error)

func (f LoaderFunc[T]) Load(ctx context.Context, key string) (T, error) {
	return f(ctx, key)
}

// A LoadAwaiter is an [unco.Awaiter] that resumes a task once a background
// load completes.
type LoadAwaiter[T any] struct {
	m      *Manager
	loader Loader[T]
	key    string
	value  T
	err    error
	resume unco.Resume
	cancel context.CancelFunc
}

// Load returns a [LoadAwaiter] that loads key with loader.
//
// The load starts when a task suspends on the awaiter, on a goroutine of its
// own; its result is delivered by the next [Manager.Update] after it
// completes. Disarming the awaiter cancels the load.
//
// An empty key, or a closed m, does not suspend the task; Err reports
// [ErrEmptyKey] or [ErrClosed].
func Load[T any](m *Manager, loader Loader[T], key string) *LoadAwaiter[T] {
	return &LoadAwaiter[T]{m: m, loader: loader, key: key}
}

func (a *LoadAwaiter[T]) Ready() bool {
	switch {
	case a.key == "":
		a.err = ErrEmptyKey
	case a.m.closed:
		a.err = ErrClosed
	default:
		return false
	}
	return true
}

func (a *LoadAwaiter[T]) Suspend(resume unco.Resume) {
	ctx, cancel := context.WithCancel(a.m.ctx)
	a.resume, a.cancel = resume, cancel

	m, loader, key := a.m, a.loader, a.key

	go func() {
		v, err := loader.Load(ctx, key)
		m.post(func() {
			if ctx.Err() != nil {
				return // Disarmed.
			}
			cancel()
			a.value, a.err = v, err
			resume := a.resume
			a.resume, a.cancel = nil, nil
			resume()
		})
	}()
}

func (a *LoadAwaiter[T]) Disarm() {
	a.resume = nil
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Value returns the loaded value. It is only meaningful once the task has
// resumed.
func (a *LoadAwaiter[T]) Value() T {
	return a.value
}

// Err returns the error the load failed with, if any.
func (a *LoadAwaiter[T]) Err() error {
	return a.err
}

// AwaitLoad loads key with loader, suspending the task until the result is
// delivered.
func AwaitLoad[T any](co *unco.Co, m *Manager, loader Loader[T], key string) (T, error) {
	a := Load(m, loader, key)
	co.Await(a)
	return a.value, a.err
}

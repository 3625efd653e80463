package latent

import "github.com/b97tsk/unco"

// A Lazy is a value that becomes available at some point after the world
// starts, e.g. a singleton created by some other system.
//
// Tasks await it with the Await method. Setting it resumes every task
// awaiting it.
//
// A Lazy must not be shared by more than one world.
type Lazy[T any] struct {
	sig   unco.Signal
	value T
	set   bool
}

// Get returns the value of l and whether it has been set.
func (l *Lazy[T]) Get() (T, bool) {
	return l.value, l.set
}

// Set sets the value of l and resumes every task awaiting l.
func (l *Lazy[T]) Set(v T) {
	l.value, l.set = v, true
	l.sig.Notify()
}

// Reset clears the value of l. Tasks that await l afterwards suspend until
// the next call of Set.
func (l *Lazy[T]) Reset() {
	var zero T
	l.value, l.set = zero, false
}

// Await returns an [unco.ValueAwaiter] for the value of l.
// It is ready right away if l has been set.
func (l *Lazy[T]) Await() unco.ValueAwaiter[T] {
	return &lazyAwaiter[T]{l: l}
}

type lazyAwaiter[T any] struct {
	l     *Lazy[T]
	inner unco.Awaiter
}

func (a *lazyAwaiter[T]) Ready() bool {
	return a.l.set
}

func (a *lazyAwaiter[T]) Suspend(resume unco.Resume) {
	a.inner = a.l.sig.Await()
	a.inner.Suspend(resume)
}

func (a *lazyAwaiter[T]) Disarm() {
	if a.inner != nil {
		a.inner.Disarm()
		a.inner = nil
	}
}

func (a *lazyAwaiter[T]) Value() T {
	return a.l.value
}

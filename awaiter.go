package unco

// Resume is a one-shot token that resumes a suspended [Task].
//
// Calling a Resume more than once, or after the task has been released,
// has no effect.
// A Resume must be called on the goroutine that drives the [Scheduler].
type Resume func()

// An Awaiter is something a [Task] can suspend on.
//
// Awaiters are the boundary between a task and whatever external event
// wakes it up (a delay, the next tick, a timer, a load, a signal, etc.).
//
// When a task awaits an Awaiter, Ready is called first. If it returns true,
// the task continues without suspending. Otherwise Suspend is called with
// a [Resume] token and the task suspends. The Awaiter must call that token
// exactly once when its condition is met, or never.
//
// If the task is released while suspended on an Awaiter, Disarm is called.
// After Disarm, the Awaiter must drop the token and must not call it.
type Awaiter interface {
	Ready() bool
	Suspend(resume Resume)
	Disarm()
}

// A ValueAwaiter is an [Awaiter] that produces a value once the task
// resumes.
type ValueAwaiter[T any] interface {
	Awaiter
	Value() T
}

// AwaitValue awaits a and returns the value it produced.
func AwaitValue[T any](co *Co, a ValueAwaiter[T]) T {
	co.Await(a)
	return a.Value()
}

type readyAwaiter struct{}

func (readyAwaiter) Ready() bool    { return true }
func (readyAwaiter) Suspend(Resume) {}
func (readyAwaiter) Disarm()        {}

// Ready returns an [Awaiter] that is always ready.
func Ready() Awaiter {
	return readyAwaiter{}
}

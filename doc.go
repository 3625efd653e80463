// Package unco is a library for running cooperative background work on
// behalf of entities in a tick-driven world.
//
// Everything here is single-threaded. A world owns one [Scheduler] and
// drives it once per update, from one goroutine. Bodies of tasks and
// generators run on coroutines (see [iter.Pull]) that hand control back and
// forth synchronously, so no two of them ever run at the same time.
//
// Every task and generator is bound to an [Owner], a non-owning reference
// to the entity it runs for. The scheduler never keeps an owner alive; it
// only asks whether the owner is still valid.
//
// # Tasks
//
// A [Task] is fire-and-forget. [Scheduler.Start] runs its body right away,
// up to the first suspension point, and returns a handle:
//
//	h := s.Start(owner, func(co *unco.Co) {
//		co.Await(delay)
//		// ...
//	})
//	defer h.Discard()
//
// A task suspends with [Co.Await] on an [Awaiter], which resumes it later
// by calling a one-shot [Resume] token. Nothing else ever resumes a task.
//
// The handle decides the fate of the task when it is discarded. A task that
// has already ended is released. A pending task whose owner is still valid
// is handed to the scheduler, which keeps it until it ends; the task then
// removes itself. A pending task whose owner is gone is abandoned.
//
// A task cannot be awaited and returns nothing. There is no way to wait for
// a task to end.
//
// # Generators
//
// A [Generator] is driven from outside, one step at a time, by
// [Generator.Advance]. It does not run until it is advanced, and it
// suspends with [Yielder.Yield].
//
// Generators are normally handed to [Scheduler.DistributedFrame], which
// spreads their work over several updates: on every update, each generator
// is advanced at least once and then again until it finishes or its time
// budget for that update is used up. A step is never interrupted, so
// a generator may overrun its budget by one step.
//
// # Faults
//
// A panic in a task or generator body is recovered. The computation ends
// with [StatusFaulted] and the panic is kept as a [Fault]. It is never
// propagated to anyone.
//
// # Cancellation
//
// There is none, except for owners going away. A generator whose owner is
// no longer valid is dropped at the end of the next update. A task that is
// already kept by the scheduler is only dropped when another task is handed
// over, or when the scheduler is closed.
package unco

package unco

import "slices"

// A Signal is an external event that tasks can await.
//
// Calling the Notify method of a Signal resumes every [Task] that is
// awaiting the Signal, in the order they started awaiting it.
//
// A Signal must not be shared by more than one [Scheduler].
type Signal struct {
	waiters []*signalAwaiter
}

// Await returns an [Awaiter] that suspends a task until the next call of
// the Notify method.
func (s *Signal) Await() Awaiter {
	return &signalAwaiter{s: s}
}

// Notify resumes every task that is awaiting s.
//
// Tasks that start awaiting s during Notify are not resumed until the next
// call of Notify.
func (s *Signal) Notify() {
	waiters := s.waiters
	s.waiters = nil
	for _, w := range waiters {
		if resume := w.resume; resume != nil {
			w.resume = nil
			resume()
		}
	}
}

// Waiting returns the number of tasks awaiting s.
func (s *Signal) Waiting() int {
	return len(s.waiters)
}

type signalAwaiter struct {
	s      *Signal
	resume Resume
}

func (w *signalAwaiter) Ready() bool {
	return false
}

func (w *signalAwaiter) Suspend(resume Resume) {
	w.resume = resume
	w.s.waiters = append(w.s.waiters, w)
}

func (w *signalAwaiter) Disarm() {
	w.resume = nil
	w.s.waiters = slices.DeleteFunc(w.s.waiters, func(v *signalAwaiter) bool {
		return v == w
	})
}

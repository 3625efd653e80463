package unco

import "iter"

// A frame is the suspended state of a computation running on a coroutine
// created by iter.Pull.
//
// Control is handed back and forth synchronously: while the body runs, the
// caller of resume is blocked, and vice versa.
type frame struct {
	next      func() (struct{}, bool)
	stop      func()
	yield     func(struct{}) bool
	status    Status
	fault     *Fault
	running   bool
	unwinding bool
}

func (fr *frame) init(body func()) {
	fr.next, fr.stop = iter.Pull(func(yield func(struct{}) bool) {
		fr.yield = yield
		fault, abandoned := try(body)
		switch {
		case abandoned:
			fr.status = StatusAbandoned
		case fault != nil:
			fr.status = StatusFaulted
			fr.fault = fault
		default:
			fr.status = StatusFinished
		}
	})
}

// resume runs fr until it suspends or ends, and reports whether fr is still
// pending.
func (fr *frame) resume() bool {
	fr.running = true
	_, ok := fr.next()
	fr.running = false
	return ok
}

// suspend must only be called from the body of fr.
func (fr *frame) suspend() {
	if fr.unwinding || !fr.yield(struct{}{}) {
		fr.unwinding = true
		panic(abandon{})
	}
}

func (fr *frame) done() bool {
	return fr.status != StatusPending
}

// release frees fr. A suspended body unwinds through its deferred calls;
// a body that never started is simply dropped.
func (fr *frame) release() {
	if fr.running {
		panic("unco: frame released while running")
	}
	fr.stop()
	if fr.status == StatusPending {
		fr.status = StatusAbandoned
	}
}

package unco

// A TaskFunc is the body of a [Task].
type TaskFunc func(co *Co)

// Co is handed to the body of a [Task] for suspending it.
type Co struct {
	t *taskFrame
}

// Await suspends the task until a resumes it.
//
// If a is ready, Await returns immediately. Otherwise the task suspends
// until a calls the [Resume] token passed to its Suspend method.
//
// If the task is released while suspended, Await does not return;
// the body unwinds through its deferred calls instead, and any Await
// reached while unwinding exits immediately.
func (co *Co) Await(a Awaiter) {
	t := co.t
	if t.unwinding {
		panic(abandon{})
	}
	if a.Ready() {
		return
	}
	tok := &token{t: t}
	t.token, t.awaiter = tok, a
	a.Suspend(tok.resume)
	if t.token != tok {
		return // Resumed during Suspend.
	}
	t.suspend()
}

// Owner returns the owner of the task.
func (co *Co) Owner() Owner {
	return co.t.owner
}

// Scheduler returns the scheduler that started the task.
func (co *Co) Scheduler() *Scheduler {
	return co.t.sched
}

type ownership uint8

const (
	ownedLocal    ownership = iota // owned by the Task handle
	ownedRegistry                  // owned by the scheduler's registry
	ownedNone                      // released
)

type taskFrame struct {
	frame
	sched   *Scheduler
	owner   Owner
	own     ownership
	awaiter Awaiter
	token   *token
}

func (t *taskFrame) resume() {
	if t.frame.resume() {
		return
	}

	// Terminal suspension: the frame stays alive until whoever owns it
	// releases it.
	s := t.sched
	if t.status == StatusFaulted {
		s.stats.TasksFaulted++
		s.log.Debug().Str("owner", ownerName(t.owner)).Err(t.fault).Msg("unco: task faulted")
	} else {
		s.stats.TasksFinished++
	}

	if t.own == ownedRegistry {
		s.unregisterTask(t.owner, t)
	}
}

func (t *taskFrame) release() {
	t.own = ownedNone
	t.token = nil
	if a := t.awaiter; a != nil {
		t.awaiter = nil
		a.Disarm()
	}
	t.frame.release()
}

type token struct {
	t *taskFrame
}

func (tok *token) resume() {
	t := tok.t
	if t == nil {
		return
	}
	tok.t = nil
	if t.token != tok || t.own == ownedNone {
		return
	}
	t.token, t.awaiter = nil, nil
	if t.running {
		return // Called from inside Suspend; Await carries on.
	}
	t.resume()
}

// A Task is the local handle of a fire-and-forget computation started by
// [Scheduler.Start].
//
// The only thing a Task handle does is decide, when discarded, what happens
// to its computation:
//   - if the computation has already ended, it is released;
//   - else, if its owner is still valid, it is handed to the scheduler,
//     which keeps it alive until it ends (see [Scheduler.Start]);
//   - else, it is abandoned.
//
// A Task cannot be awaited: it is not an [Awaiter].
// A Task must not be copied.
type Task struct {
	_         noCopy
	t         *taskFrame
	discarded bool
}

// Discard discards h. Discard is idempotent.
//
// The usual pattern is:
//
//	h := s.Start(owner, fn)
//	defer h.Discard()
func (h *Task) Discard() {
	if h.discarded {
		return
	}
	h.discarded = true

	t := h.t
	s := t.sched

	switch {
	case t.done():
		t.release()
	case valid(t.owner) && !s.closed:
		s.registerTask(t.owner, t)
	default:
		s.abandonTask(t, "owner invalid on discard")
	}
}

// Status returns the status of the computation behind h.
//
// Status remains meaningful after Discard: it keeps tracking a computation
// that was handed to the scheduler.
func (h *Task) Status() Status {
	return h.t.status
}

// Fault returns the recovered panic if the computation has faulted,
// or nil otherwise.
func (h *Task) Fault() *Fault {
	return h.t.fault
}

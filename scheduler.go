package unco

import (
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// A Scheduler runs the tasks and generators of one world.
//
// A Scheduler has two parts:
//   - a registry of tasks whose [Task] handle was discarded while they were
//     still pending; the registry keeps them alive until they end;
//   - a multiplexer that, once per world update, advances every generator
//     handed to [Scheduler.DistributedFrame], each within its own time
//     budget.
//
// A Scheduler is single-threaded. Its methods, task bodies, generator
// bodies and [Resume] tokens must all be called from the goroutine that
// drives the world.
type Scheduler struct {
	log     zerolog.Logger
	now     func() time.Time
	tasks   []cachedTask
	frames  []distributedFrame
	delayed []distributedFrame
	walking bool
	closed  bool
	stats   Stats
}

type distributedFrame struct {
	owner  Owner
	budget time.Duration
	gen    *Generator
}

// New creates a [Scheduler].
func New(opts ...Option) *Scheduler {
	c := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return &Scheduler{log: c.log, now: c.now}
}

// Start starts a task bound to owner, with fn as its body.
//
// The body runs immediately, up to its first suspension or to its end,
// before Start returns. The returned [Task] handle must be discarded when
// it goes out of scope:
//   - if the task has ended by then, it is released;
//   - else, if owner is still valid, the scheduler keeps the task alive
//     until it ends;
//   - else, the task is abandoned.
//
// A panic in fn is recovered; the task ends with [StatusFaulted].
func (s *Scheduler) Start(owner Owner, fn TaskFunc) *Task {
	if fn == nil {
		panic("unco: Start called with nil TaskFunc")
	}
	t := &taskFrame{sched: s, owner: owner}
	co := &Co{t: t}
	t.init(func() { fn(co) })
	s.stats.TasksStarted++
	t.resume()
	return &Task{t: t}
}

// Spawn starts a task like Start and discards its handle right away.
func (s *Scheduler) Spawn(owner Owner, fn TaskFunc) {
	s.Start(owner, fn).Discard()
}

// DistributedFrame hands g to s.
//
// From the next call of the Update method on, g is advanced at least once
// per update, and then again and again until it finishes or until budget
// has elapsed. A budget of zero or less therefore means one step per update.
//
// g is dropped, and closed, once it finishes or once the owner of g, or
// owner, becomes invalid. A nil owner is never valid.
//
// If DistributedFrame is called during Update (from a generator body),
// g only starts advancing on the next update.
// If s has been closed, g is closed immediately.
func (s *Scheduler) DistributedFrame(owner Owner, budget time.Duration, g *Generator) {
	if g == nil {
		panic("unco: DistributedFrame called with nil Generator")
	}
	if s.closed {
		g.Close()
		return
	}
	s.stats.FramesRequested++
	f := distributedFrame{owner: owner, budget: budget, gen: g}
	if s.walking {
		s.delayed = append(s.delayed, f)
		return
	}
	s.frames = append(s.frames, f)
}

// Distribute creates a [Generator] bound to owner with fn as its body, and
// hands it to s as DistributedFrame does.
func (s *Scheduler) Distribute(owner Owner, budget time.Duration, fn GeneratorFunc) {
	s.DistributedFrame(owner, budget, NewGenerator(owner, fn))
}

// Update runs one world update.
//
// Every generator handed to s before this update is advanced, in the order
// they were handed over. Generators that finished, or whose owner is no
// longer valid, are then dropped.
//
// Update must be called once per world update, and not from within a task
// or generator body.
func (s *Scheduler) Update() {
	if s.walking {
		panic("unco: Update called recursively")
	}
	if s.closed || len(s.frames) == 0 {
		return
	}

	s.walking = true
	s.stats.Updates++

	for i := range s.frames {
		f := &s.frames[i]
		g := f.gen
		if g.Finished() {
			continue
		}
		start := s.now()
		for {
			g.Advance()
			s.stats.Advances++
			if g.Finished() || s.now().Sub(start) >= f.budget {
				break
			}
		}
	}

	s.frames = slices.DeleteFunc(s.frames, s.dropFrame)

	s.frames = append(s.frames, s.delayed...)
	clear(s.delayed)
	s.delayed = s.delayed[:0]

	s.walking = false
}

func (s *Scheduler) dropFrame(f distributedFrame) bool {
	g := f.gen
	switch {
	case g.Finished():
		switch g.Status() {
		case StatusFaulted:
			s.stats.FramesFaulted++
			s.log.Debug().Str("owner", ownerName(g.owner)).Err(g.Fault()).Msg("unco: generator faulted")
		case StatusAbandoned:
			s.stats.FramesClosed++
			s.log.Debug().Str("owner", ownerName(g.owner)).Msg("unco: generator closed elsewhere")
		default:
			s.stats.FramesFinished++
		}
	case !g.OwnerValid() || !valid(f.owner):
		s.stats.FramesPruned++
		s.log.Debug().Str("owner", ownerName(g.owner)).Msg("unco: generator dropped, owner invalid")
	default:
		return false
	}
	g.Close()
	return true
}

// Close tears s down.
//
// Every task still kept alive by s is abandoned and every generator handed
// to s is closed, with no completion guarantee. Afterwards, discarding
// a pending [Task] abandons it, DistributedFrame closes its generator and
// Update does nothing.
//
// Close must not be called from within a task or generator body.
// Close is idempotent.
func (s *Scheduler) Close() {
	if s.walking {
		panic("unco: Close called during Update")
	}
	if s.closed {
		return
	}
	if slices.ContainsFunc(s.tasks, func(c cachedTask) bool { return c.t.running }) {
		panic("unco: Close called from within a task body")
	}
	s.closed = true

	tasks := s.tasks
	s.tasks = nil
	for _, c := range tasks {
		if c.t.own == ownedRegistry {
			s.abandonTask(c.t, "scheduler closed")
		}
	}

	frames := slices.Concat(s.frames, s.delayed)
	s.frames, s.delayed = nil, nil
	for _, f := range frames {
		f.gen.Close()
	}

	s.log.Debug().Int("tasks", len(tasks)).Int("generators", len(frames)).Msg("unco: scheduler closed")
}

// Closed reports whether s has been closed.
func (s *Scheduler) Closed() bool {
	return s.closed
}

// Stats returns a snapshot of the counters of s.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.ActiveFrames = len(s.frames)
	st.PendingFrames = len(s.delayed)
	st.RegisteredTasks = len(s.tasks)
	return st
}

// Package world hosts a minimal tick-driven world for running tasks and
// generators on behalf of its entities.
//
// A [World] owns its entities, one [unco.Scheduler] and one
// [latent.Manager]. Entities are referred to by [Ref], a generation-checked
// handle that implements [unco.Owner]: once an entity is destroyed, every
// Ref to it becomes invalid, and the scheduler drops whatever ran for it.
package world

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/b97tsk/unco"
	"github.com/b97tsk/unco/latent"
	"github.com/rs/zerolog"
)

// A World is a container of entities updated once per tick.
//
// A World is single-threaded.
type World struct {
	name         string
	log          zerolog.Logger
	pool         pool
	destroyQueue []EntityID
	sched        *unco.Scheduler
	latent       *latent.Manager
	tick         uint64
	closed       bool
}

// An Option configures a [World].
type Option func(*options)

type options struct {
	log  zerolog.Logger
	now  func() time.Time
	rand *rand.Rand
}

// WithLogger sets the logger of a [World], its scheduler and its latent
// action manager.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithClock sets the clock the scheduler measures generator budgets with.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithSeed seeds the randomness used for timer variance.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.rand = rand.New(rand.NewPCG(seed, seed))
	}
}

// New creates a [World].
func New(name string, opts ...Option) *World {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	log := o.log.With().Str("world", name).Logger()

	w := &World{
		name: name,
		log:  log,
		sched: unco.New(
			unco.WithLogger(log),
			unco.WithClock(o.now),
		),
		latent: latent.NewManager(
			latent.WithLogger(log),
			latent.WithRand(o.rand),
		),
	}

	w.log.Debug().Msg("world created")

	return w
}

// Name returns the name of w.
func (w *World) Name() string { return w.name }

// Scheduler returns the scheduler of w.
func (w *World) Scheduler() *unco.Scheduler { return w.sched }

// Latent returns the latent action manager of w.
func (w *World) Latent() *latent.Manager { return w.latent }

// Tick returns the number of completed updates.
func (w *World) Tick() uint64 { return w.tick }

// Entities returns the number of live entities.
func (w *World) Entities() int { return w.pool.live }

// Spawn creates an entity.
func (w *World) Spawn(name string) Ref {
	if w.closed {
		return Ref{}
	}
	return Ref{w: w, id: w.pool.create(name)}
}

// Alive reports whether r refers to a live entity of w.
func (w *World) Alive(r Ref) bool {
	return r.w == w && w.pool.alive(r.id)
}

// Destroy destroys the entity r refers to, right away.
// Destroying an entity that is already gone does nothing.
func (w *World) Destroy(r Ref) {
	if r.w != w {
		return
	}
	if name := w.pool.name(r.id); w.pool.destroy(r.id) {
		w.log.Debug().Str("entity", name).Uint64("id", uint64(r.id)).Msg("entity destroyed")
	}
}

// MarkForDestruction queues the entity r refers to for destruction at the
// end of the current (or next) update.
func (w *World) MarkForDestruction(r Ref) {
	if r.w != w {
		return
	}
	w.destroyQueue = append(w.destroyQueue, r.id)
}

// Update runs one tick: pending latent actions advance by dt, then the
// scheduler walks its generators, then queued entities are destroyed.
func (w *World) Update(dt time.Duration) {
	if w.closed {
		return
	}

	w.latent.Update(dt)
	w.sched.Update()
	w.flushDestroyQueue()

	w.tick++
}

func (w *World) flushDestroyQueue() {
	for _, id := range w.destroyQueue {
		w.Destroy(Ref{w: w, id: id})
	}
	clear(w.destroyQueue)
	w.destroyQueue = w.destroyQueue[:0]
}

// Close tears w down: every task and generator still running is abandoned,
// every latent action is disarmed, then every entity is destroyed.
// Close is idempotent.
func (w *World) Close() {
	if w.closed {
		return
	}
	w.closed = true

	w.latent.Close()
	w.sched.Close()

	entities := w.pool.live
	w.pool = pool{}
	w.destroyQueue = nil

	w.log.Debug().Uint64("ticks", w.tick).Int("entities", entities).Msg("world closed")
}

// A Ref is a generation-checked reference to an entity of a [World].
//
// A Ref does not keep its entity alive. It is valid for as long as the
// entity exists; once the entity is destroyed the Ref stays invalid forever,
// even if its slot is reused.
//
// The zero Ref is never valid. Refs are comparable.
type Ref struct {
	w  *World
	id EntityID
}

// Valid reports whether the entity still exists.
func (r Ref) Valid() bool {
	return r.w != nil && r.w.pool.alive(r.id)
}

// Resolve returns the ID of the entity, if it still exists.
func (r Ref) Resolve() (EntityID, bool) {
	if !r.Valid() {
		return 0, false
	}
	return r.id, true
}

// ID returns the ID r was created with, whether or not it is still valid.
func (r Ref) ID() EntityID { return r.id }

// Name returns the name of the entity, or "" if it no longer exists.
func (r Ref) Name() string {
	if r.w == nil {
		return ""
	}
	return r.w.pool.name(r.id)
}

func (r Ref) String() string {
	if name := r.Name(); name != "" {
		return fmt.Sprintf("%s#%d.%d", name, r.id.Index(), r.id.Generation())
	}
	return fmt.Sprintf("#%d.%d", r.id.Index(), r.id.Generation())
}

var _ unco.Owner = Ref{}

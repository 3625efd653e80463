// Package latent provides the event adapters tasks await on: delays,
// next-tick resumption, timers, background loads and late-initialized
// values.
//
// Every adapter resumes its task at most once, always from the goroutine
// that calls [Manager.Update], and never after being disarmed.
package latent

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrClosed is reported by awaiters created on a closed [Manager].
	ErrClosed = errors.New("latent: manager closed")
	// ErrEmptyKey is reported by [Load] when called with an empty key.
	ErrEmptyKey = errors.New("latent: empty key")
)

// A Manager keeps the pending latent actions of one world and updates them
// once per tick.
//
// Like the scheduler it runs next to, a Manager is single-threaded: all its
// methods must be called from the goroutine that drives the world.
// The only exception is the delivery of background load results, which is
// done through a channel and picked up by Update.
type Manager struct {
	log     zerolog.Logger
	rand    *rand.Rand
	ctx     context.Context
	cancel  context.CancelFunc
	inbox   chan func()
	actions []*action
	pending []*action
	walking bool
	closed  bool
}

// An Option configures a [Manager].
type Option func(*Manager)

// WithLogger sets the logger a [Manager] reports to.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithRand sets the source of randomness used for timer variance.
func WithRand(r *rand.Rand) Option {
	return func(m *Manager) {
		if r != nil {
			m.rand = r
		}
	}
}

// NewManager creates a [Manager].
func NewManager(opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		log:    zerolog.Nop(),
		rand:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		ctx:    ctx,
		cancel: cancel,
		inbox:  make(chan func(), 64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Update advances every pending action by dt.
//
// Results of background loads that completed since the last update are
// delivered first. Actions created during Update, by the tasks it resumes,
// start counting on the next update.
func (m *Manager) Update(dt time.Duration) {
	if m.walking {
		panic("latent: Update called recursively")
	}
	if m.closed {
		return
	}

	m.walking = true

	for range len(m.inbox) {
		deliver := <-m.inbox
		deliver()
	}

	for _, a := range m.actions {
		a.update(dt)
	}

	m.actions = slices.DeleteFunc(m.actions, (*action).finished)

	m.actions = append(m.actions, m.pending...)
	clear(m.pending)
	m.pending = m.pending[:0]

	m.walking = false
}

// Len returns the number of actions still waiting to fire.
func (m *Manager) Len() int {
	n := 0
	for _, a := range slices.Concat(m.actions, m.pending) {
		if !a.finished() {
			n++
		}
	}
	return n
}

// Close disarms every pending action and cancels every background load.
// Tasks awaiting them are never resumed. Close is idempotent.
func (m *Manager) Close() {
	if m.walking {
		panic("latent: Close called during Update")
	}
	if m.closed {
		return
	}
	m.closed = true
	m.cancel()

	actions := slices.Concat(m.actions, m.pending)
	m.actions, m.pending = nil, nil
	for _, a := range actions {
		a.disarm()
	}

	m.log.Debug().Int("actions", len(actions)).Msg("latent: manager closed")
}

func (m *Manager) add(a *action) {
	if m.walking {
		m.pending = append(m.pending, a)
		return
	}
	m.actions = append(m.actions, a)
}

// post hands deliver to the goroutine that calls Update.
// It gives up once m is closed.
func (m *Manager) post(deliver func()) {
	select {
	case m.inbox <- deliver:
	case <-m.ctx.Done():
	}
}

// An action resumes a task once its countdown reaches zero.
type action struct {
	remaining time.Duration
	resume    func()
}

func (a *action) update(dt time.Duration) {
	if a.resume == nil {
		return
	}
	a.remaining -= dt
	if a.remaining > 0 {
		return
	}
	resume := a.resume
	a.resume = nil
	resume()
}

func (a *action) finished() bool {
	return a.resume == nil
}

func (a *action) disarm() {
	a.resume = nil
}

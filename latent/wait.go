package latent

import (
	"time"

	"github.com/b97tsk/unco"
)

type waitAwaiter struct {
	m     *Manager
	ready bool
	wait  func() time.Duration
	act   *action
}

func (w *waitAwaiter) Ready() bool {
	return w.ready
}

func (w *waitAwaiter) Suspend(resume unco.Resume) {
	if w.m.closed {
		return // Never resumed; the task goes when its owner does.
	}
	w.act = &action{remaining: w.wait(), resume: resume}
	w.m.add(w.act)
}

func (w *waitAwaiter) Disarm() {
	if w.act != nil {
		w.act.disarm()
		w.act = nil
	}
}

// Delay returns an [unco.Awaiter] that resumes a task once d has elapsed,
// counted in the dt passed to [Manager.Update] from the next update on.
//
// If d is zero or negative, the task does not suspend.
func (m *Manager) Delay(d time.Duration) unco.Awaiter {
	return &waitAwaiter{
		m:     m,
		ready: d <= 0,
		wait:  func() time.Duration { return d },
	}
}

// NextTick returns an [unco.Awaiter] that resumes a task on the next call
// of [Manager.Update]. The task always suspends.
func (m *Manager) NextTick() unco.Awaiter {
	return &waitAwaiter{
		m:    m,
		wait: func() time.Duration { return 0 },
	}
}

// Timer returns an [unco.Awaiter] that resumes a task once d plus
// initialDelay, shifted by a random amount within ±variance, has elapsed.
// If that sum is negative, the timer fires after d alone.
//
// The random shift is drawn when the task suspends.
// If d is exactly zero, the task does not suspend.
func (m *Manager) Timer(d, initialDelay, variance time.Duration) unco.Awaiter {
	return &waitAwaiter{
		m:     m,
		ready: d == 0,
		wait: func() time.Duration {
			first := d + initialDelay
			if variance > 0 {
				first += time.Duration((2*m.rand.Float64() - 1) * float64(variance))
			}
			if first < 0 {
				return d
			}
			return first
		},
	}
}

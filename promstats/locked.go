package promstats

import (
	"sync"

	"github.com/b97tsk/unco"
)

// Locked is a [StatsSource] holding the latest snapshot published by the
// goroutine that drives a scheduler.
type Locked struct {
	mu sync.Mutex
	st unco.Stats
}

// Publish stores st as the latest snapshot.
func (l *Locked) Publish(st unco.Stats) {
	l.mu.Lock()
	l.st = st
	l.mu.Unlock()
}

func (l *Locked) Stats() unco.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st
}

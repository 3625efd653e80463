package unco

import (
	"fmt"
	"slices"
)

type cachedTask struct {
	owner Owner
	t     *taskFrame
}

// registerTask takes ownership of t, whose handle was discarded while t was
// still pending.
//
// Entries that have been released elsewhere, or whose owner has become
// invalid since they were registered, are pruned first. A task that is
// running (the one registering t, typically) is never pruned.
// Nothing else sweeps the registry: a stale entry lingers until the next
// registration or until its task ends by itself.
func (s *Scheduler) registerTask(owner Owner, t *taskFrame) {
	var stale []*taskFrame

	s.tasks = slices.DeleteFunc(s.tasks, func(c cachedTask) bool {
		switch {
		case c.t.own != ownedRegistry:
			return true
		case !valid(c.owner) && !c.t.running:
			stale = append(stale, c.t)
			return true
		}
		return false
	})

	t.own = ownedRegistry
	s.tasks = append(s.tasks, cachedTask{owner: owner, t: t})
	s.stats.TasksRegistered++
	s.log.Debug().Str("owner", ownerName(owner)).Int("tasks", len(s.tasks)).Msg("unco: task registered")

	// Released only once t is in place: an unwinding body may resume t to
	// its end, or register another task.
	for _, old := range stale {
		s.stats.TasksPruned++
		s.abandonTask(old, "owner invalid on prune")
	}
}

// unregisterTask removes the entry matching (owner, t) and releases t.
// No match is not an error.
func (s *Scheduler) unregisterTask(owner Owner, t *taskFrame) {
	i := slices.IndexFunc(s.tasks, func(c cachedTask) bool {
		return c.t == t && sameOwner(c.owner, owner)
	})
	if i < 0 {
		return
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	s.stats.TasksUnregistered++
	s.log.Debug().Str("owner", ownerName(owner)).Int("tasks", len(s.tasks)).Msg("unco: task unregistered")
	t.release()
}

func (s *Scheduler) abandonTask(t *taskFrame, reason string) {
	s.stats.TasksAbandoned++
	s.log.Debug().Str("owner", ownerName(t.owner)).Str("reason", reason).Msg("unco: task abandoned")
	t.release()
}

func ownerName(o Owner) string {
	switch o := o.(type) {
	case nil:
		return "<nil>"
	case fmt.Stringer:
		return o.String()
	default:
		return fmt.Sprintf("%T", o)
	}
}

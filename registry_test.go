package unco

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type entity struct {
	name string
	dead bool
}

func (e *entity) Valid() bool    { return !e.dead }
func (e *entity) String() string { return e.name }

func awaitSignal(sig *Signal, trace *[]string, name string) TaskFunc {
	return func(co *Co) {
		defer func() { *trace = append(*trace, name+": exit") }()
		*trace = append(*trace, name+": start")
		co.Await(sig.Await())
		*trace = append(*trace, name+": resumed")
	}
}

func TestTaskOwnership(t *testing.T) {
	t.Run("FinishedBeforeDiscard", func(t *testing.T) {
		s := New()
		owner := &entity{name: "a"}

		h := s.Start(owner, func(co *Co) {})

		if h.t.own != ownedLocal || h.Status() != StatusFinished {
			t.Fatalf("unexpected state before discard: own=%d status=%v", h.t.own, h.Status())
		}

		h.Discard()

		if h.t.own != ownedNone {
			t.Fatalf("unexpected ownership after discard: %d", h.t.own)
		}
		if n := len(s.tasks); n != 0 {
			t.Fatalf("unexpected registry size: %d", n)
		}
		if st := s.Stats(); st.TasksRegistered != 0 || st.TasksFinished != 1 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("PendingWithValidOwner", func(t *testing.T) {
		s := New()
		owner := &entity{name: "a"}
		var sig Signal
		var trace []string

		h := s.Start(owner, awaitSignal(&sig, &trace, "t"))
		h.Discard()

		if h.t.own != ownedRegistry {
			t.Fatalf("unexpected ownership after discard: %d", h.t.own)
		}
		if n := len(s.tasks); n != 1 || s.tasks[0].t != h.t || s.tasks[0].owner != Owner(owner) {
			t.Fatalf("unexpected registry: %+v", s.tasks)
		}

		sig.Notify()

		if h.t.own != ownedNone || h.Status() != StatusFinished {
			t.Fatalf("unexpected state after resume: own=%d status=%v", h.t.own, h.Status())
		}
		if n := len(s.tasks); n != 0 {
			t.Fatalf("unexpected registry size: %d", n)
		}

		want := []string{"t: start", "t: resumed", "t: exit"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}
	})
	t.Run("PendingWithInvalidOwner", func(t *testing.T) {
		s := New()
		owner := &entity{name: "a"}
		var sig Signal
		var trace []string

		h := s.Start(owner, awaitSignal(&sig, &trace, "t"))
		owner.dead = true
		h.Discard()

		if h.t.own != ownedNone || h.Status() != StatusAbandoned {
			t.Fatalf("unexpected state: own=%d status=%v", h.t.own, h.Status())
		}
		if n := sig.Waiting(); n != 0 {
			t.Fatalf("awaiter was not disarmed: %d waiting", n)
		}

		want := []string{"t: start", "t: exit"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}
	})
	t.Run("FinishedWhileHandleAlive", func(t *testing.T) {
		s := New()
		owner := &entity{name: "a"}
		var sig Signal
		var trace []string

		h := s.Start(owner, awaitSignal(&sig, &trace, "t"))
		sig.Notify()

		if h.t.own != ownedLocal || h.Status() != StatusFinished {
			t.Fatalf("unexpected state: own=%d status=%v", h.t.own, h.Status())
		}

		h.Discard()
		h.Discard()

		if h.t.own != ownedNone {
			t.Fatalf("unexpected ownership after discard: %d", h.t.own)
		}
		if st := s.Stats(); st.TasksRegistered != 0 || st.TasksUnregistered != 0 || st.TasksAbandoned != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("StaleEntryLingers", func(t *testing.T) {
		s := New()
		a, b := &entity{name: "a"}, &entity{name: "b"}
		var sigA, sigB Signal
		var trace []string

		s.Spawn(a, awaitSignal(&sigA, &trace, "a"))
		a.dead = true

		// Nothing sweeps the registry on owner invalidation.
		if n := len(s.tasks); n != 1 {
			t.Fatalf("unexpected registry size: %d", n)
		}

		s.Spawn(b, awaitSignal(&sigB, &trace, "b"))

		if n := len(s.tasks); n != 1 || s.tasks[0].owner != Owner(b) {
			t.Fatalf("unexpected registry: %+v", s.tasks)
		}
		if n := sigA.Waiting(); n != 0 {
			t.Fatalf("pruned task was not disarmed: %d waiting", n)
		}

		want := []string{"a: start", "b: start", "a: exit"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}

		st := s.Stats()
		if st.TasksPruned != 1 || st.TasksAbandoned != 1 || st.TasksRegistered != 2 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("PruneFinishesRegisteringTask", func(t *testing.T) {
		s := New()
		a, b := &entity{name: "a"}, &entity{name: "b"}
		var sigA, sigB Signal
		var trace []string

		s.Spawn(a, func(co *Co) {
			defer sigB.Notify()
			co.Await(sigA.Await())
		})
		a.dead = true

		// Pruning a's task wakes b's task, which then runs to its end.
		h := s.Start(b, awaitSignal(&sigB, &trace, "b"))
		h.Discard()

		if h.Status() != StatusFinished || h.t.own != ownedNone {
			t.Fatalf("unexpected state: status=%v own=%d", h.Status(), h.t.own)
		}
		if n := len(s.tasks); n != 0 {
			t.Fatalf("finished task left in registry: %+v", s.tasks)
		}

		want := []string{"b: start", "b: resumed", "b: exit"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}

		st := s.Stats()
		if st.TasksPruned != 1 || st.TasksRegistered != 2 || st.TasksUnregistered != 1 || st.TasksFinished != 1 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("UnregisterWithoutMatch", func(t *testing.T) {
		s := New()
		a, b := &entity{name: "a"}, &entity{name: "b"}
		var sig Signal
		var trace []string

		h := s.Start(a, awaitSignal(&sig, &trace, "a"))
		h.Discard()

		s.unregisterTask(b, h.t)

		if n := len(s.tasks); n != 1 || h.t.own != ownedRegistry {
			t.Fatalf("unexpected registry after mismatched unregister: %+v", s.tasks)
		}
	})
	t.Run("RegistryOwnedTaskIsNotReleasedByHandle", func(t *testing.T) {
		s := New()
		a := &entity{name: "a"}
		var sig Signal
		var trace []string

		h := s.Start(a, awaitSignal(&sig, &trace, "a"))
		h.Discard()
		h.Discard() // Must not release what the registry owns.

		if h.t.own != ownedRegistry || h.Status() != StatusPending {
			t.Fatalf("unexpected state: own=%d status=%v", h.t.own, h.Status())
		}

		sig.Notify()

		if h.Status() != StatusFinished {
			t.Fatalf("unexpected status: %v", h.Status())
		}
		if st := s.Stats(); st.TasksUnregistered != 1 || st.TasksAbandoned != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("Close", func(t *testing.T) {
		s := New()
		a := &entity{name: "a"}
		var sig Signal
		var trace []string

		s.Spawn(a, awaitSignal(&sig, &trace, "x"))
		s.Close()

		if n := len(s.tasks); n != 0 {
			t.Fatalf("unexpected registry size: %d", n)
		}

		s.Spawn(a, awaitSignal(&sig, &trace, "y"))

		if n := len(s.tasks); n != 0 {
			t.Fatalf("task registered after close")
		}
		if n := sig.Waiting(); n != 0 {
			t.Fatalf("unexpected waiters: %d", n)
		}

		want := []string{"x: start", "x: exit", "y: start", "y: exit"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}
	})
}

func TestSameOwner(t *testing.T) {
	a, b := &entity{name: "a"}, &entity{name: "b"}
	if !sameOwner(a, a) || sameOwner(a, b) || sameOwner(a, nil) {
		t.Fatal("unexpected comparison of comparable owners")
	}
	type funcOwner struct {
		*entity
		f func()
	}
	u := funcOwner{entity: &entity{name: "u"}, f: func() {}}
	if !sameOwner(u, u) {
		t.Fatal("uncomparable owners must compare equal")
	}
}

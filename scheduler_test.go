package unco_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/b97tsk/unco"
	"github.com/google/go-cmp/cmp"
)

type entity struct {
	name string
	dead bool
}

func (e *entity) Valid() bool    { return !e.dead }
func (e *entity) String() string { return e.name }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newScheduler() (*unco.Scheduler, *fakeClock) {
	clk := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return unco.New(unco.WithClock(clk.Now)), clk
}

// chunks returns a generator body that does n chunks of work, each taking
// d on clk, yielding between chunks.
func chunks(clk *fakeClock, trace *[]string, name string, n int, d time.Duration) unco.GeneratorFunc {
	return func(y *unco.Yielder) {
		for i := range n {
			if i > 0 {
				y.Yield()
			}
			clk.Advance(d)
			*trace = append(*trace, fmt.Sprintf("%s%d", name, i+1))
		}
	}
}

func forever(count *int) unco.GeneratorFunc {
	return func(y *unco.Yielder) {
		for {
			*count++
			y.Yield()
		}
	}
}

func TestDistributedFrame(t *testing.T) {
	t.Run("NonPositiveBudget", func(t *testing.T) {
		for _, budget := range []time.Duration{0, -time.Millisecond} {
			s, _ := newScheduler()
			owner := &entity{name: "a"}
			var count int

			s.Distribute(owner, budget, forever(&count))

			for tick := 1; tick <= 3; tick++ {
				s.Update()
				if count != tick {
					t.Fatalf("budget %v: want %d advances after tick %d, got %d", budget, tick, tick, count)
				}
			}
		}
	})
	t.Run("AtLeastOneAdvance", func(t *testing.T) {
		s, clk := newScheduler()
		owner := &entity{name: "a"}
		var trace []string

		// Every chunk alone overruns the budget.
		s.Distribute(owner, time.Millisecond, chunks(clk, &trace, "a", 2, 10*time.Millisecond))

		s.Update()
		if len(trace) != 1 {
			t.Fatalf("want 1 advance, got %d", len(trace))
		}
		s.Update()
		if len(trace) != 2 {
			t.Fatalf("want 2 advances, got %d", len(trace))
		}
	})
	t.Run("Budget", func(t *testing.T) {
		s, clk := newScheduler()
		owner := &entity{name: "a"}
		var trace []string

		s.Distribute(owner, 5*time.Millisecond, chunks(clk, &trace, "a", 9, 2*time.Millisecond))

		for tick := 1; tick <= 3; tick++ {
			s.Update()
			if want := 3 * tick; len(trace) != want {
				t.Fatalf("tick %d: want %d chunks, got %d", tick, want, len(trace))
			}
		}

		st := s.Stats()
		if st.Advances != 9 || st.FramesFinished != 1 || st.ActiveFrames != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("MixedBudgets", func(t *testing.T) {
		s, clk := newScheduler()
		a, b := &entity{name: "a"}, &entity{name: "b"}
		var trace []string

		s.Distribute(a, 5*time.Millisecond, chunks(clk, &trace, "a", 3, 2*time.Millisecond))
		s.Distribute(b, 0, chunks(clk, &trace, "b", 3, 0))

		var ticks [][]string
		for range 3 {
			trace = nil
			s.Update()
			ticks = append(ticks, trace)
		}

		want := [][]string{
			{"a1", "a2", "a3", "b1"},
			{"b2"},
			{"b3"},
		}
		if diff := cmp.Diff(want, ticks); diff != "" {
			t.Error("wrong advances per tick\n" + diff)
		}

		if n := s.Stats().ActiveFrames; n != 0 {
			t.Fatalf("want no active frames, got %d", n)
		}
	})
	t.Run("RequestDuringWalk", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}
		var trace []string

		s.Distribute(owner, 0, func(y *unco.Yielder) {
			trace = append(trace, "a1")
			s.Distribute(owner, time.Hour, func(y *unco.Yielder) {
				trace = append(trace, "b1")
				y.Yield()
				trace = append(trace, "b2")
			})
			if n := s.Stats().PendingFrames; n != 1 {
				t.Errorf("want 1 pending frame during walk, got %d", n)
			}
			y.Yield()
			trace = append(trace, "a2")
		})

		s.Update()

		if diff := cmp.Diff([]string{"a1"}, trace); diff != "" {
			t.Error("new request advanced in the tick it was made\n" + diff)
		}
		if st := s.Stats(); st.ActiveFrames != 2 || st.PendingFrames != 0 {
			t.Fatalf("unexpected stats after merge: %+v", st)
		}

		s.Update()

		want := []string{"a1", "a2", "b1", "b2"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}
	})
	t.Run("OwnerInvalidatedDuringStep", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}
		var trace []string

		s.Distribute(owner, 0, func(y *unco.Yielder) {
			defer func() { trace = append(trace, "exit") }()
			for i := 1; ; i++ {
				trace = append(trace, fmt.Sprint("step", i))
				if i == 2 {
					owner.dead = true
				}
				y.Yield()
			}
		})

		s.Update()
		s.Update()
		s.Update()

		want := []string{"step1", "step2", "exit"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}
		if st := s.Stats(); st.FramesPruned != 1 || st.ActiveFrames != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("OwnerInvalidatedBetweenTicks", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}
		var count int

		s.Distribute(owner, 0, forever(&count))

		s.Update()
		owner.dead = true
		s.Update()
		s.Update()

		if count != 2 {
			t.Fatalf("want 2 advances, got %d", count)
		}
		if st := s.Stats(); st.FramesPruned != 1 || st.ActiveFrames != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("RequestOwner", func(t *testing.T) {
		s, _ := newScheduler()
		genOwner, reqOwner := &entity{name: "g"}, &entity{name: "r"}
		var count int

		s.DistributedFrame(reqOwner, 0, unco.NewGenerator(genOwner, forever(&count)))

		s.Update()
		reqOwner.dead = true
		s.Update()

		if st := s.Stats(); st.FramesPruned != 1 || st.ActiveFrames != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("NilRequestOwner", func(t *testing.T) {
		s, _ := newScheduler()
		var count int

		s.DistributedFrame(nil, 0, unco.NewGenerator(&entity{name: "a"}, forever(&count)))
		s.Update()
		s.Update()

		if count != 1 {
			t.Fatalf("want one step before pruning, got %d", count)
		}
		if st := s.Stats(); st.FramesPruned != 1 || st.ActiveFrames != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("ClosedElsewhere", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}
		var count int

		g := unco.NewGenerator(owner, forever(&count))
		s.DistributedFrame(owner, 0, g)
		s.Update()
		g.Close()
		s.Update()

		want := unco.Stats{
			Updates:         2,
			Advances:        1,
			FramesRequested: 1,
			FramesClosed:    1,
		}
		if diff := cmp.Diff(want, s.Stats()); diff != "" {
			t.Error("unexpected stats\n" + diff)
		}
	})
	t.Run("Fault", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}
		errBoom := errors.New("boom")
		var after bool

		g := unco.NewGenerator(owner, func(y *unco.Yielder) {
			y.Yield()
			panic(errBoom)
		})
		s.DistributedFrame(owner, 0, g)
		s.Distribute(owner, 0, func(y *unco.Yielder) {
			y.Yield()
			after = true
		})

		s.Update()
		s.Update()

		if g.Status() != unco.StatusFaulted || !errors.Is(g.Fault(), errBoom) {
			t.Fatalf("unexpected generator state: %v %v", g.Status(), g.Fault())
		}
		if !after {
			t.Error("fault stopped the walk")
		}

		want := unco.Stats{
			Updates:         2,
			Advances:        4,
			FramesRequested: 2,
			FramesFinished:  1,
			FramesFaulted:   1,
		}
		if diff := cmp.Diff(want, s.Stats()); diff != "" {
			t.Error("unexpected stats\n" + diff)
		}
	})
	t.Run("NilGenerator", func(t *testing.T) {
		s, _ := newScheduler()
		defer func() {
			if recover() == nil {
				t.Error("DistributedFrame did not panic")
			}
		}()
		s.DistributedFrame(&entity{}, 0, nil)
	})
	t.Run("RecursiveUpdate", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}
		var recovered any

		s.Distribute(owner, 0, func(y *unco.Yielder) {
			defer func() { recovered = recover() }()
			s.Update()
		})

		s.Update()

		if recovered == nil {
			t.Error("recursive Update did not panic")
		}
	})
}

func TestSchedulerClose(t *testing.T) {
	t.Run("Teardown", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}
		var sig unco.Signal
		var trace []string

		s.Spawn(owner, func(co *unco.Co) {
			defer func() { trace = append(trace, "task: exit") }()
			co.Await(sig.Await())
			trace = append(trace, "task: resumed")
		})
		s.Distribute(owner, 0, func(y *unco.Yielder) {
			defer func() { trace = append(trace, "gen: exit") }()
			for {
				y.Yield()
			}
		})
		s.Distribute(owner, 0, func(y *unco.Yielder) {
			trace = append(trace, "never started")
		})

		s.Close()
		s.Close()
		sig.Notify()
		s.Update()

		want := []string{"task: exit"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}
		if !s.Closed() {
			t.Error("scheduler is not closed")
		}
	})
	t.Run("StartedGenerator", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}
		var trace []string

		s.Distribute(owner, 0, func(y *unco.Yielder) {
			defer func() { trace = append(trace, "gen: exit") }()
			for {
				trace = append(trace, "gen: step")
				y.Yield()
			}
		})

		s.Update()
		s.Close()

		want := []string{"gen: step", "gen: exit"}
		if diff := cmp.Diff(want, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}
	})
	t.Run("FromTask", func(t *testing.T) {
		s, _ := newScheduler()
		a, b := &entity{name: "a"}, &entity{name: "b"}
		var sig, never unco.Signal
		var recovered any
		var trace []string

		s.Spawn(a, func(co *unco.Co) {
			co.Await(sig.Await())
			defer func() { recovered = recover() }()
			s.Close()
		})
		s.Spawn(b, func(co *unco.Co) {
			defer func() { trace = append(trace, "b: exit") }()
			co.Await(never.Await())
		})

		sig.Notify()

		if recovered == nil || s.Closed() {
			t.Fatalf("Close from a task body went through: recovered=%v", recovered)
		}
		if st := s.Stats(); st.RegisteredTasks != 1 || st.TasksAbandoned != 0 {
			t.Fatalf("unexpected stats: %+v", st)
		}

		s.Close()

		if diff := cmp.Diff([]string{"b: exit"}, trace); diff != "" {
			t.Error("wrong trace\n" + diff)
		}
		if st := s.Stats(); st.RegisteredTasks != 0 || st.TasksAbandoned != 1 {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
	t.Run("AfterClose", func(t *testing.T) {
		s, _ := newScheduler()
		owner := &entity{name: "a"}

		s.Close()

		g := unco.NewGenerator(owner, func(y *unco.Yielder) {
			t.Error("generator ran after close")
		})
		s.DistributedFrame(owner, 0, g)
		s.Update()

		if g.Status() != unco.StatusAbandoned {
			t.Fatalf("unexpected status: %v", g.Status())
		}

		want := unco.Stats{}
		if diff := cmp.Diff(want, s.Stats()); diff != "" {
			t.Error("unexpected stats\n" + diff)
		}
	})
}

package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/b97tsk/unco"
	"github.com/b97tsk/unco/latent"
	"github.com/b97tsk/unco/promstats"
	"github.com/b97tsk/unco/world"
	"github.com/rs/zerolog"
)

// navmesh stands for a world-wide resource that only becomes available
// some time after the world starts.
type navmesh struct {
	cells int
}

type simCounters struct {
	Loads     int
	LoadErrs  int
	Thinks    int
	Paths     int
	Destroyed int
	Spawned   int
}

type sim struct {
	cfg      simConfig
	log      zerolog.Logger
	w        *world.World
	mesh     latent.Lazy[*navmesh]
	catalog  *catalog
	live     *hub // nil unless someone may be watching
	entities []world.Ref
	next     int // next entity to destroy
	stats    promstats.Locked
	counters simCounters
}

func newSim(cfg simConfig, log zerolog.Logger) (*sim, error) {
	cat, err := openCatalog(cfg.AssetDB, cfg.LoadLatency)
	if err != nil {
		return nil, err
	}
	s := &sim{
		cfg:     cfg,
		log:     log,
		w:       world.New(cfg.World, world.WithLogger(log), world.WithSeed(cfg.Seed)),
		catalog: cat,
	}
	for i := range cfg.Entities {
		s.spawn(fmt.Sprintf("npc-%d", i))
	}
	return s, nil
}

// spawn creates an entity, stocks its asset in the catalog and starts
// its task and its generator.
func (s *sim) spawn(name string) {
	if err := s.catalog.put(context.Background(), name, "mesh:"+name); err != nil {
		s.log.Warn().Err(err).Str("entity", name).Msg("stock asset")
	}

	ref := s.w.Spawn(name)
	s.entities = append(s.entities, ref)
	s.w.Scheduler().Spawn(ref, s.behave(ref))
	s.w.Scheduler().Distribute(ref, s.cfg.FrameBudget, s.pathfind(ref))
}

// behave is the body of the task every entity runs: wait for the navmesh,
// stream in an asset, then think periodically.
func (s *sim) behave(ref world.Ref) unco.TaskFunc {
	return func(co *unco.Co) {
		m := s.w.Latent()

		mesh := unco.AwaitValue(co, s.mesh.Await())

		asset, err := latent.AwaitLoad[string](co, m, s.catalog, ref.Name())
		if err != nil {
			s.counters.LoadErrs++
			s.log.Warn().Err(err).Stringer("entity", ref).Msg("asset load failed")
			return
		}
		s.counters.Loads++
		s.log.Debug().Stringer("entity", ref).Str("asset", asset).Int("cells", mesh.cells).Msg("asset loaded")

		for ref.Valid() {
			co.Await(m.Timer(s.cfg.TaskPeriod, 0, s.cfg.TaskPeriod/4))
			s.counters.Thinks++
		}
	}
}

// pathfind is the body of the generator every entity runs: a chunked
// computation spread over as many updates as its budget requires.
func (s *sim) pathfind(ref world.Ref) unco.GeneratorFunc {
	return func(y *unco.Yielder) {
		h := fnv.New64a()
		for i := range s.cfg.WorkUnits {
			if i > 0 {
				y.Yield()
			}
			fmt.Fprintf(h, "%s/%d", ref.Name(), i)
		}
		s.counters.Paths++
		s.log.Debug().Stringer("entity", ref).Uint64("path", h.Sum64()).Msg("path found")
	}
}

// step runs one tick.
func (s *sim) step(dt time.Duration) {
	if s.w.Tick() == 0 {
		s.mesh.Set(&navmesh{cells: 1024})
	}

	s.w.Update(dt)

	if n := s.cfg.DestroyEvery; n > 0 && s.w.Tick()%uint64(n) == 0 && s.next < len(s.entities) {
		ref := s.entities[s.next]
		s.next++
		s.w.MarkForDestruction(ref)
		s.counters.Destroyed++
		s.log.Info().Stringer("entity", ref).Uint64("tick", s.w.Tick()).Msg("entity marked for destruction")

		// A replacement keeps the population steady. Handing its task over
		// is also what prunes tasks left behind by destroyed entities.
		s.spawn(fmt.Sprintf("npc-%d", len(s.entities)))
		s.counters.Spawned++
	}

	st := s.w.Scheduler().Stats()
	s.stats.Publish(st)

	if s.live != nil {
		s.live.publish(snapshot{
			World:    s.cfg.World,
			Tick:     s.w.Tick(),
			Stats:    st,
			Counters: s.counters,
		})
	}
}

// run ticks until cfg.Ticks is reached or ctx is done.
func (s *sim) run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for s.cfg.Ticks == 0 || s.w.Tick() < uint64(s.cfg.Ticks) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.step(now.Sub(last))
			last = now
		}
	}
	return nil
}

func (s *sim) close() {
	s.w.Close()
	s.stats.Publish(s.w.Scheduler().Stats())

	if err := s.catalog.close(); err != nil {
		s.log.Warn().Err(err).Msg("close catalog")
	}
}

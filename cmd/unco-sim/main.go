package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b97tsk/unco/internal/logging"
	"github.com/b97tsk/unco/promstats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "unco-sim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a config.toml")
	ticks := flag.Int("ticks", -1, "number of ticks to run, 0 runs until interrupted (overrides config)")
	flag.Parse()

	logging.Configure("unco-sim", logging.ProfileRuntime)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *ticks >= 0 {
		cfg.Ticks = *ticks
	}

	logger := log.Logger
	if os.Getenv(logging.EnvLogLevel) == "" {
		if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logger = logger.Level(lvl)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSim(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.HTTPAddr != "" {
		s.live = newHub(logger)
		go s.live.run(ctx)

		srv := serve(cfg, s, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().
		Str("world", cfg.World).
		Int("entities", cfg.Entities).
		Int("ticks", cfg.Ticks).
		Dur("tick_interval", cfg.TickInterval).
		Dur("frame_budget", cfg.FrameBudget).
		Msg("simulation starting")

	err = s.run(ctx)
	s.close()

	report(logger, s)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serve exposes the scheduler counters to Prometheus on /metrics and
// streams per-tick snapshots to websocket viewers on /live.
func serve(cfg simConfig, s *sim, logger zerolog.Logger) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(promstats.NewCollector(cfg.World, &s.stats))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/live", s.live)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", cfg.HTTPAddr).Msg("http server failed")
		}
	}()
	logger.Info().Str("addr", cfg.HTTPAddr).Msg("serving metrics and live feed")
	return srv
}

func report(logger zerolog.Logger, s *sim) {
	st := s.stats.Stats()
	logger.Info().
		Uint64("ticks", s.w.Tick()).
		Uint64("advances", st.Advances).
		Uint64("frames_finished", st.FramesFinished).
		Uint64("frames_pruned", st.FramesPruned).
		Uint64("tasks_started", st.TasksStarted).
		Uint64("tasks_registered", st.TasksRegistered).
		Uint64("tasks_pruned", st.TasksPruned).
		Uint64("tasks_abandoned", st.TasksAbandoned).
		Int("loads", s.counters.Loads).
		Int("thinks", s.counters.Thinks).
		Int("paths", s.counters.Paths).
		Int("load_errors", s.counters.LoadErrs).
		Int("destroyed", s.counters.Destroyed).
		Int("spawned", s.counters.Spawned).
		Msg("simulation finished")
}

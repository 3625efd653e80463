package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type simConfig struct {
	World        string
	Entities     int
	Ticks        int // 0 runs until interrupted
	TickInterval time.Duration
	FrameBudget  time.Duration
	WorkUnits    int
	TaskPeriod   time.Duration
	LoadLatency  time.Duration
	DestroyEvery int // 0 never destroys
	Seed         uint64
	AssetDB      string // ":memory:" keeps the asset catalog in memory
	LogLevel     string
	HTTPAddr     string // serves /metrics and /live; empty disables
}

func defaultConfig() simConfig {
	return simConfig{
		World:        "sim",
		Entities:     16,
		Ticks:        600,
		TickInterval: 16 * time.Millisecond,
		FrameBudget:  2 * time.Millisecond,
		WorkUnits:    64,
		TaskPeriod:   250 * time.Millisecond,
		LoadLatency:  40 * time.Millisecond,
		DestroyEvery: 30,
		Seed:         1,
		AssetDB:      memoryCatalog,
		LogLevel:     "info",
	}
}

// unco-sim config.toml key mapping to simulation settings.
type fileConfig struct {
	World        string `toml:"world"`
	Entities     int    `toml:"entities"`
	Ticks        int    `toml:"ticks"`
	TickInterval string `toml:"tick_interval"`
	FrameBudget  string `toml:"frame_budget"`
	WorkUnits    int    `toml:"work_units"`
	TaskPeriod   string `toml:"task_period"`
	LoadLatency  string `toml:"load_latency"`
	DestroyEvery int    `toml:"destroy_every"`
	Seed         int64  `toml:"seed"`
	AssetDB      string `toml:"asset_db"`
	LogLevel     string `toml:"log_level"`
	HTTPAddr     string `toml:"http_addr"`
}

// loadConfig decodes the file at path over the defaults.
// An empty path yields the defaults.
func loadConfig(path string) (simConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, cfg.validate()
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return simConfig{}, fmt.Errorf("load sim config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return simConfig{}, fmt.Errorf("load sim config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("world") {
		cfg.World = strings.TrimSpace(raw.World)
	}
	if meta.IsDefined("entities") {
		cfg.Entities = raw.Entities
	}
	if meta.IsDefined("ticks") {
		cfg.Ticks = raw.Ticks
	}
	if meta.IsDefined("work_units") {
		cfg.WorkUnits = raw.WorkUnits
	}
	if meta.IsDefined("destroy_every") {
		cfg.DestroyEvery = raw.DestroyEvery
	}
	if meta.IsDefined("seed") {
		cfg.Seed = uint64(raw.Seed)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("asset_db") {
		cfg.AssetDB = strings.TrimSpace(raw.AssetDB)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"tick_interval", raw.TickInterval, &cfg.TickInterval},
		{"frame_budget", raw.FrameBudget, &cfg.FrameBudget},
		{"task_period", raw.TaskPeriod, &cfg.TaskPeriod},
		{"load_latency", raw.LoadLatency, &cfg.LoadLatency},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return simConfig{}, fmt.Errorf("load sim config: %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.validate(); err != nil {
		return simConfig{}, fmt.Errorf("load sim config: %w", err)
	}
	return cfg, nil
}

func (c simConfig) validate() error {
	var errs []error
	if c.World == "" {
		errs = append(errs, errors.New("world must not be empty"))
	}
	if c.Entities < 0 {
		errs = append(errs, fmt.Errorf("entities must not be negative, got %d", c.Entities))
	}
	if c.Ticks < 0 {
		errs = append(errs, fmt.Errorf("ticks must not be negative, got %d", c.Ticks))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval))
	}
	if c.WorkUnits < 1 {
		errs = append(errs, fmt.Errorf("work_units must be at least 1, got %d", c.WorkUnits))
	}
	if c.AssetDB == "" {
		errs = append(errs, errors.New("asset_db must not be empty"))
	}
	if c.DestroyEvery < 0 {
		errs = append(errs, fmt.Errorf("destroy_every must not be negative, got %d", c.DestroyEvery))
	}
	return errors.Join(errs...)
}

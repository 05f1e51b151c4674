// Package config loads VM tuning knobs from the environment, in the style
// of a small ops-friendly struct rather than scattered flag globals.
package config

import "github.com/caarlos0/env/v6"

// Config holds the VM's runtime-tunable behavior. Zero value is not valid
// for direct use; call Load or Default.
type Config struct {
	// StressGC forces a collection before every allocation, which is much
	// slower but shakes out GC invariant bugs far more reliably than the
	// default heap-growth trigger.
	StressGC bool `env:"LOX_STRESS_GC" envDefault:"false"`

	// LogGC traces collector activity to the VM's logger: one line after
	// each cycle with objects freed, heap bytes before and after, and the
	// next threshold.
	LogGC bool `env:"LOX_LOG_GC" envDefault:"false"`

	// HeapGrowFactor multiplies bytesAllocated after each cycle to compute
	// the next collection threshold.
	HeapGrowFactor int `env:"LOX_HEAP_GROW_FACTOR" envDefault:"2"`

	// InitialHeapBytes is the first collection threshold, before any cycle
	// has run.
	InitialHeapBytes int `env:"LOX_INITIAL_HEAP_BYTES" envDefault:"1048576"`

	// FramesMax bounds call depth.
	FramesMax int `env:"LOX_FRAMES_MAX" envDefault:"64"`
}

// Default returns a Config parsed from the built-in defaults and the
// process environment, exactly as Load does, but discards any parse error.
func Default() Config {
	var c Config
	_ = env.Parse(&c)
	return c
}

// Load parses a Config from the process environment, starting from the
// built-in defaults.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

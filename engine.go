// engine.go - Halftone engine context and process-wide tuning constants

// This module defines the HalftoneEngine context: the single instance that
// every public entry point takes as its first argument, replacing the
// teacher lineage's use of package-level globals (input_dl, output_dl,
// formclasses, ht_form_keep) with explicit state threaded through calls.
//
// Signal flow:
//  1. NewEngine allocates the screen cache, the form-class pool, the DL
//     lifecycle manager and the buffer pool.
//  2. Callers (interpreter, DL pipeline, render threads) use the Engine's
//     fields to reach each subsystem.
//  3. Close releases everything; a closed Engine must not be reused.
//
// Thread safety:
// Engine itself holds no lock; its deferred-allocation bookkeeping is
// unguarded and used from the interpreter thread only (§5 of the design).
// Each subsystem enforces
// its own part of the lock hierarchy described in locks.go.
package halftone

import (
	"log"
	"os"
)

// BlitWordBits is the width, in bits, of the word the blit engine operates
// on. The teacher's video/CPU emulation supports multiple word widths by
// runtime dispatch; per SPEC_FULL.md Open Question 1 this module instead
// fixes a single compile-time width and rejects configurations that would
// only make sense for a different one.
const BlitWordBits = 64

// BlitWordBytes is BlitWordBits in bytes.
const BlitWordBytes = BlitWordBits / 8

// NumDisplayLists is the size of the levels-record ring kept per screen.
// It must be large enough that interpretation of one DL and rendering of
// another never collide (spec.md §4.5, §8 invariant 2).
const NumDisplayLists = 8

// EngineConfig tunes a new Engine. Zero value is not valid; use
// DefaultEngineConfig as a starting point.
type EngineConfig struct {
	// MemoryBudgetBytes bounds the buffer pool used for form allocation
	// (spec.md §5, mm_pool_temp). Preload will under-allocate and report a
	// warning when this is exceeded.
	MemoryBudgetBytes int64

	// Logger receives monitor warnings (preload shortfalls reported by
	// StartSheet). NewEngine substitutes a stderr logger prefixed
	// "htcore: " when nil.
	Logger *log.Logger
}

// DefaultEngineConfig returns a reasonable default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MemoryBudgetBytes: 64 * 1024 * 1024,
		Logger:            log.New(os.Stderr, "htcore: ", log.LstdFlags),
	}
}

// Engine is the single process-wide context for the halftone cache and
// blit subsystem. Construct one with NewEngine and dispose of it with
// Close; every public operation in this package takes an *Engine.
type Engine struct {
	Config EngineConfig

	Cache   *ScreenCache
	Pool    *FormClassPool
	DL      *DLManager
	Mem     *BufferPool
	SpotFns *SpotFunctionRegistry
	Report  EventReporter

	deferring bool
	deferred  []deferredAllocRequest
}

// NewEngine constructs a fully wired Engine, the analogue of the teacher
// lineage's gsinit.c ht_init(): every subsystem is allocated up front so
// that no public operation needs to lazily bootstrap global state.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "htcore: ", log.LstdFlags)
	}
	e := &Engine{Config: cfg}
	e.Mem = NewBufferPool(cfg.MemoryBudgetBytes)
	e.Pool = NewFormClassPool(e.Mem)
	e.DL = NewDLManager()
	e.Cache = NewScreenCache(e)
	e.SpotFns = NewSpotFunctionRegistry()
	e.Report = NopEventReporter{}
	return e
}

// Close releases engine-owned resources. The Engine must not be used
// afterwards, mirroring gsinit.c's ht_finish().
func (e *Engine) Close() {
	e.Cache.clear()
	e.Pool.clear()
	if rc, ok := e.SpotFns.closer(); ok {
		rc.Close()
	}
}

// warnf logs a monitor warning through the configured logger, the
// equivalent of the teacher's fmt.Printf(ERROR_FRAME_MSG, err) calls in
// video_chip.go's refresh loop.
func (e *Engine) warnf(format string, args ...any) {
	e.Config.Logger.Printf(format, args...)
}

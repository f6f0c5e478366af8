// dl.go - Display-list lifecycle and the values it hands the rest of the
// package

// Implements spec.md §4.5's six DL lifecycle operations plus the two small
// value types (EraseNr, DepthShift) referenced throughout the package.
// Grounded on debug_monitor.go's MachineMonitor/MonitorState pairing: a
// small state machine guarded by one mutex, with a monitor-style State()
// accessor for introspection.
package halftone

import "sync"

// EraseNr identifies a display list (sheet) across its lifetime, the Go
// analogue of the teacher lineage's DL_STATE erasure number. Two EraseNr
// values compare equal iff they name the same DL.
type EraseNr int64

// InvalidDL is the sentinel meaning "no display list", used by a screen's
// levels-record ring to mark a free slot (levels.go) and by callers that
// have not yet entered a DL.
const InvalidDL EraseNr = -1

// DepthShift is the output bit depth of a screen's forms, expressed as a
// left-shift amount (1<<DepthShift bits per pixel), matching formOps.c's
// accessor derivation.
type DepthShift int

const (
	Depth1 DepthShift = 0
	Depth2 DepthShift = 1
	Depth4 DepthShift = 2
)

func (d DepthShift) BitsPerPixel() int { return 1 << uint(d) }

// dlState tracks where a DL sits in its lifecycle, used to validate that
// operations arrive in the order spec.md §4.5 requires.
type dlState int

const (
	dlUnknown dlState = iota
	dlIntroduced
	dlRendering
	dlRetired
)

func (s dlState) String() string {
	switch s {
	case dlIntroduced:
		return "introduced"
	case dlRendering:
		return "rendering"
	case dlRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// dlRecord is one display list's bookkeeping: its state, the screens it
// touched (for end_sheet's unload pass) and whether it preloaded
// successfully.
type dlRecord struct {
	state         dlState
	screens       map[*Screen]struct{}
	preloadFailed bool
}

// DLManager implements spec.md §4.5: introduce/handoff/start_sheet/
// end_sheet/retire/flush, plus the ht_form_keep toggle that decides
// whether end_sheet resets forms to markers (kept for the next DL) or
// frees them outright.
type DLManager struct {
	mu      sync.Mutex
	records map[EraseNr]*dlRecord

	inputDL, outputDL, oldestDL EraseNr

	// formKeep mirrors the teacher's ht_form_keep global: when true, the
	// previous output DL's forms are unloaded with reset=True (markers
	// kept, memory held in the class free chain for reuse by the next
	// DL); disabled the moment pipelining is detected, per spec.md §4.5
	// operation 1, so pipelined DLs always free outright instead.
	formKeep bool
}

// NewDLManager constructs an empty DL manager with ht_form_keep on (the
// non-pipelined default; introduce() disables it once pipelining is
// detected).
func NewDLManager() *DLManager {
	return &DLManager{
		records:  make(map[EraseNr]*dlRecord),
		inputDL:  InvalidDL,
		outputDL: InvalidDL,
		oldestDL: InvalidDL,
		formKeep: true,
	}
}

// SetFormKeep is exposed for tests exercising spec.md §9's open question
// about ht_form_keep's mid-pipeline correctness; production callers should
// rely on introduce()'s automatic pipelining detection instead.
func (m *DLManager) SetFormKeep(keep bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formKeep = keep
}

// introduce registers a new DL, the first operation any erase number must
// go through (spec.md §4.5 operation 1). input_dl advances to dl; if
// output_dl is already active (pipelining), ht_form_keep is disabled.
func (m *DLManager) introduce(dl EraseNr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[dl]; exists {
		return ErrInvalidConfiguration
	}
	m.records[dl] = &dlRecord{state: dlIntroduced, screens: make(map[*Screen]struct{})}
	m.inputDL = dl
	if m.outputDL != InvalidDL {
		m.formKeep = false
	}
	if m.oldestDL == InvalidDL {
		m.oldestDL = dl
	}
	return nil
}

// handoff marks dl as handed from the interpreter to the renderer
// (spec.md §4.5 operation 2): its state becomes rendering and input_dl is
// cleared if it named dl. MarkTintUsed does not consult this state; its
// front-end or back-end path is chosen by its frontend argument and the
// levels record's preloaded flag.
func (m *DLManager) handoff(dl EraseNr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[dl]
	if !ok || r.state != dlIntroduced {
		return ErrInvalidConfiguration
	}
	r.state = dlRendering
	if m.inputDL == dl {
		m.inputDL = InvalidDL
	}
	return nil
}

// touch records that screen s participated in dl, called by MarkTintUsed
// and MarkScreenKept so end_sheet knows which screens to unload.
func (m *DLManager) touch(dl EraseNr, s *Screen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[dl]
	if !ok {
		return
	}
	r.screens[s] = struct{}{}
}

func (m *DLManager) screensFor(dl EraseNr) []*Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[dl]
	if !ok {
		return nil
	}
	out := make([]*Screen, 0, len(r.screens))
	for s := range r.screens {
		out = append(out, s)
	}
	return out
}

// StartSheet implements spec.md §4.5 operation 3: set output_dl = dl,
// unload (reset=ht_form_keep) the previous output DL's levels records,
// then run the Form Class Pool's preload discipline across every screen
// touched so far by dl.
func (e *Engine) StartSheet(dl EraseNr, interrupted func() bool) error {
	e.DL.mu.Lock()
	prev := e.DL.outputDL
	keep := e.DL.formKeep
	e.DL.outputDL = dl
	e.DL.mu.Unlock()

	if prev != InvalidDL && prev != dl {
		prevScreens := e.DL.screensFor(prev)
		e.Pool.EndSheet(prev, prevScreens, keep)
	}

	screens := e.DL.screensFor(dl)
	err := e.Pool.Preload(dl, screens, interrupted)

	e.DL.mu.Lock()
	if r, ok := e.DL.records[dl]; ok {
		r.state = dlRendering
		r.preloadFailed = err != nil && err != ErrInterrupted
	}
	e.DL.mu.Unlock()

	if err == ErrOutOfMemory {
		avail := e.Mem.AvailableFraction(int64(requiredBytes(screens)))
		e.Report.ReportPreloadWarning(dl, avail)
		e.warnf("halftone: preload for DL %d under-allocated, %.1f%% available", dl, avail*100)
		return nil
	}
	if err == ErrInterrupted {
		e.Report.ReportInterrupt(dl)
	}
	return err
}

func requiredBytes(screens []*Screen) int64 {
	var total int64
	for _, s := range screens {
		if s.class != nil {
			total += int64(s.class.FormSize)
		}
	}
	return total
}

// EndSheet implements spec.md §4.5 operation 4: unload every screen used
// on dl via the Form Class Pool's unload discipline with reset=True
// unconditionally, then optionally report usage telemetry.
func (e *Engine) EndSheet(dl EraseNr, report bool) error {
	screens := e.DL.screensFor(dl)

	e.Pool.EndSheet(dl, screens, true)

	if report {
		reports := make([]ScreenUsageReport, 0, len(screens))
		for _, s := range screens {
			s.mu.RLock()
			r := s.findLevelsRecord(dl)
			var used, cached int
			if r != nil {
				used, cached = r.levelsUsed, r.numCached
			}
			formSize := 0
			if s.class != nil {
				formSize = s.class.FormSize
			}
			reports = append(reports, ScreenUsageReport{
				Spot:         0,
				Colorant:     0,
				LevelsUsed:   used,
				NumberCached: cached,
				FormSize:     formSize,
			})
			s.mu.RUnlock()
		}
		e.Report.ReportSheetScreens(dl, reports)
	}
	return nil
}

// retire implements spec.md §4.5 operation 5: release dl's bookkeeping.
// Screens are released from the cache by the caller (cache.go's
// reference-count logic), not here.
func (m *DLManager) retire(dl EraseNr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, dl)
	if m.outputDL == dl {
		m.outputDL = InvalidDL
	}
}

// Retire is the public entry point for spec.md §4.5 operation 5: final
// disposal of dl's levels records (reset=False, so any remaining form
// memory is freed rather than kept), then reaping any cache screens whose
// destruction was pending only on those records retiring.
func (e *Engine) Retire(dl EraseNr) {
	screens := e.DL.screensFor(dl)
	e.Pool.EndSheet(dl, screens, false)
	e.DL.retire(dl)
	e.Cache.reapRetired()
}

// Introduce is the public wrapper for introduce.
func (e *Engine) Introduce(dl EraseNr) error { return e.DL.introduce(dl) }

// Handoff is the public wrapper for handoff.
func (e *Engine) Handoff(dl EraseNr) error { return e.DL.handoff(dl) }

// Flush implements spec.md §4.5 operation 6: advance oldest_dl past dl,
// the low-water mark used by callers deciding which DLs are still live.
func (e *Engine) Flush(dl EraseNr) {
	e.DL.mu.Lock()
	defer e.DL.mu.Unlock()
	if e.DL.oldestDL <= dl {
		e.DL.oldestDL = dl + 1
	}
}

// OldestDL reports the current low-water mark (spec.md §3's oldest_dl).
func (e *Engine) OldestDL() EraseNr {
	e.DL.mu.Lock()
	defer e.DL.mu.Unlock()
	return e.DL.oldestDL
}

// State reports dl's current lifecycle state, for tests and monitoring
// tools (cmd/htmonitor).
func (m *DLManager) State(dl EraseNr) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[dl]
	if !ok {
		return dlUnknown.String()
	}
	return r.state.String()
}

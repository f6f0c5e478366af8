// levels.go - Per-screen, per-DL levels records and the levels tracker

// Implements spec.md §3's Levels Record and §4.2's Levels Tracker. The
// teacher lineage stores each screen's levels records as a cyclic doubly
// linked list; per DESIGN NOTES §9 this module instead uses a fixed-size
// array indexed by (idx+1) mod NumDisplayLists, with no pointer links at
// all.
package halftone

// levelState is the Option<Form>-like enum DESIGN NOTES §9 calls for,
// replacing the sentinel pointers InvalidForm/DeferredForm/
// FormLevelIsUsed.
type levelState int

const (
	levelEmpty levelState = iota
	levelInvalidMarker
	levelDeferredMarker
	levelReal
)

// levelEntry is one tint's slot within a LevelsRecord.
type levelEntry struct {
	state levelState
	form  *Form
}

// LevelsRecord is spec.md §3's per-screen, per-DL array of notones+1 form
// pointers, plus the bookkeeping fields named there.
type LevelsRecord struct {
	erase      EraseNr // Invalid once released; a never-claimed slot has nil entries
	entries    []levelEntry
	numCached  int // count of levelReal entries
	levelsUsed int // real + pending + deferred
	preloaded  bool
}

// free reports whether the slot holds no record: either released by reset
// or never claimed (the zero value, whose entries slice is nil).
func (r *LevelsRecord) free() bool { return r.erase == InvalidDL || r.entries == nil }

func (r *LevelsRecord) reset() {
	r.erase = InvalidDL
	r.entries = nil
	r.numCached = 0
	r.levelsUsed = 0
	r.preloaded = false
}

// findLevelsRecord returns the ring slot belonging to dl, or nil.
func (s *Screen) findLevelsRecord(dl EraseNr) *LevelsRecord {
	for i := range s.levels {
		if !s.levels[i].free() && s.levels[i].erase == dl {
			return &s.levels[i]
		}
	}
	return nil
}

// claimLevelsRecord returns the existing record for dl, or claims a free
// ring slot for it. Per spec.md §4.2, if no slot is free this indicates a
// DL-lifecycle bug in the caller (the ring is sized so this cannot happen
// in correct use) and is reported as a panic rather than silently
// corrupting state, the Go analogue of the C assertion.
func (s *Screen) claimLevelsRecord(dl EraseNr, notones int) *LevelsRecord {
	if r := s.findLevelsRecord(dl); r != nil {
		return r
	}
	for i := 0; i < NumDisplayLists; i++ {
		idx := (s.ringNext + i) % NumDisplayLists
		if s.levels[idx].free() {
			s.ringNext = (idx + 1) % NumDisplayLists
			s.levels[idx] = LevelsRecord{
				erase:   dl,
				entries: make([]levelEntry, notones+1),
			}
			return &s.levels[idx]
		}
	}
	panic("halftone: levels-record ring exhausted; DL lifecycle invariant violated")
}

// retireLevelsRecord resets the ring slot for dl, making it reusable. Any
// real forms it still holds must already have been returned to their
// FormClass by the caller (formclass.go's unload).
func (s *Screen) retireLevelsRecord(dl EraseNr) {
	if r := s.findLevelsRecord(dl); r != nil {
		r.reset()
	}
}

// MarkTintUsed implements spec.md §4.2 operation 1: mark tint used.
// frontend selects whether an unused tint becomes an InvalidForm marker
// (front-end, before preload) or is allocated immediately (back-end, after
// preload / on an already-preloaded record).
//
// The screen lock (rung 4) is only ever held for the quick claim/marker
// step below; the real allocation path (resolveForm) re-enters through the
// class lock first, per the acquire order in locks.go, so it must run with
// no screen lock held.
func (e *Engine) MarkTintUsed(s *Screen, dl EraseNr, tint int, frontend bool) error {
	e.DL.touch(dl, s)
	s.mu.Lock()
	r := s.claimLevelsRecord(dl, s.Notones)
	if tint < 0 || tint >= len(r.entries) {
		s.mu.Unlock()
		return ErrInvalidConfiguration
	}
	if r.entries[tint].state != levelEmpty {
		s.mu.Unlock()
		return nil
	}
	needsAlloc := !frontend || r.preloaded
	if !needsAlloc {
		r.entries[tint] = levelEntry{state: levelInvalidMarker}
		r.levelsUsed++
		s.mu.Unlock()
		return nil
	}
	r.entries[tint] = levelEntry{state: levelInvalidMarker}
	r.levelsUsed++
	s.mu.Unlock()

	if e.deferring {
		// Deferred allocation mode (spec.md §5): batch this request instead
		// of resolving inline; ResumeAllocation commits or discards the
		// whole batch at the end of the current operator. Interpreter-only,
		// strictly serial.
		e.queueDeferred(s, dl, tint)
		return nil
	}

	// resolveForm (formgen.go) runs the get_nearest protocol end to end,
	// including the final install-under-write-lock and the numCached
	// bump; it also re-checks for a concurrent installer before writing.
	_, err := e.resolveForm(s, dl, tint)
	return err
}

// MarkScreenKept implements spec.md §4.2 operation 2: guarantee the levels
// record exists for dl without claiming any tint, enough to keep the
// screen from being purged.
func (e *Engine) MarkScreenKept(s *Screen, dl EraseNr) {
	e.DL.touch(dl, s)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimLevelsRecord(dl, s.Notones)
}

// MarkAllLevelsUsed implements spec.md §4.2 operation 3: for
// contone-to-halftone conversion, pre-allocate a form or marker for every
// tint in [1, notones-1].
func (e *Engine) MarkAllLevelsUsed(s *Screen, dl EraseNr, frontend bool) error {
	s.mu.Lock()
	notones := s.Notones
	s.mu.Unlock()
	var firstErr error
	for t := 1; t < notones; t++ {
		if err := e.MarkTintUsed(s, dl, t, frontend); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetForm returns the resolved form for dl/tint if one is already cached,
// and whether the entry has been marked used at all. It does not allocate;
// callers needing a guaranteed form should use the Form Generator's
// get_nearest protocol (formgen.go).
func (s *Screen) GetForm(dl EraseNr, tint int) (*Form, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.findLevelsRecord(dl)
	if r == nil || tint < 0 || tint >= len(r.entries) {
		return nil, false
	}
	e := r.entries[tint]
	return e.form, e.state != levelEmpty
}

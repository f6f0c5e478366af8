// ops.go - Public entry points named in spec.md §6 (External Interfaces)

// Wires the Screen Cache, Levels Tracker and DL Lifecycle Manager behind
// the operator-facing names spec.md §6 lists, so a caller never needs to
// reach into e.Cache/e.DL directly for the common path. Grounded on
// coprocessor_manager.go's thin wrapper methods over its worker pool.
package halftone

// InsertScreen implements spec.md §6's insert(spot, type, ci, screen_def,
// ...): install screen_def at (spot, type, ci), deduplicating against the
// existing cache.
func (e *Engine) InsertScreen(spot int, objType ObjectType, colorant int, def ScreenDef) (*Screen, error) {
	key := ScreenKey{Spot: spot, ObjType: objType, Colorant: colorant}
	return e.Cache.Insert(key, def)
}

// DuplicateScreen implements spec.md §6's duplicate(new_key, existing_key).
func (e *Engine) DuplicateScreen(newSpot int, newType ObjectType, newColorant int,
	existingSpot int, existingType ObjectType, existingColorant int) error {
	return e.Cache.Duplicate(
		ScreenKey{Spot: newSpot, ObjType: newType, Colorant: newColorant},
		ScreenKey{Spot: existingSpot, ObjType: existingType, Colorant: existingColorant},
	)
}

// DeleteScreen implements spec.md §6's delete(key).
func (e *Engine) DeleteScreen(spot int, objType ObjectType, colorant int) error {
	return e.Cache.Delete(ScreenKey{Spot: spot, ObjType: objType, Colorant: colorant})
}

// LookupScreen implements exact/default-fallback lookup for (spot, type,
// ci), the read side of spec.md §4.1.
func (e *Engine) LookupScreen(spot int, objType ObjectType, colorant int) (*Screen, bool) {
	return e.Cache.Lookup(ScreenKey{Spot: spot, ObjType: objType, Colorant: colorant})
}

// MarkUsed implements spec.md §6's mark_used(dl, spot, type, ci): resolve
// the screen and mark tint 1 used on it (the single-tint convenience form
// used outside contone-to-halftone conversion; callers needing a specific
// tint should call MarkTintUsed directly via the resolved Screen).
func (e *Engine) MarkUsed(dl EraseNr, spot int, objType ObjectType, colorant int) error {
	s, ok := e.LookupScreen(spot, objType, colorant)
	if !ok {
		return ErrScreenNotFound
	}
	return e.MarkTintUsed(s, dl, 1, true)
}

// AllocateForm implements spec.md §6's allocate_form(dl, spot, type, ci,
// tints[]): mark_used is called for every listed tint (for cases where
// front-end marking must itself allocate immediately, e.g. a preloaded
// record), returning the first error encountered if any.
func (e *Engine) AllocateForm(dl EraseNr, spot int, objType ObjectType, colorant int, tints []int) error {
	s, ok := e.LookupScreen(spot, objType, colorant)
	if !ok {
		return ErrScreenNotFound
	}
	var firstErr error
	for _, t := range tints {
		if err := e.MarkTintUsed(s, dl, t, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// MarkAllLevelsUsedByKey implements spec.md §6's
// mark_all_levels_used(dl, spot, type, ci).
func (e *Engine) MarkAllLevelsUsedByKey(dl EraseNr, spot int, objType ObjectType, colorant int, frontend bool) error {
	s, ok := e.LookupScreen(spot, objType, colorant)
	if !ok {
		return ErrScreenNotFound
	}
	return e.MarkAllLevelsUsed(s, dl, frontend)
}

// KeepScreen implements spec.md §6's keep_screen(dl, spot, type, ci,
// tints[], white): guarantee the screen's levels record survives for dl
// and every listed tint is at least marked (not necessarily allocated);
// white additionally marks tint 0 (which itself never allocates a form,
// per spec.md §8's boundary case, but still participates in the levels
// record's bookkeeping so the screen is kept alive).
func (e *Engine) KeepScreen(dl EraseNr, spot int, objType ObjectType, colorant int, tints []int, white bool) error {
	s, ok := e.LookupScreen(spot, objType, colorant)
	if !ok {
		return ErrScreenNotFound
	}
	e.MarkScreenKept(s, dl)
	if white {
		// Record tint 0 as used without going through MarkTintUsed, which
		// would allocate on a preloaded record.
		s.mu.Lock()
		r := s.claimLevelsRecord(dl, s.Notones)
		if r.entries[0].state == levelEmpty {
			r.entries[0] = levelEntry{state: levelInvalidMarker}
			r.levelsUsed++
		}
		s.mu.Unlock()
	}
	var firstErr error
	for _, t := range tints {
		if err := e.MarkTintUsed(s, dl, t, true); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferAllocation implements spec.md §6's defer_allocation() / §5's
// "Deferred allocation mode batches allocation requests issued during
// interpretation and commits them at the end of the current operator."
// Must be called and resumed from the interpreter thread only; it is not
// safe to defer concurrently with render-thread form resolution.
func (e *Engine) DeferAllocation() {
	e.deferring = true
	e.deferred = e.deferred[:0]
}

// queueDeferred records a request made while deferring is active, instead
// of resolving it immediately. MarkTintUsed calls it in place of resolving
// a form inline whenever deferring is active.
func (e *Engine) queueDeferred(s *Screen, dl EraseNr, tint int) {
	e.deferred = append(e.deferred, deferredAllocRequest{screen: s, dl: dl, tint: tint})
}

// ResumeAllocation implements spec.md §6's resume_allocation(spot,
// success): commit (success=true) or discard (success=false) every
// request queued since DeferAllocation, then turn deferring back off.
func (e *Engine) ResumeAllocation(success bool) error {
	e.deferring = false
	pending := e.deferred
	e.deferred = nil

	if !success {
		return nil
	}
	var firstErr error
	for _, req := range pending {
		// The entry already holds the marker MarkTintUsed left when it
		// queued the request, so resolve the form directly.
		if _, err := e.resolveForm(req.screen, req.dl, req.tint); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// formgen.go - Form Generator: get_nearest, init_form, regenerate_form

// Implements spec.md §4.4 in full. Grounded on coprocessor_manager.go's
// mutex-guarded resource-acquisition pattern (claim a worker, do work,
// release), generalized here to the multi-step, multi-lock get_nearest
// protocol spec.md describes. math/rand supplies the uniform poaching
// selection the teacher's emulator does not need but other_examples'
// reference material for randomized eviction does.
package halftone

import "math/rand"

// deferredAllocRequest is queued by MarkTintUsed in place of resolving a
// form while DeferAllocation is active; ResumeAllocation later resolves
// (success) or discards the whole batch.
type deferredAllocRequest struct {
	screen *Screen
	dl     EraseNr
	tint   int
}

// resolveForm runs get_nearest (spec.md §4.4) end to end for screen s,
// erase number dl and tint index tint: it returns the cached form for
// that tint, allocating or poaching one if necessary. It must be called
// with no screen or class lock held.
func (e *Engine) resolveForm(s *Screen, dl EraseNr, tint int) (*Form, error) {
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		t := newLockTracker()
		f, retry, err := e.tryResolveForm(t, s, dl, tint)
		if err != nil {
			return nil, err
		}
		if !retry {
			return f, nil
		}
	}
	return nil, ErrPoachFailed
}

// ResolveForm exposes get_nearest directly for tools that need to force a
// resolution outside the normal MarkTintUsed/BlitSpan paths (cmd/htmonitor's
// "force a poach" command). Production callers should reach it indirectly.
func (e *Engine) ResolveForm(s *Screen, dl EraseNr, tint int) (*Form, error) {
	return e.resolveForm(s, dl, tint)
}

// maxResolveAttempts bounds the retry loop so a pathological concurrent
// workload cannot spin forever; spec.md's own retry instruction ("caller
// retries the whole acquisition") is otherwise unbounded.
const maxResolveAttempts = 64

// tryResolveForm performs one pass of get_nearest's steps 1-8, using the
// scoped lock guards of locks.go so that out-of-order acquisition across
// the class/screen rungs panics immediately instead of risking deadlock
// (spec.md §5's lock hierarchy; DESIGN NOTES §9). retry is true when a
// race was detected and the caller should restart from step 1, which
// resolveForm does with a fresh tracker since no locks are held between
// attempts.
func (e *Engine) tryResolveForm(t *lockTracker, s *Screen, dl EraseNr, tint int) (form *Form, retry bool, err error) {
	if f, ok := s.GetForm(dl, tint); ok && f != nil {
		// Another caller (or an earlier attempt on this same goroutine's
		// retry loop) already resolved this tint; get_nearest never pays
		// for a second allocation or poach once a real form is in place.
		return f, false, nil
	}

	fc := s.class
	if fc == nil {
		// Pattern/modular screens never join a class; their single form is
		// generated directly with no pooling.
		return e.resolvePatternForm(s, dl, tint)
	}

	// Step 1: read lock on the class.
	cg := lockClassRead(t, fc)
	if fc.freeChain != nil {
		// Step 2: free form available; upgrade, dequeue, resize.
		cg.upgrade()
		f := fc.popFreeLocked()
		cg.release()
		if f == nil {
			// Raced with another claimant; restart.
			return nil, true, nil
		}
		return e.installResolvedForm(t, s, fc, dl, tint, resizeForScreen(f, s))
	}

	isLRU := fc.isLRULocked(s)
	cg.release()

	if isLRU {
		// Step 3: this screen is the class LRU; try self-steal first.
		sg := lockScreenWrite(t, s)
		f := s.stealOwnFormLocked(dl)
		sg.release()
		if f != nil {
			return e.installResolvedForm(t, s, fc, dl, tint, f)
		}
	}

	// Step 3 (no self-steal available) / Step 4: poach from the class LRU.
	f, err := e.poachFromClassLRU(t, fc, s)
	if err == nil {
		return e.installResolvedForm(t, s, fc, dl, tint, f)
	}
	if err != ErrPoachFailed {
		return nil, false, err
	}

	// The LRU walk found no donor at all, which happens whenever this
	// screen's class has never been preloaded (no screen has joined the
	// MRU chain yet, so there is nothing to poach from). Fall back to a
	// fresh allocation from the buffer pool rather than fail outright;
	// preload's fair allocation pass is what normally stocks the free
	// chain, but a back-end mark_used arriving before any sheet preload
	// still needs to succeed (spec.md §4.2 operation 1).
	cg = lockClassWrite(t, fc)
	f = fc.allocateNewLocked(e.Mem, CostNormal)
	cg.release()
	if f == nil {
		return nil, false, ErrOutOfMemory
	}
	return e.installResolvedForm(t, s, fc, dl, tint, resizeForScreen(f, s))
}

// resolvePatternForm handles the single-form path for pattern and modular
// screens, which never participate in the class free-chain/MRU machinery.
func (e *Engine) resolvePatternForm(s *Screen, dl EraseNr, tint int) (*Form, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.patternForm != nil {
		return s.patternForm, false, nil
	}
	depth := s.DepthShift
	f := NewForm(HalftoneBitmap, s.EXDims, s.EYDims, depth)
	initForm(f, s, tint)
	s.patternForm = f
	r := s.claimLevelsRecord(dl, s.Notones)
	if tint >= 0 && tint < len(r.entries) {
		r.entries[tint] = levelEntry{state: levelReal, form: f}
		r.numCached++
	}
	return f, false, nil
}

// resizeForScreen adjusts a dequeued form's declared dimensions to match
// s's cell geometry; the underlying buffer is already the right byte size
// since it came from s's FormClass.
func resizeForScreen(f *Form, s *Screen) *Form {
	f.Kind = HalftoneBitmap
	f.Width = s.EXDims
	f.Height = s.EYDims
	f.LineBytes = lineBytesFor(s.EXDims, s.DepthShift)
	f.Initialized = false
	return f
}

// stealOwnFormLocked removes a uniformly random cached form from s's own
// levels record for dl (get_nearest step 3's "steal one from itself").
// Caller holds s.mu for writing.
func (s *Screen) stealOwnFormLocked(dl EraseNr) *Form {
	r := s.findLevelsRecord(dl)
	if r == nil {
		return nil
	}
	idxs := cachedIndices(r)
	if len(idxs) == 0 {
		return nil
	}
	i := idxs[findRandomIndex(len(idxs))]
	f := r.entries[i].form
	r.entries[i] = levelEntry{state: levelInvalidMarker}
	r.numCached--
	return f
}

// cachedIndices lists the tint indices currently holding a real form.
func cachedIndices(r *LevelsRecord) []int {
	var out []int
	for i, e := range r.entries {
		if e.state == levelReal && e.form != nil {
			out = append(out, i)
		}
	}
	return out
}

// findRandomIndex implements spec.md §4.4's uniform-random donor/tint
// selection (find_random_index).
func findRandomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	return rand.Intn(n)
}

// poachFromClassLRU implements spec.md §4.4's poaching algorithm: walk the
// class's LRU chain from the tail toward (but not including) self,
// stealing a random cached form from the first donor that has one.
func (e *Engine) poachFromClassLRU(t *lockTracker, fc *FormClass, self *Screen) (*Form, error) {
	cg := lockClassRead(t, fc)
	donor := fc.mruTail
	cg.release()

	for donor != nil && donor != self {
		sg := lockScreenWrite(t, donor)
		f := donor.stealOwnFormLockedAnyDL()
		sg.release()
		if f != nil {
			return f, nil
		}

		cg = lockClassRead(t, fc)
		next := donor.mruPrev
		cg.release()
		donor = next
	}
	return nil, ErrPoachFailed
}

// stealOwnFormLockedAnyDL is poaching's donor-side steal: unlike
// stealOwnFormLocked it considers every DL the donor currently has levels
// records for, since the poacher has no reason to prefer one DL over
// another on a screen it does not own. Caller holds donor.mu for writing.
func (s *Screen) stealOwnFormLockedAnyDL() *Form {
	type candidate struct {
		rec *LevelsRecord
		idx int
	}
	var cands []candidate
	for i := range s.levels {
		r := &s.levels[i]
		if r.free() {
			continue
		}
		for _, idx := range cachedIndices(r) {
			cands = append(cands, candidate{r, idx})
		}
	}
	if len(cands) == 0 {
		return nil
	}
	c := cands[findRandomIndex(len(cands))]
	f := c.rec.entries[c.idx].form
	c.rec.entries[c.idx] = levelEntry{state: levelInvalidMarker}
	c.rec.numCached--
	return f
}

// installResolvedForm implements get_nearest steps 5-8: under the
// screen's write lock, re-check for a concurrent installer, then generate
// content for f (regenerate_form, falling back to init_form), install it,
// bump number_cached, and move s to the class MRU head.
func (e *Engine) installResolvedForm(t *lockTracker, s *Screen, fc *FormClass, dl EraseNr, tint int, f *Form) (*Form, bool, error) {
	sg := lockScreenWrite(t, s)
	r := s.claimLevelsRecord(dl, s.Notones)
	if tint < 0 || tint >= len(r.entries) {
		sg.release()
		returnFormToClass(t, fc, f)
		return nil, false, ErrInvalidConfiguration
	}
	if r.entries[tint].state == levelReal {
		// Step 5: someone else installed this tint while we were
		// unlocked; return our form and restart.
		sg.release()
		returnFormToClass(t, fc, f)
		return nil, true, nil
	}

	// Step 6: generate content, preferring regeneration from a neighbor.
	if !regenerateForm(f, s, r, tint) {
		initForm(f, s, tint)
	}
	r.entries[tint] = levelEntry{state: levelReal, form: f}
	r.numCached++
	sg.release()

	// Step 7: move to the class MRU head.
	if fc != nil {
		cg := lockClassWrite(t, fc)
		fc.linkMRULocked(s)
		cg.release()
	}
	return f, false, nil
}

// returnFormToClass pushes f back onto fc's free chain under a scoped
// class write guard; a nil fc (pattern/modular screens) is a no-op since
// those forms never join a class.
func returnFormToClass(t *lockTracker, fc *FormClass, f *Form) {
	if fc == nil {
		return
	}
	cg := lockClassWrite(t, fc)
	fc.pushFreeLocked(f)
	cg.release()
}

// --- init_form / regenerate_form (spec.md §4.4) ---

// pedestalDirection records whether init_form chose to start from the
// black pedestal and clear sites, or the white pedestal and set them.
type pedestalDirection int

const (
	dirUpFromBase pedestalDirection = iota
	dirDownFromBasePlusOne
)

// computeBaseLevel derives (base, level) for tint out of notones+1 evenly
// spaced levels across dots dot-sites, the pedestal/level split spec.md
// §4.4 names without further specifying the arithmetic; this module uses
// the same evenly-spaced quantization the tint-to-level quantizer in
// blit.go uses for self-modifying dispatch.
func computeBaseLevel(tint, notones, dots int) (base, level int) {
	if notones <= 0 {
		return 0, 0
	}
	site := tint * dots
	base = site / notones
	level = site - base*notones
	// Rescale level into [0, dots] against the dots axis rather than
	// notones, matching the "level in [0, dots]" contract.
	if notones != dots {
		level = level * dots / notones
	}
	if level > dots {
		level = dots
	}
	return base, level
}

// initForm implements spec.md §4.4's init_form: fills f's pedestal and
// toggles the minimal number of dot-sites for tint.
func initForm(f *Form, s *Screen, tint int) {
	dots := s.SupercellActual
	base, level := computeBaseLevel(tint, s.Notones, dots)

	fillPedestal(f, s.DepthShift, base)

	var dir pedestalDirection
	var diff int
	if level <= dots-level {
		dir = dirUpFromBase
		diff = level
	} else {
		dir = dirDownFromBasePlusOne
		diff = dots - level
	}

	if diff != 0 {
		start := 0
		if dir == dirDownFromBasePlusOne {
			start = dots - diff
		}
		toggleCellSites(f, s, start, diff, dir == dirDownFromBasePlusOne)
	}
	bitexpandform(f, s)
	f.Initialized = true
}

// regenerateForm implements spec.md §4.4's regenerate_form: scan outward
// from tint across r's entries for a cached neighbor and derive f's
// content from it cheaply. Returns false when no feasible neighbor exists
// (caller must fall back to initForm).
func regenerateForm(f *Form, s *Screen, r *LevelsRecord, tint int) bool {
	dots := s.SupercellActual
	notones := s.Notones
	if notones <= 0 || dots <= 0 {
		return false
	}

	nearIdx, nearForm := scanOutward(r, tint)
	if nearForm == nil {
		return false
	}

	_, toLevel := computeBaseLevel(tint, notones, dots)
	nearBase, nearLevel := computeBaseLevel(nearIdx, notones, dots)
	targetBase, _ := computeBaseLevel(tint, notones, dots)
	if nearBase != targetBase && s.DepthShift != Depth1 {
		// Multibit depths with differing pedestals cannot be cheaply
		// regenerated; fall back to init_form.
		return false
	}

	diff := nearLevel - toLevel
	switch {
	case abs(diff) > dots-toLevel:
		f.fillArea0()
		toggleCellSites(f, s, 0, toLevel, false)
	case abs(diff) > toLevel:
		f.fillArea1()
		toggleCellSites(f, s, dots-toLevel, toLevel, true)
	default:
		copyFormContent(f, nearForm)
		start := 0
		setClear := diff > 0
		if setClear {
			start = toLevel
		} else {
			start = nearLevel
		}
		toggleCellSites(f, s, start, abs(diff), setClear)
	}
	bitexpandform(f, s)
	f.Initialized = true
	return true
}

// scanOutward looks left/right alternately from tint across r.entries for
// the nearest populated neighbor, per spec.md §4.4.
func scanOutward(r *LevelsRecord, tint int) (int, *Form) {
	n := len(r.entries)
	for d := 1; d < n; d++ {
		if tint-d >= 0 && r.entries[tint-d].state == levelReal && r.entries[tint-d].form != nil {
			return tint - d, r.entries[tint-d].form
		}
		if tint+d < n && r.entries[tint+d].state == levelReal && r.entries[tint+d].form != nil {
			return tint + d, r.entries[tint+d].form
		}
	}
	return 0, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// fillPedestal fills f with the whole-tone pedestal value for base at the
// given depth: a byte-repeating pattern for multibit depths, or a solid
// area0/area1 fill for 1-bit.
func fillPedestal(f *Form, depth DepthShift, base int) {
	switch depth {
	case Depth1:
		if base == 0 {
			f.fillArea0()
		} else {
			f.fillArea1()
		}
	default:
		bpp := depth.BitsPerPixel()
		maxVal := (1 << uint(bpp)) - 1
		if base > maxVal {
			base = maxVal
		}
		var pattern byte
		for i := 0; i < 8/bpp; i++ {
			pattern |= byte(base) << uint(i*bpp)
		}
		f.fillByte(pattern)
	}
}

// copyFormContent copies src's pixel buffer into dst, the "copy the
// nearest form verbatim" step of regenerate_form.
func copyFormContent(dst, src *Form) {
	n := len(dst.Pixels)
	if len(src.Pixels) < n {
		n = len(src.Pixels)
	}
	copy(dst.Pixels[:n], src.Pixels[:n])
}

// toggleCellSites calls set_cell_bits (blit.go) over the slice of s's
// coordinate arrays [start, start+count), setting bits when set is true
// and clearing them otherwise.
func toggleCellSites(f *Form, s *Screen, start, count int, set bool) {
	if count <= 0 {
		return
	}
	end := start + count
	if end > len(s.XCoords) {
		end = len(s.XCoords)
	}
	setCellBits(f, s, s.XCoords[start:end], s.YCoords[start:end], set)
}

// formclass.go - Form Class Pool: sharing form buffers across screens

// Implements spec.md §3's Form Class and §4.3's Form Class Pool. Grounded
// on memory_bus.go's pattern of a single mutex-guarded resource with a
// small accounting surface, generalized to a size-ordered list of pools
// plus the MRU/LRU chain spec.md describes.
package halftone

import "sync"

// FormClass groups every screen whose tiled bitmap is exactly FormSize
// bytes, so that a lightly-used screen can donate buffers to a heavily
// used one of the same cell size (spec.md §4.3).
type FormClass struct {
	mu sync.RWMutex // rung 3 of the lock hierarchy

	FormSize int

	freeChain *Form
	freeCount int

	mruHead, mruTail *Screen
	numScreens       int
	numScreensSheet  int

	levelsReqd   int
	levelsCached int
	chainErase   EraseNr

	next *FormClass // ordered list link, largest formsize first
}

// FormClassPool is the ordered list of FormClass instances, one per
// distinct form size, plus the buffer pool classes allocate from.
type FormClassPool struct {
	mu   sync.Mutex // rung 2, formclasses_mutex
	head *FormClass // largest FormSize first
	mem  *BufferPool

	preloadFailed bool
}

// NewFormClassPool creates an empty pool backed by mem.
func NewFormClassPool(mem *BufferPool) *FormClassPool {
	return &FormClassPool{mem: mem}
}

func (p *FormClassPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head = nil
}

// classFor returns the FormClass for the given size, inserting a new one
// at the correct position (largest-first) if none exists yet.
func (p *FormClassPool) classFor(size int) *FormClass {
	p.mu.Lock()
	defer p.mu.Unlock()

	var prev *FormClass
	cur := p.head
	for cur != nil {
		if cur.FormSize == size {
			return cur
		}
		if cur.FormSize < size {
			break
		}
		prev, cur = cur, cur.next
	}
	fc := &FormClass{FormSize: size, chainErase: InvalidDL, next: cur}
	if prev == nil {
		p.head = fc
	} else {
		prev.next = fc
	}
	return fc
}

// destroyIfEmpty removes fc from the pool if it has no member screens,
// per spec.md §8's boundary case "a form class with zero screens is
// destroyed eagerly".
func (p *FormClassPool) destroyIfEmpty(fc *FormClass) {
	fc.mu.RLock()
	empty := fc.numScreens == 0
	fc.mu.RUnlock()
	if !empty {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var prev *FormClass
	cur := p.head
	for cur != nil {
		if cur == fc {
			if prev == nil {
				p.head = cur.next
			} else {
				prev.next = cur.next
			}
			return
		}
		prev, cur = cur, cur.next
	}
}

// joinClass registers s as a member of fc, the step performed when a new
// screen is inserted into the cache (cache.go).
func (fc *FormClass) joinClass(s *Screen) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.numScreens++
	s.class = fc
}

// leaveClass unregisters s, used when a screen is destroyed.
func (fc *FormClass) leaveClass(s *Screen) {
	fc.mu.Lock()
	fc.numScreens--
	fc.unlinkMRULocked(s)
	fc.mu.Unlock()
}

// linkMRULocked moves s to the head of fc's MRU chain. Caller holds
// fc.mu for writing.
func (fc *FormClass) linkMRULocked(s *Screen) {
	if s.inChain {
		fc.unlinkMRULocked(s)
	}
	s.mruPrev = nil
	s.mruNext = fc.mruHead
	if fc.mruHead != nil {
		fc.mruHead.mruPrev = s
	}
	fc.mruHead = s
	if fc.mruTail == nil {
		fc.mruTail = s
	}
	s.inChain = true
}

func (fc *FormClass) unlinkMRULocked(s *Screen) {
	if !s.inChain {
		return
	}
	if s.mruPrev != nil {
		s.mruPrev.mruNext = s.mruNext
	} else {
		fc.mruHead = s.mruNext
	}
	if s.mruNext != nil {
		s.mruNext.mruPrev = s.mruPrev
	} else {
		fc.mruTail = s.mruPrev
	}
	s.mruPrev, s.mruNext = nil, nil
	s.inChain = false
}

// isLRULocked reports whether s is the tail (least recently used) member
// of fc's chain. Caller holds fc.mu for reading or writing.
func (fc *FormClass) isLRULocked(s *Screen) bool {
	return fc.mruTail == s
}

// popFreeLocked removes and returns one form from fc's free chain, or nil.
// Caller holds fc.mu for writing.
func (fc *FormClass) popFreeLocked() *Form {
	f := fc.freeChain
	if f == nil {
		return nil
	}
	fc.freeChain = f.nextFree
	f.nextFree = nil
	fc.freeCount--
	return f
}

// pushFreeLocked returns a form to fc's free chain. Caller holds fc.mu for
// writing.
func (fc *FormClass) pushFreeLocked(f *Form) {
	f.nextFree = fc.freeChain
	f.Kind = CacheBitmap
	fc.freeChain = f
	fc.freeCount++
}

// allocateNewLocked allocates and returns a brand-new free-chain form sized
// for this class from the engine's buffer pool, or nil if the pool is
// exhausted. The returned form holds fc.FormSize raw bytes rather than a
// width/height-addressed bitmap, since it has not yet been claimed by any
// screen (resizeForScreen, formgen.go, stamps in the real dimensions once
// get_nearest dequeues it). Caller holds fc.mu for writing.
func (fc *FormClass) allocateNewLocked(mem *BufferPool, cost AllocCost) *Form {
	if !mem.Alloc(int64(fc.FormSize), cost) {
		return nil
	}
	return &Form{Kind: CacheBitmap, LineBytes: fc.FormSize, Height: 1, Pixels: make([]byte, fc.FormSize), class: fc}
}

// --- Preload / unload discipline (spec.md §4.3) ---

// classDeficit is the per-class accounting snapshot worstDeficit builds
// for the fair-allocation pass in Preload.
type classDeficit struct {
	fc          *FormClass
	deficit     float64 // (levelsReqd - available) / numScreensSheet
	available   int
	perFormSize int
}

// beginSheet walks every cache entry used on the sheet and sums its
// levels_used/number_cached into the owning class, then links it at the
// head of the class's MRU chain (spec.md §4.3 step 1).
func (p *FormClassPool) beginSheet(dl EraseNr, screens []*Screen) {
	for _, s := range screens {
		s.mu.RLock()
		r := s.findLevelsRecord(dl)
		var used, cached int
		if r != nil {
			used, cached = r.levelsUsed, r.numCached
		}
		s.mu.RUnlock()
		if r == nil {
			continue
		}
		fc := s.class
		if fc == nil || s.IsPattern() || s.Modular {
			continue
		}
		fc.mu.Lock()
		fc.levelsReqd += used
		fc.levelsCached += cached
		fc.numScreensSheet++
		fc.linkMRULocked(s)
		// The preloaded transition (spec.md §4.2) happens exactly once per
		// record, while holding the class write lock, the instant the
		// record becomes visible to the sheet's preload pass. From this
		// point the front end may still mark new tints, but MarkTintUsed
		// treats the record as preloaded and allocates them immediately
		// rather than leaving a deferred marker.
		s.mu.Lock()
		r.preloaded = true
		s.mu.Unlock()
		fc.mu.Unlock()
	}
}

// reclaimStaleLocked moves every non-initialized form out of s's levels
// array back to fc's free chain (spec.md §4.3 step 2: "forms already in a
// screen's levels array that lack the initialized flag... belonged to
// previous DLs and can be reused"). Caller holds the screen's write lock.
func reclaimStaleLocked(fc *FormClass, r *LevelsRecord) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for i := range r.entries {
		e := &r.entries[i]
		if e.state == levelReal && e.form != nil && !e.form.Initialized {
			fc.pushFreeLocked(e.form)
			r.numCached--
			*e = levelEntry{}
		}
	}
}

// Preload runs the per-sheet preload discipline of spec.md §4.3: sum
// requirements, reclaim stale forms, then allocate fairly across classes
// by deficit until no class has any deficit or an allocation fails.
func (p *FormClassPool) Preload(dl EraseNr, screens []*Screen, interrupted func() bool) error {
	p.mu.Lock()
	var all []*FormClass
	for fc := p.head; fc != nil; fc = fc.next {
		fc.numScreensSheet = 0
		fc.levelsReqd = 0
		fc.levelsCached = 0
		all = append(all, fc)
	}
	p.mu.Unlock()

	p.beginSheet(dl, screens)

	for _, s := range screens {
		if interrupted != nil && interrupted() {
			return ErrInterrupted
		}
		fc := s.class
		if fc == nil || s.IsPattern() || s.Modular {
			continue
		}
		s.mu.Lock()
		if r := s.findLevelsRecord(dl); r != nil {
			reclaimStaleLocked(fc, r)
		}
		s.mu.Unlock()
	}

	anyFail := false
	for {
		if interrupted != nil && interrupted() {
			return ErrInterrupted
		}
		worst, secondGap, ok := p.worstDeficit(all)
		if !ok {
			break
		}
		gap := secondGap
		toAlloc := gap
		if float64(worst.deficit)*0.1 > toAlloc {
			toAlloc = worst.deficit * 0.1
		}
		n := int(toAlloc + 0.5)
		if n < 1 {
			n = 1
		}
		allocated := p.allocateN(worst.fc, n)
		if allocated == 0 {
			// This class's form size no longer fits; drop it from the pass
			// and let the remaining classes keep allocating.
			anyFail = true
			kept := all[:0]
			for _, fc := range all {
				if fc != worst.fc {
					kept = append(kept, fc)
				}
			}
			all = kept
		}
	}

	p.mu.Lock()
	p.preloadFailed = anyFail
	p.mu.Unlock()
	if anyFail {
		return ErrOutOfMemory
	}
	return nil
}

// worstDeficit returns the class with the greatest per-screen deficit and
// the gap to the second-greatest, per spec.md §4.3 step 3.
func (p *FormClassPool) worstDeficit(classes []*FormClass) (classDeficit, float64, bool) {
	var best, second classDeficit
	haveBest, haveSecond := false, false
	for _, fc := range classes {
		fc.mu.RLock()
		avail := fc.freeCount + fc.levelsCached
		n := fc.numScreensSheet
		reqd := fc.levelsReqd
		fc.mu.RUnlock()
		if n == 0 {
			continue
		}
		d := float64(reqd-avail) / float64(n)
		if d <= 0 {
			continue
		}
		cd := classDeficit{fc: fc, deficit: d, available: avail}
		if !haveBest || cd.deficit > best.deficit {
			second, haveSecond = best, haveBest
			best, haveBest = cd, true
		} else if !haveSecond || cd.deficit > second.deficit {
			second, haveSecond = cd, true
		}
	}
	if !haveBest {
		return classDeficit{}, 0, false
	}
	gap := best.deficit
	if haveSecond {
		gap = best.deficit - second.deficit
	}
	return best, gap, true
}

// allocateN allocates up to n forms of fc's size from the buffer pool and
// adds them to the free chain, stopping early (but not failing the whole
// preload) if the pool runs out; smaller-size allocations continue on a
// later pass since only this class's contribution stops.
func (p *FormClassPool) allocateN(fc *FormClass, n int) int {
	got := 0
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for i := 0; i < n; i++ {
		f := fc.allocateNewLocked(p.mem, CostNormal)
		if f == nil {
			break
		}
		fc.pushFreeLocked(f)
		got++
	}
	return got
}

// EndSheet implements the unload discipline of spec.md §4.3: for each
// screen used on the retiring DL, either reset its forms to InvalidForm
// markers and return memory to the free chain (fReset) or free the memory
// outright and retire the levels record (!fReset).
func (p *FormClassPool) EndSheet(dl EraseNr, screens []*Screen, fReset bool) {
	for _, s := range screens {
		fc := s.class
		s.mu.Lock()
		r := s.findLevelsRecord(dl)
		if r == nil {
			s.mu.Unlock()
			continue
		}
		if fc != nil {
			fc.mu.Lock()
		}
		for i := range r.entries {
			e := &r.entries[i]
			if e.state != levelReal || e.form == nil {
				continue
			}
			if fReset {
				if fc != nil {
					fc.pushFreeLocked(e.form)
				}
				*e = levelEntry{state: levelInvalidMarker}
			} else {
				if fc != nil {
					p.mem.Free(int64(fc.FormSize))
				}
				*e = levelEntry{}
			}
		}
		if fc != nil {
			r.numCached = 0
			fc.mu.Unlock()
		}
		if fReset {
			r.preloaded = false
		}
		s.mu.Unlock()
		if !fReset {
			s.mu.Lock()
			s.retireLevelsRecord(dl)
			s.mu.Unlock()
		}
		if fc != nil {
			p.destroyIfEmpty(fc)
		}
	}
}

// PreloadFailed reports whether the most recent Preload call under-
// allocated, used by callers to decide whether subsequent blits should
// expect to fall back to get_nearest poaching (spec.md §4.3 step 4).
func (p *FormClassPool) PreloadFailed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.preloadFailed
}

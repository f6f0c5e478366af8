// cache.go - Screen Cache: dedup, lookup, duplicate, delete, iteration

// Implements spec.md §4.1. Grounded on memory_bus.go's SystemBus: a single
// mutex-guarded map with small helper methods, generalized here to the
// two-phase (pre-coordinate, then post-coordinate) equivalence search
// spec.md describes, so that expensive coordinate generation is skipped
// whenever a pre-coordinate match already exists.
package halftone

import "sync"

// ScreenKey identifies one (spot, object-type, colorant) cache entry.
// Colorant may be ColorantNone to name a spot's default entry.
type ScreenKey struct {
	Spot     int
	ObjType  ObjectType
	Colorant int
}

// ScreenDef is the caller-supplied definition for Insert. GenerateCoords
// is invoked only if no pre-coordinate equivalence match is found,
// standing in for the spot-function evaluator's (expensive) coordinate
// generation pass.
type ScreenDef struct {
	SpotName     string
	ObjType      ObjectType
	ColorantName string
	CellBasis
	EXDims, EYDims int

	Frequency float64
	Angle     float64
	Rotation  int

	Accurate       bool
	DotCentered    bool
	MultiThreshold bool
	DepthShift     DepthShift
	Notones        int

	Modular bool
	Pattern bool

	// GenerateCoords computes xcoords/ycoords/threshold table/halfys. It is
	// called at most once per Insert, and only when pre-coordinate
	// equivalence search misses.
	GenerateCoords func() (xcoords, ycoords, threshXfer, halfYs []int, err error)
}

func (d ScreenDef) equivParams() equivalenceParams {
	return equivalenceParams{
		SpotName:       d.SpotName,
		ObjType:        d.ObjType,
		CellBasis:      d.CellBasis,
		Accurate:       d.Accurate,
		DotCentered:    d.DotCentered,
		MultiThreshold: d.MultiThreshold,
		SupercellSize:  0, // unknown until coordinates are generated
		DepthShift:     d.DepthShift,
		HasThreshold:   false,
	}
}

// ScreenCache maps cache keys to deduplicated Screen instances.
type ScreenCache struct {
	mu      sync.Mutex // rung 1, ht_cache_mutex
	engine  *Engine
	entries map[ScreenKey]*Screen
	screens []*Screen
}

// NewScreenCache constructs an empty cache bound to e, used for form-class
// lookups during insertion.
func NewScreenCache(e *Engine) *ScreenCache {
	return &ScreenCache{engine: e, entries: make(map[ScreenKey]*Screen)}
}

func (c *ScreenCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[ScreenKey]*Screen)
	c.screens = nil
}

// Lookup implements spec.md §4.1's lookup with default fallback: an exact
// (spot, type, colorant) match, falling back to (spot, type, ColorantNone)
// on miss.
func (c *ScreenCache) Lookup(key ScreenKey) (*Screen, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.entries[key]; ok {
		return s, true
	}
	if key.Colorant != ColorantNone {
		if s, ok := c.entries[ScreenKey{key.Spot, key.ObjType, ColorantNone}]; ok {
			return s, true
		}
	}
	return nil, false
}

// Insert implements spec.md §4.1's insertion-with-dedup: pre-coordinate
// equivalence search first (skips GenerateCoords entirely on a hit),
// falling back to post-coordinate equivalence, falling back to
// constructing a brand-new Screen.
func (c *ScreenCache) Insert(key ScreenKey, def ScreenDef) (*Screen, error) {
	if err := validateCellGeometry(def.CellBasis); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing := c.findPreEquivalent(def, key); existing != nil {
		c.entries[key] = existing
		existing.mu.Lock()
		existing.refcount++
		existing.mu.Unlock()
		c.mu.Unlock()
		return existing, nil
	}
	c.mu.Unlock()

	xcoords, ycoords, thresh, halfys, err := def.GenerateCoords()
	if err != nil {
		return nil, err
	}

	cand := &Screen{
		CellBasis:      def.CellBasis,
		EXDims:         def.EXDims,
		EYDims:         def.EYDims,
		XCoords:        xcoords,
		YCoords:        ycoords,
		SupercellActual: len(xcoords),
		ThreshXfer:     thresh,
		Frequency:      def.Frequency,
		Angle:          def.Angle,
		Rotation:       def.Rotation,
		Accurate:       def.Accurate,
		DotCentered:    def.DotCentered,
		MultiThreshold: def.MultiThreshold,
		DepthShift:     def.DepthShift,
		SpotName:       def.SpotName,
		ObjType:        def.ObjType,
		ColorantName:   def.ColorantName,
		Notones:        def.Notones,
		HalfYs:         halfys,
		Modular:        def.Modular,
		pattern:        def.Pattern,
	}
	cand.HalfType = ClassifyHalftoneType(cand.CellBasis)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing := c.findPostEquivalent(cand); existing != nil {
		c.entries[key] = existing
		existing.mu.Lock()
		existing.refcount++
		existing.mu.Unlock()
		return existing, nil
	}

	cand.refcount = 1
	if !cand.pattern && !cand.Modular {
		formSize := lineBytesFor(cand.EXDims, cand.DepthShift) * cand.EYDims
		fc := c.engine.Pool.classFor(formSize)
		fc.joinClass(cand)
	}
	c.entries[key] = cand
	c.screens = append(c.screens, cand)
	return cand, nil
}

// findPreEquivalent scans existing screens for one matching def on every
// field knowable before coordinate generation. Caller holds c.mu.
func (c *ScreenCache) findPreEquivalent(def ScreenDef, key ScreenKey) *Screen {
	target := def.equivParams()
	for _, s := range c.screens {
		if s.IsPattern() || s.Modular {
			continue
		}
		sp := s.equivParams()
		sp.SupercellSize = 0
		sp.HasThreshold = false
		if sp.preEquivalent(target) {
			return s
		}
	}
	return nil
}

// findPostEquivalent scans existing screens for one bit-identical to cand
// after coordinate generation, per spec.md §4.1's post-coordinate
// equivalence (including rotation normalization). Caller holds c.mu.
func (c *ScreenCache) findPostEquivalent(cand *Screen) *Screen {
	for _, s := range c.screens {
		if s.IsPattern() || s.Modular {
			continue
		}
		if postEquivalent(s, cand) {
			return s
		}
	}
	return nil
}

// Duplicate implements spec.md §6's duplicate(new_key, existing_key):
// install an alias from newKey to whatever existingKey currently resolves
// to, bumping its reference count.
func (c *ScreenCache) Duplicate(newKey, existingKey ScreenKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[existingKey]
	if !ok {
		return ErrScreenNotFound
	}
	s.mu.Lock()
	s.refcount++
	s.mu.Unlock()
	c.entries[newKey] = s
	return nil
}

// Delete implements spec.md §6's delete(key): drop the key's mapping and
// decrement the underlying screen's reference count. A screen whose
// refcount reaches zero and has no live levels records is removed from
// the cache and its FormClass membership released; per spec.md §3 it is
// only destroyed once BOTH conditions hold, so a screen with live DL
// records lingers (orphaned) until those retire.
func (c *ScreenCache) Delete(key ScreenKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[key]
	if !ok {
		return ErrScreenNotFound
	}
	delete(c.entries, key)

	s.mu.Lock()
	s.refcount--
	dead := s.refcount <= 0 && s.hasNoLiveLevelsLocked()
	s.mu.Unlock()

	if dead {
		c.removeScreen(s)
	}
	return nil
}

// hasNoLiveLevelsLocked reports whether every ring slot is free. Caller
// holds s.mu.
func (s *Screen) hasNoLiveLevelsLocked() bool {
	for i := range s.levels {
		if !s.levels[i].free() {
			return false
		}
	}
	return true
}

// removeScreen detaches s from the screens list and its FormClass.
// Caller holds c.mu.
func (c *ScreenCache) removeScreen(s *Screen) {
	for i, cand := range c.screens {
		if cand == s {
			c.screens = append(c.screens[:i], c.screens[i+1:]...)
			break
		}
	}
	if fc := s.class; fc != nil {
		fc.leaveClass(s)
		c.engine.Pool.destroyIfEmpty(fc)
	}
}

// reapRetired scans every cached screen and removes any that became
// eligible for destruction only after its last levels record retired
// (the delete-then-retire ordering spec.md §3 allows). Called by
// DLManager.retire's Engine wrapper.
func (c *ScreenCache) reapRetired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dead []*Screen
	for _, s := range c.screens {
		s.mu.Lock()
		if s.refcount <= 0 && s.hasNoLiveLevelsLocked() {
			dead = append(dead, s)
		}
		s.mu.Unlock()
	}
	for _, s := range dead {
		c.removeScreen(s)
	}
}

// IterateByDL returns every cached screen with a live levels record for
// dl, per spec.md §4.1's "iteration filtered by DL".
func (c *ScreenCache) IterateByDL(dl EraseNr) []*Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Screen
	for _, s := range c.screens {
		s.mu.RLock()
		has := s.findLevelsRecord(dl) != nil
		s.mu.RUnlock()
		if has {
			out = append(out, s)
		}
	}
	return out
}

// Entries returns a snapshot of every cache key currently mapped to a
// screen, for introspection tools (cmd/htmonitor) that need to list the
// cache without reaching into its internals.
func (c *ScreenCache) Entries() map[ScreenKey]*Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ScreenKey]*Screen, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// IterateBySpot returns every cached screen whose key names the given
// spot number, per spec.md §4.1's "iteration filtered by spot".
func (c *ScreenCache) IterateBySpot(spot int) []*Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[*Screen]bool)
	var out []*Screen
	for k, s := range c.entries {
		if k.Spot == spot && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

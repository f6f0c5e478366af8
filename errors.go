// errors.go - Error taxonomy for the halftone engine

// Mirrors spec.md §7: a small set of sentinel errors, tested with
// errors.Is, in the teacher's plain errors.New/fmt.Errorf style (see
// ahx_parser.go, ay_z80_parser.go) — no custom error-wrapping framework.
package halftone

import "errors"

var (
	// ErrOutOfMemory is returned when allocation fails inside the cache's
	// main mutation path (insert, form allocation). Recoverable at the
	// operator boundary: callers may retry after freeing memory.
	ErrOutOfMemory = errors.New("halftone: out of memory")

	// ErrInvalidAccess signals a security or protection violation, such as
	// a protected screen requested at the wrong resolution. Fatal to the
	// current operator.
	ErrInvalidAccess = errors.New("halftone: invalid access")

	// ErrInterrupted signals a user interrupt detected during preload.
	// Aborts the current sheet render.
	ErrInterrupted = errors.New("halftone: interrupted")

	// ErrInvalidConfiguration signals an incompatible combination, such as
	// a modular screen mixed with RLE output, or a cell geometry rejected
	// at insertion time. Fatal to the current sheet.
	ErrInvalidConfiguration = errors.New("halftone: invalid configuration")

	// ErrScreenNotFound is returned by cache lookups that miss with no
	// applicable default.
	ErrScreenNotFound = errors.New("halftone: screen not found")

	// ErrPoachFailed is returned internally when a poach walk reaches the
	// requesting screen without finding a donor; callers retry the whole
	// acquisition per spec.md §4.4.
	ErrPoachFailed = errors.New("halftone: poach failed")
)

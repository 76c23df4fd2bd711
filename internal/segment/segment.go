// Package segment implements one contiguous heap region: a byte buffer
// backing both reference objects (class instances, array headers) and raw
// non-reference payloads (array content), tracked by a pair of bitsets: one
// marking which units are allocated at all, the other marking which
// allocated units begin a reference object ("object start", as opposed to
// being the interior of a multi-unit object or array payload).
package segment

import (
	"fmt"
	"unsafe"

	"github.com/luiscubal/gctest/internal/bitset"
)

// Segment is one contiguous backing region, aligned internally to unitSize.
type Segment struct {
	unitSize uintptr

	buf     []byte
	aligned uintptr // address of the first unit-aligned byte within buf
	units   int     // number of whole units available after alignment

	allocated   *bitset.Bitset
	objectStart *bitset.Bitset
}

// New constructs a segment able to hold at least requestedSize bytes, given
// a unit size (the heap unit — the size of the object header struct). The
// requested size is rounded up to a multiple of unitSize.
//
// Construction only fails (by panicking) if unitSize is zero or
// requestedSize is negative; ordinary
// Go slice allocation does not fail the way a platform malloc can, so there
// is no recoverable-allocation-failure path here.
func New(requestedSize int, unitSize uintptr) *Segment {
	if unitSize == 0 {
		panic("segment: unit size must be positive")
	}
	if requestedSize < 0 {
		panic("segment: negative size")
	}

	size := alignUp(uintptr(requestedSize), unitSize)
	// Allocate one extra unit of slop so that, whatever alignment the Go
	// allocator happens to hand back for buf, we can still carve out `size`
	// bytes worth of whole, unit-aligned units.
	buf := make([]byte, size+unitSize)

	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := alignUp(base, unitSize)
	units := int(size / unitSize)

	return &Segment{
		unitSize:    unitSize,
		buf:         buf,
		aligned:     aligned,
		units:       units,
		allocated:   bitset.New(units),
		objectStart: bitset.New(units),
	}
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

// UnitSize returns the heap unit size this segment was built with.
func (s *Segment) UnitSize() uintptr { return s.unitSize }

// NumUnits returns the total number of heap units in this segment.
func (s *Segment) NumUnits() int { return s.units }

// Base returns the address of the first usable, unit-aligned byte.
func (s *Segment) Base() uintptr { return s.aligned }

// End returns the address just past the last usable byte.
func (s *Segment) End() uintptr { return s.aligned + uintptr(s.units)*s.unitSize }

func (s *Segment) unitOf(addr uintptr) int {
	return int((addr - s.aligned) / s.unitSize)
}

func (s *Segment) unitAddr(unit int) uintptr {
	return s.aligned + uintptr(unit)*s.unitSize
}

// Pointer returns the address of the given unit as an unsafe.Pointer.
func (s *Segment) Pointer(unit int) unsafe.Pointer {
	return unsafe.Pointer(s.unitAddr(unit))
}

// Contains reports whether addr lies within this segment, is unit-aligned,
// and — if isGCObject is true — is recorded as the start of a reference
// object. An unaligned pointer always returns false: this is what makes
// conservative stack scanning safe against stray, misaligned fragments of a
// stack word.
func (s *Segment) Contains(addr uintptr, isGCObject bool) bool {
	if addr < s.aligned || addr >= s.End() {
		return false
	}
	if (addr-s.aligned)%s.unitSize != 0 {
		return false
	}
	if !isGCObject {
		return true
	}
	return s.objectStart.Get(s.unitOf(addr))
}

// IsObjectStart reports whether the given unit begins a reference object.
func (s *Segment) IsObjectStart(unit int) bool {
	return s.objectStart.Get(unit)
}

// ClearObjectStart clears the object-start bit for a unit. Used by the
// sweeper when reclaiming an object.
func (s *Segment) ClearObjectStart(unit int) {
	s.objectStart.Unset(unit)
}

// IsAllocated reports whether the given unit is part of some live
// allocation (object or payload).
func (s *Segment) IsAllocated(unit int) bool {
	return s.allocated.Get(unit)
}

// UnsetAllocatedRange clears `count` allocated bits starting at unit. Used
// by the sweeper to reclaim a whole object's or payload's span.
func (s *Segment) UnsetAllocatedRange(unit, count int) {
	s.allocated.UnsetRange(unit, count)
}

// UnitAt returns the unit index for an address known to lie in this
// segment and be unit-aligned.
func (s *Segment) UnitAt(addr uintptr) int { return s.unitOf(addr) }

// TryAlloc finds the first maximal run of clear allocated bits whose length
// in bytes is at least size, marks it allocated, marks its first unit as an
// object start iff isGCObject, and returns the unit-aligned address of the
// run. It returns (nil, false) if size exceeds the segment's total capacity
// or no run is free big enough; callers escalate from there (collect, then
// grow the heap).
//
// The scan prefers FindNextUnset to skip over fully-allocated regions
// rather than walking bit by bit.
func (s *Segment) TryAlloc(size uintptr, isGCObject bool) (unsafe.Pointer, bool) {
	if size > uintptr(s.units)*s.unitSize {
		return nil, false
	}
	neededUnits := int((size + s.unitSize - 1) / s.unitSize)
	if neededUnits == 0 {
		neededUnits = 1
	}

	run := 0
	for i := s.allocated.FindNextUnset(0, s.units); i < s.units; {
		if s.allocated.Get(i) {
			// Shouldn't happen: FindNextUnset only returns clear bits.
			i = s.allocated.FindNextUnset(i+1, s.units)
			run = 0
			continue
		}

		runStart := i
		run = 1
		for i+1 < s.units && !s.allocated.Get(i+1) && run < neededUnits {
			i++
			run++
		}

		if run >= neededUnits {
			s.allocated.SetRange(runStart, neededUnits)
			if isGCObject {
				s.objectStart.Set(runStart)
			}
			return unsafe.Pointer(s.unitAddr(runStart)), true
		}

		// This run wasn't big enough; resume scanning right after it.
		i = s.allocated.FindNextUnset(i+1, s.units)
		run = 0
	}

	return nil, false
}

// FreeNonGCObject clears the allocated run for a raw (non-reference)
// payload of `size` bytes starting at ptr. It never touches the
// object-start bitset.
//
// A zero-byte payload still occupies one unit, the same minimum TryAlloc
// reserves for it, so count is clamped to at least 1 rather than unsetting
// an empty range and leaking that unit.
func (s *Segment) FreeNonGCObject(ptr unsafe.Pointer, size uintptr) {
	addr := uintptr(ptr)
	unit := s.unitOf(addr)
	count := int((size + s.unitSize - 1) / s.unitSize)
	if count == 0 {
		count = 1
	}
	s.allocated.UnsetRange(unit, count)
}

// Stats summarizes a segment's occupancy for diagnostics (Context.Stats).
type Stats struct {
	TotalUnits int
	UsedUnits  int
}

func (s *Segment) Stats() Stats {
	return Stats{
		TotalUnits: s.units,
		UsedUnits:  s.allocated.PopCount(),
	}
}

func (s *Segment) String() string {
	return fmt.Sprintf("segment[%d units @ unit=%d, base=%#x]", s.units, s.unitSize, s.aligned)
}

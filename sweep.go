package gctest

import (
	"unsafe"

	"github.com/luiscubal/gctest/internal/gcerr"
	"github.com/luiscubal/gctest/internal/segment"
	"github.com/luiscubal/gctest/internal/types"
)

// sweep walks every segment's object-start bitmap once, reclaiming any
// object whose header was not stamped with the current mark id during the
// mark phase just finished. Callers must hold mu and must call this before
// resumeOthers: sweep runs while the other mutator threads are still
// suspended.
func (c *Context) sweep() {
	for _, seg := range c.segments {
		c.sweepSegment(seg)
	}
}

func (c *Context) sweepSegment(seg *segment.Segment) {
	unitSize := seg.UnitSize()

	for unit := 0; unit < seg.NumUnits(); unit++ {
		if !seg.IsObjectStart(unit) {
			continue
		}

		ptr := seg.Pointer(unit)
		header := asObjectHeader(ptr)
		if header.LastMark == c.lastMarkID {
			continue // live
		}

		size := c.objectSize(ptr, header.Type)

		if header.Type.Category() == types.Array {
			c.freeArrayContent(asArrayHeader(ptr))
		}

		seg.ClearObjectStart(unit)
		seg.UnsetAllocatedRange(unit, unitsFor(size, unitSize))
	}
}

// objectSize returns the number of bytes the object occupies at its own
// address: a class instance's full InstanceSize, or an array's header size
// (not counting the array's separately-allocated content payload).
func (c *Context) objectSize(ptr unsafe.Pointer, t types.TypeId) uintptr {
	switch t.Category() {
	case types.ClassObject:
		return t.Class().InstanceSize
	case types.Array:
		return types.ArrayHeaderSize
	default:
		gcerr.Fatal(gcerr.UnknownTypeCategory, "sweep encountered a heap object with non-reference category %v", t.Category())
		return 0
	}
}

// freeArrayContent reclaims an array's content payload. The payload is
// always allocated as a non-GC-object run in some segment; if that segment
// cannot be found, the heap's bookkeeping has been corrupted. Rather than
// silently leaking or dereferencing garbage, this is treated as a fatal
// invariant violation.
func (c *Context) freeArrayContent(header *ArrayHeader) {
	contentType := header.Type.ArrayContent()
	contentSize := c.store.MeasureArrayContentSize(contentType, header.Length)

	owner := c.findOwnerHeap(uintptr(header.Content), false)
	if owner == nil {
		gcerr.Fatal(gcerr.MissingPayload, "sweep could not find the owning segment for an array's content payload at %#x", uintptr(header.Content))
	}
	owner.FreeNonGCObject(header.Content, contentSize)
}

func unitsFor(size, unitSize uintptr) int {
	if size == 0 {
		return 1
	}
	return int((size + unitSize - 1) / unitSize)
}

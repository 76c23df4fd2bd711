package gctest

import (
	"unsafe"

	"github.com/luiscubal/gctest/internal/gcerr"
	"github.com/luiscubal/gctest/internal/types"
)

// tryAlloc rotates across segments starting from lastAllocSegment, wraps
// around, and returns the first successful allocation. It never triggers a
// collection or grows the heap — that escalation lives in alloc.
func (c *Context) tryAlloc(size uintptr, isGCObject bool) unsafe.Pointer {
	n := len(c.segments)
	if n == 0 {
		return nil
	}
	if c.lastAllocSegment >= n {
		c.lastAllocSegment = 0
	}

	for i := c.lastAllocSegment; i < n; i++ {
		if ptr, ok := c.segments[i].TryAlloc(size, isGCObject); ok {
			c.lastAllocSegment = i
			return ptr
		}
	}
	for i := 0; i < c.lastAllocSegment; i++ {
		if ptr, ok := c.segments[i].TryAlloc(size, isGCObject); ok {
			c.lastAllocSegment = i
			return ptr
		}
	}
	return nil
}

// alloc implements the full allocation escalation ladder:
//  1. tryAlloc; success returns immediately.
//  2. if any segments exist, collect, then retry tryAlloc.
//  3. create a new segment sized max(PreferredSegmentSize, size) and
//     allocate from it; failure here is fatal (OutOfMemoryFatal).
//
// Callers must hold mu.
func (c *Context) alloc(size uintptr, isGCObject bool) unsafe.Pointer {
	if ptr := c.tryAlloc(size, isGCObject); ptr != nil {
		return ptr
	}

	if len(c.segments) > 0 {
		c.collect()
		if ptr := c.tryAlloc(size, isGCObject); ptr != nil {
			return ptr
		}
	}

	newSize := c.cfg.segmentSize()
	if size > newSize {
		newSize = size
	}
	c.addSegment(newSize)

	ptr := c.tryAlloc(size, isGCObject)
	if ptr == nil {
		gcerr.Fatal(gcerr.OutOfMemoryFatal, "could not satisfy a %d-byte allocation even after growing the heap", size)
	}
	return ptr
}

// AllocClass allocates and zero-initializes an instance of the class named
// by t, which must be a ClassObject type. The header's type field is set to
// t and its mark stamp to the collector's current mark id.
func (c *Context) AllocClass(t types.TypeId) unsafe.Pointer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Category() != types.ClassObject {
		gcerr.Fatal(gcerr.UnknownTypeCategory, "alloc_class requires a ClassObject type, got %v", t.Category())
	}
	cls := t.Class()

	ptr := c.alloc(cls.InstanceSize, true)
	zeroMemory(ptr, cls.InstanceSize)

	header := asObjectHeader(ptr)
	header.Type = t
	header.LastMark = c.lastMarkID

	c.stats.Mallocs++
	return ptr
}

// AllocArray allocates an array of length elements of contentType: first
// the (non-reference) content payload, then the array header itself. The
// header's type is the canonical ArrayOf(contentType).
//
// The content payload is explicitly zero-filled here, matching AllocClass,
// rather than left as whatever bytes a reused unit happened to hold: an
// array of references with stale, non-zeroed content could otherwise
// present a dangling pointer to the mark engine, which enqueues
// array-of-reference elements that are non-nil without further validation.
func (c *Context) AllocArray(contentType types.TypeId, length uintptr) unsafe.Pointer {
	c.mu.Lock()
	defer c.mu.Unlock()

	contentSize := c.store.MeasureArrayContentSize(contentType, length)
	content := c.alloc(contentSize, false)
	if contentSize > 0 {
		zeroMemory(content, contentSize)
	}

	arrayType := c.store.ArrayOf(contentType)

	headerPtr := c.alloc(types.ArrayHeaderSize, true)
	zeroMemory(headerPtr, types.ArrayHeaderSize)

	header := asArrayHeader(headerPtr)
	header.Type = arrayType
	header.LastMark = c.lastMarkID
	header.Length = length
	header.Content = content

	c.stats.Mallocs++
	return headerPtr
}

package gctest

import (
	"unsafe"

	"github.com/luiscubal/gctest/internal/types"
)

// collect runs a collection without excluding any registered thread from
// suspension. It is what the allocator escalation ladder (alloc) falls back
// to: the allocating call is not itself a registered mutator thread in this
// model, so there is no caller to exempt.
func (c *Context) collect() {
	c.runCollection(nil)
}

// ForceGC runs a collection on behalf of the registered thread id, which is
// exempted from suspension (it is, by virtue of calling ForceGC, already at
// a safepoint of its own). Every other registered thread is asked to park
// and is blocked until the collection finishes: stop-the-world really
// suspends other threads rather than merely assuming they are quiescent.
func (c *Context) ForceGC(id ThreadID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runCollection(&id)
}

// runCollection performs one full mark-sweep cycle. Callers must hold mu.
// The ordering is strict: suspend fully, then scan roots, then mark, then
// sweep, then resume.
func (c *Context) runCollection(callerID *ThreadID) {
	others := c.suspendOthers(callerID)

	c.lastMarkID++
	c.scanList = c.scanList[:0]

	c.scanRoots(callerID)
	c.finishMark()

	c.sweep()

	c.resumeOthers(others)
	c.stats.Collections++
}

// scanRoots gathers every root: each registered thread's VM stack (and
// optional register snapshot), plus every class's static fields. The
// calling thread's own stack is scanned too if it is registered, even
// though that thread was exempted from suspension; callerID does not change
// which threads are scanned.
func (c *Context) scanRoots(callerID *ThreadID) {
	c.threadsMu.RLock()
	threads := make([]*threadRecord, 0, len(c.threads))
	for _, t := range c.threads {
		threads = append(threads, t)
	}
	c.threadsMu.RUnlock()

	for _, t := range threads {
		if t.stack != nil {
			start, end := t.stack.liveRange()
			c.scanConservativeRange(start, end)
		}
		if t.regs != nil {
			c.scanConservativeWords(t.regs())
		}
	}
	_ = callerID
	c.scanStaticFields()
}

// finishMark drains scanList breadth-first, dispatching on each object's
// type category. Dequeued objects are already stamped with the current
// mark id by enqueue; this loop only needs to discover and enqueue their
// children.
func (c *Context) finishMark() {
	for len(c.scanList) > 0 {
		ptr := c.scanList[0]
		c.scanList = c.scanList[1:]

		header := asObjectHeader(ptr)
		switch header.Type.Category() {
		case types.ClassObject:
			c.markClassFields(ptr, header.Type.Class())
		case types.Array:
			c.markArrayContent(ptr, header.Type)
		default:
			// primitives never reach the scan list as a root's own type;
			// nothing to do.
		}
	}
}

// markClassFields enqueues every non-null reference-typed field reachable
// from a class instance, walking the full base chain since each ancestor's
// fields live at their own (already-computed) offsets within the same
// instance.
func (c *Context) markClassFields(instance unsafe.Pointer, cls *types.Class) {
	for cur := cls; cur != nil; cur = cur.Base {
		for _, f := range cur.Fields {
			if f.IsStatic {
				continue
			}
			if f.Type.Category() != types.Array && f.Type.Category() != types.ClassObject {
				continue
			}
			slot := (*unsafe.Pointer)(unsafe.Add(instance, f.Offset))
			if *slot != nil {
				c.enqueue(*slot)
			}
		}
	}
}

// markArrayContent enqueues every non-null element of a reference-typed
// array. Pushing a null slot onto the scan list would later have it
// dereferenced as if it were a live object, so every element is checked
// before being enqueued. Arrays of PrimitiveI32 content have no references
// to trace and are skipped entirely.
func (c *Context) markArrayContent(ptr unsafe.Pointer, arrayType types.TypeId) {
	contentType := arrayType.ArrayContent()
	if contentType.Category() != types.Array && contentType.Category() != types.ClassObject {
		return
	}

	header := asArrayHeader(ptr)
	elems := unsafe.Slice((*unsafe.Pointer)(header.Content), int(header.Length))
	for _, elem := range elems {
		if elem != nil {
			c.enqueue(elem)
		}
	}
}

// enqueue stamps ptr with the current mark id and pushes it onto the scan
// list, unless it is already stamped (already marked this cycle, so its
// children have already been — or will already be — scanned).
func (c *Context) enqueue(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	header := asObjectHeader(ptr)
	if header.LastMark == c.lastMarkID {
		return
	}
	header.LastMark = c.lastMarkID
	c.scanList = append(c.scanList, ptr)
}

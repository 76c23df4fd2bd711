package gctest

import (
	"sync/atomic"
	"unsafe"

	"github.com/luiscubal/gctest/internal/types"
)

// ThreadID names one registered mutator thread. Embedders are free to pick
// any scheme (a goroutine-local counter, an OS thread id, ...); the
// collector only uses it as a map key.
type ThreadID uint64

// Stack is a manually managed, downward-growing region of machine words
// that a mutator thread pushes potential GC roots (and ordinary i32
// locals) onto. A hosted Go program cannot conservatively scan its own
// goroutine stack the way a freestanding runtime can scan its own, so an
// embedder's VM is expected to route its operand/locals stack through this
// type instead, giving the collector an explicit region to scan.
//
// Values are stored low-index-last: Push decrements the stack pointer and
// writes, Pop reads and increments, so the live region is always
// words[sp:], with the high end (len(words)) the stack's base and the
// current stack pointer at words[sp].
type Stack struct {
	words []uintptr
	sp    int
}

// NewStack allocates a VM stack able to hold up to capacity machine words.
func NewStack(capacity int) *Stack {
	return &Stack{words: make([]uintptr, capacity), sp: capacity}
}

// Push stores a raw machine word (an i32 local, a pointer, whatever the VM
// is pushing) on top of the stack.
func (s *Stack) Push(v uintptr) {
	s.sp--
	s.words[s.sp] = v
}

// PushPointer stores a pointer-valued root on top of the stack.
func (s *Stack) PushPointer(p unsafe.Pointer) {
	s.Push(uintptr(p))
}

// Pop removes and returns the top word.
func (s *Stack) Pop() uintptr {
	v := s.words[s.sp]
	s.sp++
	return v
}

// Len returns the number of live words currently on the stack.
func (s *Stack) Len() int {
	return len(s.words) - s.sp
}

// liveRange returns the [start, end) address range currently in use, for
// conservative scanning. It is only safe to call while the owning thread
// is known not to be concurrently pushing/popping — i.e. while suspended.
func (s *Stack) liveRange() (start, end uintptr) {
	if len(s.words) == 0 {
		return 0, 0
	}
	base := uintptr(unsafe.Pointer(&s.words[0]))
	wordSize := unsafe.Sizeof(uintptr(0))
	return base + uintptr(s.sp)*wordSize, base + uintptr(len(s.words))*wordSize
}

// threadRecord is a registered mutator thread's bookkeeping: its VM stack,
// an optional "spilled register" snapshot callback, and the cooperative
// suspend/resume rendezvous channels used by ForceGC to really suspend the
// thread rather than merely reading its possibly-stale state.
//
// pauseRequested is an atomic.Bool rather than a plain bool guarded by
// Context.mu: Safepoint reads it on every mutator's hot path and must never
// have to acquire mu to do so, since mu is held by the collector across the
// whole suspend/scan/resume window.
type threadRecord struct {
	id    ThreadID
	stack *Stack
	regs  func() []uintptr

	pauseRequested atomic.Bool
	parked         chan struct{}
	resume         chan struct{}
}

// DeclareThread registers a mutator thread with the collector before it may
// allocate: failing to register a thread causes roots on its stack to be
// missed by every subsequent collection. regs may be nil if the thread has
// no register-snapshot source to offer.
func (c *Context) DeclareThread(id ThreadID, stack *Stack, regs func() []uintptr) {
	c.threadsMu.Lock()
	defer c.threadsMu.Unlock()

	c.threads[id] = &threadRecord{
		id:     id,
		stack:  stack,
		regs:   regs,
		parked: make(chan struct{}, 1),
		resume: make(chan struct{}, 1),
	}
}

// ForgetThread deregisters a thread. Its stack is no longer scanned by
// subsequent collections.
func (c *Context) ForgetThread(id ThreadID) {
	c.threadsMu.Lock()
	defer c.threadsMu.Unlock()
	delete(c.threads, id)
}

// RunOnThread is a thread entrypoint helper: it declares the thread, runs
// fn, and forgets the thread when fn returns (including via panic).
func (c *Context) RunOnThread(id ThreadID, stack *Stack, regs func() []uintptr, fn func()) {
	c.DeclareThread(id, stack, regs)
	defer c.ForgetThread(id)
	fn()
}

// Safepoint must be called periodically by a running mutator thread
// (typically once per bytecode-dispatch loop iteration). It is, along with
// allocation, the only point at which a mutator may block waiting on the
// collector. If a collection has requested this thread to pause, Safepoint
// blocks until that collection finishes.
//
// This only ever takes threadsMu, briefly, to look itself up — never mu.
// The collector holds mu for the entire suspend/scan/resume sequence while
// it waits on exactly this call to park; if Safepoint needed mu too, every
// other registered thread would deadlock against the collector the moment
// it tried to cooperate.
func (c *Context) Safepoint(id ThreadID) {
	c.threadsMu.RLock()
	t, ok := c.threads[id]
	c.threadsMu.RUnlock()

	if !ok || !t.pauseRequested.Load() {
		return
	}
	t.parked <- struct{}{}
	<-t.resume
}

// suspendOthers requests every registered thread other than the one named
// by exclude (nil excludes none — used when a collection is triggered from
// outside the thread-registration model, e.g. an allocation-triggered GC)
// to pause, and blocks until each has acknowledged parking at its next
// Safepoint call. Suspension must fully complete before any scanning
// begins.
func (c *Context) suspendOthers(exclude *ThreadID) []*threadRecord {
	c.threadsMu.RLock()
	var others []*threadRecord
	for id, t := range c.threads {
		if exclude != nil && id == *exclude {
			continue
		}
		t.pauseRequested.Store(true)
		others = append(others, t)
	}
	c.threadsMu.RUnlock()

	for _, t := range others {
		<-t.parked
	}
	return others
}

// resumeOthers signals every suspended thread to continue. This only
// happens after both mark and sweep complete.
func (c *Context) resumeOthers(others []*threadRecord) {
	for _, t := range others {
		t.pauseRequested.Store(false)
		t.resume <- struct{}{}
	}
}

// scanStaticFields precisely scans every class's static block, enqueuing
// every non-null reference-typed static field so that everything
// transitively reachable from it is traced too, not merely the static slot
// itself.
func (c *Context) scanStaticFields() {
	for _, cls := range c.store.Classes() {
		if cls.StaticData == nil {
			continue
		}
		for _, f := range cls.Fields {
			if !f.IsStatic {
				continue
			}
			if f.Type.Category() != types.Array && f.Type.Category() != types.ClassObject {
				continue
			}
			slot := (*unsafe.Pointer)(unsafe.Add(cls.StaticData, f.Offset))
			if *slot != nil {
				c.enqueue(*slot)
			}
		}
	}
}

// scanConservativeRange treats every pointer-aligned word in [start, end)
// as a potential root: if it names a live object-start address in some
// segment, it is enqueued. This is the one place a raw, unvalidated machine
// word becomes a candidate pointer; the alignment, segment-membership, and
// object-start checks in findOwnerHeap are exactly what make that safe.
func (c *Context) scanConservativeRange(start, end uintptr) {
	wordSize := unsafe.Sizeof(uintptr(0))
	for addr := start; addr+wordSize <= end; addr += wordSize {
		value := *(*uintptr)(unsafe.Pointer(addr))
		if seg := c.findOwnerHeap(value, true); seg != nil {
			c.enqueue(unsafe.Pointer(value))
		}
	}
}

func (c *Context) scanConservativeWords(words []uintptr) {
	for _, value := range words {
		if seg := c.findOwnerHeap(value, true); seg != nil {
			c.enqueue(unsafe.Pointer(value))
		}
	}
}

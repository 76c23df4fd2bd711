package gctest

import (
	"sync"
	"unsafe"

	"github.com/luiscubal/gctest/internal/segment"
	"github.com/luiscubal/gctest/internal/types"
)

// Context is the embedder-facing collector: it owns the type store, the
// segmented heap, the set of registered mutator threads, and the GC mutex
// that serializes allocation, collection and the heap queries (thread
// registration and Safepoint use the separate threadsMu). An embedder constructs one (or
// more, if it needs isolated heaps) as an ordinary value.
type Context struct {
	mu sync.Mutex // serializes type interning, allocation, and collection.

	store *types.Store
	cfg   Config

	segments         []*segment.Segment
	lastAllocSegment int
	firstHeap        uintptr
	lastHeap         uintptr

	lastMarkID uint32
	scanList   []unsafe.Pointer // BFS queue for the mark phase; see mark.go.

	// threadsMu guards the threads map only, deliberately separate from mu:
	// Safepoint must be able to look up its threadRecord and check whether a
	// pause was requested without ever contending for mu, since mu is held
	// by the collector for the entire suspend/scan/resume sequence and a
	// parking thread calling Safepoint from inside that window must never
	// need the very lock the collector is holding while it waits on that
	// thread to park.
	threadsMu sync.RWMutex
	threads   map[ThreadID]*threadRecord

	stats Stats
}

// NewContext constructs a Context over the given type store. The store's
// ComputeSizes/ComputeStaticSizes must already have been called — a Context
// only allocates and collects, it doesn't lay out types. Static blocks are
// allocated afterwards, from this Context's heap, by PrepareStatics.
func NewContext(store *types.Store, cfg Config) *Context {
	c := &Context{
		store:     store,
		cfg:       cfg,
		firstHeap: ^uintptr(0),
		lastHeap:  0,
		threads:   make(map[ThreadID]*threadRecord),
	}
	for i := 0; i < cfg.InitialSegments; i++ {
		c.addSegment(cfg.segmentSize())
	}
	return c
}

// addSegment creates a new segment of at least size bytes, updates the
// aggregate [firstHeap, lastHeap) bounds cache, and returns it. Caller must
// hold mu.
func (c *Context) addSegment(size uintptr) *segment.Segment {
	seg := segment.New(int(size), types.HeaderSize)
	c.segments = append(c.segments, seg)
	if seg.Base() < c.firstHeap {
		c.firstHeap = seg.Base()
	}
	if seg.End() > c.lastHeap {
		c.lastHeap = seg.End()
	}
	return seg
}

// CountSegments returns the number of segments currently backing the heap.
func (c *Context) CountSegments() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.segments)
}

// findOwnerHeap returns the segment containing addr, or nil. The
// [firstHeap, lastHeap) bounds check is a fast rejection before the
// per-segment scan.
func (c *Context) findOwnerHeap(addr uintptr, isGCObject bool) *segment.Segment {
	if addr < c.firstHeap || addr >= c.lastHeap {
		return nil
	}
	for _, seg := range c.segments {
		if seg.Contains(addr, isGCObject) {
			return seg
		}
	}
	return nil
}

// IsHeapObject reports whether ptr is a live, aligned, object-start address
// within some segment — exactly the check the conservative scanner and
// mark engine both rely on.
func (c *Context) IsHeapObject(ptr unsafe.Pointer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findOwnerHeap(uintptr(ptr), true) != nil
}

// Stats summarizes current heap occupancy and lifetime counters.
type Stats struct {
	Segments    int
	TotalUnits  int
	UsedUnits   int
	TotalBytes  uint64
	UsedBytes   uint64
	Mallocs     uint64
	Collections uint64
}

// PrepareStatics allocates backing storage for every registered class's
// static field block, via the collector's own non-GC-object allocator. It
// must be called once, after the store's ComputeStaticSizes, and before any
// static field is read or written.
func (c *Context) PrepareStatics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.PrepareStaticFields(func(size uintptr) unsafe.Pointer {
		ptr := c.alloc(size, false)
		zeroMemory(ptr, size)
		return ptr
	})
}

// Stats returns a snapshot of the collector's current state.
func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Segments = len(c.segments)
	for _, seg := range c.segments {
		st := seg.Stats()
		s.TotalUnits += st.TotalUnits
		s.UsedUnits += st.UsedUnits
		s.TotalBytes += uint64(st.TotalUnits) * uint64(seg.UnitSize())
		s.UsedBytes += uint64(st.UsedUnits) * uint64(seg.UnitSize())
	}
	return s
}

package gctest

import "testing"

func TestNewContextCreatesInitialSegments(t *testing.T) {
	f := newLinkedListFixture()
	ctx := NewContext(f.store, Config{InitialSegments: 3})
	if ctx.CountSegments() != 3 {
		t.Fatalf("CountSegments() = %d, want 3", ctx.CountSegments())
	}
}

func TestIsHeapObjectRejectsStrayAddresses(t *testing.T) {
	f := newLinkedListFixture()
	ctx := newTestContext(f)

	var local int
	if ctx.IsHeapObject(nil) {
		t.Fatal("nil must never be reported as a heap object")
	}
	if ctx.IsHeapObject(pointerOf(&local)) {
		t.Fatal("a stack-local address must never be reported as a heap object")
	}
}

func TestIsHeapObjectAcceptsAllocatedInstance(t *testing.T) {
	f := newLinkedListFixture()
	ctx := newTestContext(f)

	ptr := ctx.AllocClass(f.linkType)
	if !ctx.IsHeapObject(ptr) {
		t.Fatal("a freshly allocated instance's address must be recognized as a heap object")
	}
}

func TestStatsReflectsAllocations(t *testing.T) {
	f := newLinkedListFixture()
	ctx := newTestContext(f)

	before := ctx.Stats()
	ctx.AllocClass(f.linkType)
	after := ctx.Stats()

	if after.Mallocs != before.Mallocs+1 {
		t.Fatalf("Mallocs did not increase by 1: before=%d after=%d", before.Mallocs, after.Mallocs)
	}
	if after.UsedUnits <= before.UsedUnits {
		t.Fatal("UsedUnits should increase after an allocation")
	}
}

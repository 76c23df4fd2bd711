package gctest

import (
	"testing"
	"unsafe"

	"github.com/luiscubal/gctest/internal/types"
)

func TestAllocClassStampsHeader(t *testing.T) {
	f := newLinkedListFixture()
	ctx := newTestContext(f)

	ptr := ctx.AllocClass(f.linkType)
	if ptr == nil {
		t.Fatal("AllocClass returned nil")
	}

	header := asObjectHeader(ptr)
	if header.Type != f.linkType {
		t.Fatalf("header.Type = %v, want %v", header.Type, f.linkType)
	}
	if header.LastMark != ctx.lastMarkID {
		t.Fatalf("header.LastMark = %d, want %d", header.LastMark, ctx.lastMarkID)
	}
	if getI32Field(ptr, f.valueField) != 0 {
		t.Fatal("newly allocated instance's i32 field should be zeroed")
	}
	if getRefField(ptr, f.nextField) != nil {
		t.Fatal("newly allocated instance's reference field should be nil")
	}

	stats := ctx.Stats()
	if stats.Mallocs != 1 {
		t.Fatalf("Mallocs = %d, want 1", stats.Mallocs)
	}
}

func TestAllocClassRejectsNonClassType(t *testing.T) {
	f := newLinkedListFixture()
	ctx := newTestContext(f)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic allocating a non-class type as a class")
		}
	}()
	ctx.AllocClass(f.store.Int32Type())
}

func TestAllocArrayOfPrimitives(t *testing.T) {
	f := newLinkedListFixture()
	ctx := newTestContext(f)

	const length = 8
	ptr := ctx.AllocArray(f.store.Int32Type(), length)
	header := asArrayHeader(ptr)

	if header.Length != length {
		t.Fatalf("Length = %d, want %d", header.Length, length)
	}
	if header.Type.Category() != types.Array {
		t.Fatalf("array header type category = %v, want Array", header.Type.Category())
	}
	if header.Type.ArrayContent() != f.store.Int32Type() {
		t.Fatal("array content type mismatch")
	}

	elems := unsafe.Slice((*int32)(header.Content), length)
	for i, v := range elems {
		if v != 0 {
			t.Fatalf("element %d not zeroed: %d", i, v)
		}
	}
}

func TestAllocArrayOfReferencesIsZeroed(t *testing.T) {
	f := newLinkedListFixture()
	ctx := newTestContext(f)

	const length = 4
	ptr := ctx.AllocArray(f.linkType, length)
	header := asArrayHeader(ptr)

	elems := unsafe.Slice((*unsafe.Pointer)(header.Content), length)
	for i, v := range elems {
		if v != nil {
			t.Fatalf("element %d not nil: %v", i, v)
		}
	}
}

func TestArrayOfIsCanonicalAcrossAllocations(t *testing.T) {
	f := newLinkedListFixture()
	ctx := newTestContext(f)

	a := ctx.AllocArray(f.store.Int32Type(), 1)
	b := ctx.AllocArray(f.store.Int32Type(), 1)

	if asArrayHeader(a).Type != asArrayHeader(b).Type {
		t.Fatal("two i32 arrays should share the identical canonical array type")
	}
}

func TestAllocGrowsHeapWhenSegmentExhausted(t *testing.T) {
	f := newLinkedListFixture()
	ctx := NewContext(f.store, Config{PreferredSegmentSize: 64, InitialSegments: 1})
	ctx.PrepareStatics()

	before := ctx.CountSegments()
	// Keep every instance reachable from the static root, so a collection
	// cannot free room and the allocator has to add segments.
	prev := ctx.AllocClass(f.linkType)
	setRefField(f.registry.StaticData, f.registryHead, prev)
	for i := 1; i < 200; i++ {
		next := ctx.AllocClass(f.linkType)
		setRefField(prev, f.nextField, next)
		prev = next
	}
	if ctx.CountSegments() <= before {
		t.Fatalf("segment count should grow once retained objects exhaust the initial segment: before=%d after=%d", before, ctx.CountSegments())
	}
}

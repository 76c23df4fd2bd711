package types

import (
	"unsafe"

	"github.com/luiscubal/gctest/internal/gcerr"
)

// HeaderSize is the size, in bytes, of the object header placed at offset 0
// of every heap object: { TypeId, last_mark uint32 }. It is exactly "two
// machine words" per the glossary's definition of the heap unit, because a
// TypeId is a pointer and the 32-bit mark (plus padding) rounds up to a
// second pointer-sized word.
var HeaderSize = 2 * unsafe.Sizeof(uintptr(0))

// ArrayHeaderSize is the size of an array object's header:
// { header, length uintptr, content pointer }.
var ArrayHeaderSize = HeaderSize + 2*unsafe.Sizeof(uintptr(0))

const pointerSize = unsafe.Sizeof(uintptr(0))
const int32Align = unsafe.Sizeof(uint32(0))

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

func fieldAlignAndSize(t TypeId) (align, size uintptr) {
	switch t.category {
	case Array, ClassObject:
		return pointerSize, pointerSize
	case PrimitiveI32:
		return int32Align, int32Align
	default:
		gcerr.Fatal(gcerr.MalformedField, "unrecognized field type category %v", t.category)
		panic("unreachable")
	}
}

// ComputeSizes assigns field.Offset for every non-static field and
// method.VirtualOffset for every virtual method, and records InstanceSize,
// for every registered class.
//
// The base class's full instance layout (header included, at the root of
// the chain) comes first, then each non-static field is aligned to its
// natural alignment and appended, then each virtual method slot is
// appended at pointer alignment. Static fields are skipped entirely — they
// are laid out separately by ComputeStaticSizes, and do not inherit.
func (s *Store) ComputeSizes() {
	for _, cls := range s.classes {
		cls.InstanceSize = computeInstanceSize(cls)
	}
}

func computeInstanceSize(cls *Class) uintptr {
	var size uintptr
	if cls.Base != nil {
		size = computeInstanceSize(cls.Base)
	} else {
		size = HeaderSize
	}

	for _, f := range cls.Fields {
		if f.IsStatic {
			continue
		}
		align, fsize := fieldAlignAndSize(f.Type)
		size = alignUp(size, align)
		f.Offset = size
		size += fsize
	}

	for _, m := range cls.Methods {
		if !m.IsVirtual {
			continue
		}
		size = alignUp(size, pointerSize)
		m.VirtualOffset = size
		size += pointerSize
	}

	return size
}

// ComputeStaticSizes assigns field.Offset for every static field and
// records StaticSize, per class. Static fields do not inherit: each class
// owns its own static block, laid out from offset 0 using the same
// alignment rule as ComputeSizes.
func (s *Store) ComputeStaticSizes() {
	for _, cls := range s.classes {
		cls.StaticSize = computeStaticSize(cls)
	}
}

func computeStaticSize(cls *Class) uintptr {
	var size uintptr
	for _, f := range cls.Fields {
		if !f.IsStatic {
			continue
		}
		align, fsize := fieldAlignAndSize(f.Type)
		size = alignUp(size, align)
		f.Offset = size
		size += fsize
	}
	return size
}

// PrepareStaticFields allocates each class's static block from the heap,
// zero-filled, via the supplied non-GC-object allocator callback. It must
// run after ComputeStaticSizes. Classes with a zero-sized static block are
// left with a nil StaticData.
func (s *Store) PrepareStaticFields(alloc func(size uintptr) unsafe.Pointer) {
	for _, cls := range s.classes {
		if cls.StaticSize == 0 {
			continue
		}
		cls.StaticData = alloc(cls.StaticSize)
	}
}

// MeasureDirectHeapSize returns the number of bytes a value of this type
// occupies when stored directly (as opposed to by reference): the object
// header footprint for a class reference, the array header footprint for
// an array reference, 4 bytes for i32, 0 for void.
func (s *Store) MeasureDirectHeapSize(t TypeId) uintptr {
	switch t.category {
	case ClassObject:
		return HeaderSize
	case Array:
		return ArrayHeaderSize
	case PrimitiveI32:
		return 4
	case PrimitiveVoid:
		return 0
	default:
		gcerr.Fatal(gcerr.MalformedField, "unrecognized type category %v in measure_direct_heap_size", t.category)
		panic("unreachable")
	}
}

// MeasureArrayContentSize returns the byte size of an array's content
// payload: len * MeasureDirectHeapSize(contentType).
func (s *Store) MeasureArrayContentSize(contentType TypeId, length uintptr) uintptr {
	return length * s.MeasureDirectHeapSize(contentType)
}

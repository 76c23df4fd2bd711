package gctest

import (
	"unsafe"

	"github.com/luiscubal/gctest/internal/types"
)

// ObjectHeader is the struct every reference object (class instance or
// array) begins with, at offset 0: { type, last_mark }. Its size is exactly
// the heap unit per the glossary ("two machine words"); this is verified
// once at package init time below, rather than hand-computed, since Go's
// own struct layout rules already produce the right padding.
type ObjectHeader struct {
	Type     types.TypeId
	LastMark uint32
}

// ArrayHeader is the struct an array object begins with:
// { header, length, content }.
type ArrayHeader struct {
	ObjectHeader
	Length  uintptr
	Content unsafe.Pointer
}

func init() {
	if unsafe.Sizeof(ObjectHeader{}) != types.HeaderSize {
		panic("gctest: ObjectHeader size disagrees with types.HeaderSize")
	}
	if unsafe.Sizeof(ArrayHeader{}) != types.ArrayHeaderSize {
		panic("gctest: ArrayHeader size disagrees with types.ArrayHeaderSize")
	}
}

func asObjectHeader(ptr unsafe.Pointer) *ObjectHeader {
	return (*ObjectHeader)(ptr)
}

func asArrayHeader(ptr unsafe.Pointer) *ArrayHeader {
	return (*ArrayHeader)(ptr)
}

func zeroMemory(ptr unsafe.Pointer, size uintptr) {
	buf := unsafe.Slice((*byte)(ptr), int(size))
	for i := range buf {
		buf[i] = 0
	}
}

package gctest

import (
	"unsafe"

	"github.com/luiscubal/gctest/internal/types"
)

func pointerOf(v *int) unsafe.Pointer {
	return unsafe.Pointer(v)
}

func pointerWord(p unsafe.Pointer) uintptr {
	return uintptr(p)
}

func setArrayElem(arr unsafe.Pointer, index int, value unsafe.Pointer) {
	header := asArrayHeader(arr)
	elems := unsafe.Slice((*unsafe.Pointer)(header.Content), int(header.Length))
	elems[index] = value
}

func setRefField(instance unsafe.Pointer, f *types.Field, value unsafe.Pointer) {
	slot := (*unsafe.Pointer)(unsafe.Add(instance, f.Offset))
	*slot = value
}

func getRefField(instance unsafe.Pointer, f *types.Field) unsafe.Pointer {
	slot := (*unsafe.Pointer)(unsafe.Add(instance, f.Offset))
	return *slot
}

func setI32Field(instance unsafe.Pointer, f *types.Field, value int32) {
	slot := (*int32)(unsafe.Add(instance, f.Offset))
	*slot = value
}

func getI32Field(instance unsafe.Pointer, f *types.Field) int32 {
	slot := (*int32)(unsafe.Add(instance, f.Offset))
	return *slot
}

// linkedListFixture sets up a self-referential "Link" class with an i32
// "value" field and a "next" reference field, plus a static "head" field on
// a separate "Registry" class so static-root scanning has something to
// exercise.
type linkedListFixture struct {
	store      *types.Store
	link       *types.Class
	linkType   types.TypeId
	valueField *types.Field
	nextField  *types.Field

	registry     *types.Class
	registryHead *types.Field
}

func newLinkedListFixture() *linkedListFixture {
	store := types.NewStore()

	link := store.RegisterClass("demo.Link", nil)
	valueField := store.AddField(link, store.Int32Type(), false, true)
	linkType := store.ClassType(link)
	nextField := store.AddField(link, linkType, false, true)

	registry := store.RegisterClass("demo.Registry", nil)
	registryHead := store.AddField(registry, linkType, true, true)

	store.ComputeSizes()
	store.ComputeStaticSizes()

	return &linkedListFixture{
		store:        store,
		link:         link,
		linkType:     linkType,
		valueField:   valueField,
		nextField:    nextField,
		registry:     registry,
		registryHead: registryHead,
	}
}

func newTestContext(f *linkedListFixture) *Context {
	ctx := NewContext(f.store, Config{InitialSegments: 1})
	ctx.PrepareStatics()
	return ctx
}

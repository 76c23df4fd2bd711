package types

import (
	"testing"
	"unsafe"
)

func TestComputeSizesBaseFieldsComeFirst(t *testing.T) {
	s := NewStore()
	base := s.RegisterClass("demo.Base", nil)
	baseField := s.AddField(base, s.Int32Type(), false, true)

	derived := s.RegisterClass("demo.Derived", base)
	derivedField := s.AddField(derived, s.Int32Type(), false, true)

	s.ComputeSizes()

	if baseField.Offset < HeaderSize {
		t.Fatalf("base field offset %d must be at or after the header", baseField.Offset)
	}
	if derivedField.Offset < baseField.Offset+unsafe.Sizeof(int32(0)) {
		t.Fatal("derived class fields must be laid out after the base's own fields")
	}
	if derived.InstanceSize < base.InstanceSize {
		t.Fatal("derived.InstanceSize must be at least base.InstanceSize")
	}
}

func TestComputeSizesAlignsFields(t *testing.T) {
	s := NewStore()
	cls := s.RegisterClass("demo.Foo", nil)
	// A pointer-sized field after an i32 field should be aligned up, not
	// packed immediately after it.
	i32Field := s.AddField(cls, s.Int32Type(), false, true)
	ptrField := s.AddField(cls, s.ArrayOf(s.Int32Type()), false, true)

	s.ComputeSizes()

	if ptrField.Offset%pointerSize != 0 {
		t.Fatalf("pointer-typed field offset %d must be pointer-aligned", ptrField.Offset)
	}
	if ptrField.Offset <= i32Field.Offset {
		t.Fatal("fields must be laid out in declaration order")
	}
}

func TestStaticFieldsDoNotInherit(t *testing.T) {
	s := NewStore()
	base := s.RegisterClass("demo.Base", nil)
	s.AddField(base, s.Int32Type(), true, true)

	derived := s.RegisterClass("demo.Derived", base)

	s.ComputeStaticSizes()

	if derived.StaticSize != 0 {
		t.Fatalf("derived.StaticSize = %d, want 0: static fields must not inherit", derived.StaticSize)
	}
	if base.StaticSize == 0 {
		t.Fatal("base.StaticSize should reflect its own static field")
	}
}

func TestPrepareStaticFieldsSkipsZeroSized(t *testing.T) {
	s := NewStore()
	cls := s.RegisterClass("demo.Foo", nil)
	s.ComputeStaticSizes()

	called := false
	s.PrepareStaticFields(func(size uintptr) unsafe.Pointer {
		called = true
		return nil
	})

	if called {
		t.Fatal("a class with no static fields should never invoke the allocator callback")
	}
	if cls.StaticData != nil {
		t.Fatal("a zero-sized static block should leave StaticData nil")
	}
}

func TestMeasureDirectHeapSize(t *testing.T) {
	s := NewStore()
	cls := s.RegisterClass("demo.Foo", nil)

	cases := []struct {
		name string
		t    TypeId
		want uintptr
	}{
		{"i32", s.Int32Type(), 4},
		{"void", s.VoidType(), 0},
		{"class", s.ClassType(cls), HeaderSize},
		{"array", s.ArrayOf(s.Int32Type()), ArrayHeaderSize},
	}
	for _, c := range cases {
		if got := s.MeasureDirectHeapSize(c.t); got != c.want {
			t.Errorf("%s: MeasureDirectHeapSize = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestMeasureArrayContentSize(t *testing.T) {
	s := NewStore()
	got := s.MeasureArrayContentSize(s.Int32Type(), 10)
	if got != 40 {
		t.Fatalf("MeasureArrayContentSize(i32, 10) = %d, want 40", got)
	}
}

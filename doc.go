// Package gctest implements a stop-the-world, conservative mark-and-sweep
// garbage collector for a small, JVM-like managed-object runtime: classes
// with single-inheritance base chains, static fields, methods, and typed
// arrays of either the i32 primitive or class/array references.
//
// The collector is built from three cooperating pieces: a bitmap-tracked
// segmented heap (internal/segment, internal/bitset), a type metadata store
// that computes object and static layouts from class descriptors
// (internal/types), and the Context in this package, which ties together
// allocation, conservative root scanning, type-directed marking, and
// sweeping.
package gctest

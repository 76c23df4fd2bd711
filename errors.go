package gctest

import "github.com/luiscubal/gctest/internal/gcerr"

// GCError is the panic value raised for every fatal, invariant-violation
// condition this module detects. Embedders that want to report a
// crash gracefully rather than letting the panic propagate can recover and
// type-assert:
//
//	defer func() {
//		if r := recover(); r != nil {
//			if gerr, ok := r.(*gctest.GCError); ok {
//				log.Fatalf("fatal gc error: %s", gerr)
//			}
//			panic(r)
//		}
//	}()
type GCError = gcerr.Error

// Error kind constants, re-exported from internal/gcerr so embedders never
// need to import the internal package directly.
const (
	ErrOutOfMemory         = gcerr.OutOfMemoryFatal
	ErrUnknownTypeCategory = gcerr.UnknownTypeCategory
	ErrClassNotFound       = gcerr.ClassNotFound
	ErrMalformedField      = gcerr.MalformedField
	ErrMissingPayload      = gcerr.MissingPayload
)

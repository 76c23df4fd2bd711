package gctest

// DefaultSegmentSize is the segment size used when Config.PreferredSegmentSize
// is zero; a freshly grown segment is larger only if the request needs it.
const DefaultSegmentSize = 0x1000

// Config holds the small set of knobs NewContext needs: a plain struct of
// fields rather than a builder or functional-options API.
type Config struct {
	// PreferredSegmentSize is the size requested for a newly grown
	// segment when the heap runs out of space. If zero, DefaultSegmentSize
	// is used.
	PreferredSegmentSize uintptr

	// InitialSegments is the number of segments to create up front, each
	// of PreferredSegmentSize. Zero is fine — segments are created lazily
	// on allocation pressure.
	InitialSegments int
}

func (c Config) segmentSize() uintptr {
	if c.PreferredSegmentSize == 0 {
		return DefaultSegmentSize
	}
	return c.PreferredSegmentSize
}

// Package bitset implements a dense, word-packed bit array used by the
// segment allocator to track which heap units are allocated and which
// allocated units are the start of a reference object.
//
// Bits are packed 32 to a word, range operations skip whole words in the
// aligned middle, and the find operations respect a caller-supplied scan
// limit exactly.
package bitset

const wordBits = 32

// OutOfRange is returned (via panic, see Bitset.checkIndex) when an index is
// used that is not smaller than the bitset's bit count. Debug-only checks are
// acceptable per the design; this module always checks, since the cost is
// negligible next to a heap scan.
type OutOfRange struct {
	Index int
	Size  int
}

func (e *OutOfRange) Error() string {
	return "bitset: index out of range"
}

// Bitset is a fixed-size, dense bit array stored as a slice of 32-bit words.
type Bitset struct {
	bitcount int
	words    []uint32
}

// New returns a Bitset with bitcount bits, all initially clear.
func New(bitcount int) *Bitset {
	if bitcount < 0 {
		panic("bitset: negative bitcount")
	}
	return &Bitset{
		bitcount: bitcount,
		words:    make([]uint32, (bitcount+wordBits-1)/wordBits),
	}
}

// Size returns the number of bits in the set. It also doubles as the
// "not found" sentinel returned by the find operations.
func (b *Bitset) Size() int {
	return b.bitcount
}

func (b *Bitset) checkIndex(i int) {
	if i < 0 || i >= b.bitcount {
		panic(&OutOfRange{Index: i, Size: b.bitcount})
	}
}

// Get returns whether bit i is set.
func (b *Bitset) Get(i int) bool {
	b.checkIndex(i)
	return b.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// Set sets bit i.
func (b *Bitset) Set(i int) {
	b.checkIndex(i)
	b.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// Unset clears bit i.
func (b *Bitset) Unset(i int) {
	b.checkIndex(i)
	b.words[i/wordBits] &^= 1 << uint(i%wordBits)
}

// SetRange sets the len bits starting at start.
//
// The unaligned prefix and suffix are handled bit-by-bit; the aligned middle
// is filled one word at a time.
func (b *Bitset) SetRange(start, length int) {
	if length == 0 {
		return
	}
	b.checkIndex(start)
	b.checkIndex(start + length - 1)

	for start%wordBits != 0 && length > 0 {
		b.Set(start)
		start++
		length--
	}
	for length >= wordBits {
		b.words[start/wordBits] = 0xFFFFFFFF
		start += wordBits
		length -= wordBits
	}
	for length > 0 {
		b.Set(start)
		start++
		length--
	}
}

// UnsetRange clears the len bits starting at start.
func (b *Bitset) UnsetRange(start, length int) {
	if length == 0 {
		return
	}
	b.checkIndex(start)
	b.checkIndex(start + length - 1)

	for start%wordBits != 0 && length > 0 {
		b.Unset(start)
		start++
		length--
	}
	for length >= wordBits {
		b.words[start/wordBits] = 0
		start += wordBits
		length -= wordBits
	}
	for length > 0 {
		b.Unset(start)
		start++
		length--
	}
}

// FindNextSet returns the index of the first set bit at or after start,
// scanning at most maxScan bits. It returns Size() if no set bit is found
// within that window.
//
// The scan aligns to a word boundary bit-by-bit, then skips entirely-zero
// words 32 bits at a time, then finishes bit-by-bit within the word that
// contains the match.
func (b *Bitset) FindNextSet(start, maxScan int) int {
	return b.findNext(start, maxScan, true)
}

// FindNextUnset is the same as FindNextSet but looks for a clear bit.
func (b *Bitset) FindNextUnset(start, maxScan int) int {
	return b.findNext(start, maxScan, false)
}

func (b *Bitset) findNext(start, maxScan int, wantSet bool) int {
	size := b.bitcount

	// Align the start to a word boundary, bit by bit.
	for start%wordBits != 0 && maxScan > 0 {
		if start >= size || b.bitAt(start) == wantSet {
			return start
		}
		start++
		maxScan--
	}

	skipWord := uint32(0)
	if !wantSet {
		skipWord = 0xFFFFFFFF
	}

	for start < size && maxScan > 0 {
		word := b.words[start/wordBits]
		if word == skipWord {
			// Quickly rule out a word with no matching bit.
			start += wordBits
			if maxScan < wordBits {
				return size
			}
			maxScan -= wordBits
			continue
		}

		for i := 0; i < wordBits; i++ {
			if maxScan == 0 {
				return size
			}
			if start >= size {
				return size
			}
			if b.bitAt(start) == wantSet {
				return start
			}
			start++
			maxScan--
		}
	}

	return size
}

func (b *Bitset) bitAt(i int) bool {
	return b.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// PopCount returns the total number of set bits in the set. It is used for
// diagnostics (Context.Stats) rather than anywhere on the hot allocation
// path, so a portable table-driven count is sufficient; see popcount.go for
// the platform-accelerated variant.
func (b *Bitset) PopCount() int {
	total := 0
	for _, w := range b.words {
		total += popcountWord(w)
	}
	return total
}

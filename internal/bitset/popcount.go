package bitset

import (
	"math/bits"

	"golang.org/x/sys/cpu"
)

// count4LUT counts the set bits in a 4-bit nibble, backing the portable
// fallback for PopCount.
var count4LUT = [16]uint8{
	0b0000: 0, 0b0001: 1, 0b0010: 1, 0b0011: 2,
	0b0100: 1, 0b0101: 2, 0b0110: 2, 0b0111: 3,
	0b1000: 1, 0b1001: 2, 0b1010: 2, 0b1011: 3,
	0b1100: 2, 0b1101: 3, 0b1110: 3, 0b1111: 4,
}

// popcountWord counts the set bits of a single 32-bit word. On hosts where
// golang.org/x/sys/cpu reports a hardware popcount unit, math/bits.OnesCount32
// is used — the Go compiler intrinsifies it directly to that instruction;
// otherwise the nibble lookup table is used, which avoids depending on an
// instruction the host CPU was just reported not to have.
func popcountWord(w uint32) int {
	if hasHardwarePopcount {
		return bits.OnesCount32(w)
	}
	n := 0
	n += int(count4LUT[w&0xF])
	n += int(count4LUT[(w>>4)&0xF])
	n += int(count4LUT[(w>>8)&0xF])
	n += int(count4LUT[(w>>12)&0xF])
	n += int(count4LUT[(w>>16)&0xF])
	n += int(count4LUT[(w>>20)&0xF])
	n += int(count4LUT[(w>>24)&0xF])
	n += int(count4LUT[(w>>28)&0xF])
	return n
}

// hasHardwarePopcount reports whether the host CPU exposes a native
// population-count instruction, per golang.org/x/sys/cpu's feature
// detection. Both x86 (POPCNT) and arm64 always have one in practice.
var hasHardwarePopcount = cpu.X86.HasPOPCNT || cpu.ARM64.HasASIMD

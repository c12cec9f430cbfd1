package beaconadv

// Bit-level helpers for picking fields out of advertisement payloads.
// All of these are total for correctly sized inputs; the frame layouts
// guarantee the sizes before calling.

// bits masks a byte with an arbitrary bit mask. The result is not
// shifted, callers shift as needed for non-aligned masks.
func bits(b, mask byte) byte {
	return b & mask
}

// signedByte reinterprets an 8-bit unsigned value as two's-complement.
func signedByte(b byte) int8 {
	return int8(b)
}

// signedN returns the two's-complement interpretation of an unsigned
// value occupying width bits.
func signedN(raw uint32, width uint) int32 {
	if raw&(1<<(width-1)) != 0 {
		return int32(raw) - int32(1)<<width
	}
	return int32(raw)
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint48(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
		uint64(b[3])<<24 | uint64(b[4])<<32 | uint64(b[5])<<40
}

func leUint64(b []byte) uint64 {
	return leUint48(b) | uint64(b[6])<<48 | uint64(b[7])<<56
}

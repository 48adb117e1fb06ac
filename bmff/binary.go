package bmff

import (
	"encoding/binary"
	"math"
)

var be = binary.BigEndian

const uint32Max = math.MaxUint32

// MaxInMemory is the largest box that may be loaded and mutated as one buffer.
const MaxInMemory = math.MaxInt32

// Big-endian field access at a byte offset. The caller guarantees that
// off+width is within b.

func Uint16At(b []byte, off int) uint16 { return be.Uint16(b[off:]) }
func Uint32At(b []byte, off int) uint32 { return be.Uint32(b[off:]) }
func Uint64At(b []byte, off int) uint64 { return be.Uint64(b[off:]) }

func PutUint16At(b []byte, off int, v uint16) { be.PutUint16(b[off:], v) }
func PutUint32At(b []byte, off int, v uint32) { be.PutUint32(b[off:], v) }
func PutUint64At(b []byte, off int, v uint64) { be.PutUint64(b[off:], v) }

// TypeAt returns the box type stored at b[off:off+4].
func TypeAt(b []byte, off int) BoxType {
	var t BoxType
	copy(t[:], b[off:off+4])
	return t
}

// PutTypeAt stores t at b[off:off+4].
func PutTypeAt(b []byte, off int, t BoxType) {
	copy(b[off:off+4], t[:])
}

package splice

import (
	"fmt"
	"math"

	"github.com/tetsuo/mp4meta/bmff"
)

// isOffsetContainer reports whether t may hold a chunk offset table below it.
func isOffsetContainer(t bmff.BoxType) bool {
	switch t {
	case bmff.TypeTrak, bmff.TypeMdia, bmff.TypeMinf, bmff.TypeStbl, bmff.TypeUdta:
		return true
	}
	return false
}

// AdjustChunkOffsets adds delta to every stco/co64 entry at or past pivot,
// the original end of the header in the file. It returns the number of
// entries patched. On error the buffer may be partially patched and must be
// discarded.
func AdjustChunkOffsets(moov []byte, delta int64, pivot uint64) (int, error) {
	if delta == 0 {
		return 0, nil
	}
	r := bmff.NewReader(moov)
	if !r.Next() || r.Type() != bmff.TypeMoov {
		return 0, fmt.Errorf("header root: %w", bmff.ErrMalformed)
	}
	r.Enter()
	n, err := adjust(&r, delta, pivot)
	r.Exit()
	return n, err
}

func adjust(r *bmff.Reader, delta int64, pivot uint64) (int, error) {
	patched := 0
	for r.Next() {
		switch t := r.Type(); {
		case t == bmff.TypeStco || t == bmff.TypeCo64:
			n, err := patchTable(r.Data(), t == bmff.TypeCo64, delta, pivot)
			patched += n
			if err != nil {
				return patched, err
			}
		case isOffsetContainer(t):
			if !r.Enter() {
				return patched, fmt.Errorf("%s nested too deep: %w", t, bmff.ErrUnsupported)
			}
			n, err := adjust(r, delta, pivot)
			r.Exit()
			patched += n
			if err != nil {
				return patched, err
			}
		}
	}
	return patched, nil
}

func patchTable(data []byte, wide bool, delta int64, pivot uint64) (int, error) {
	limit := uint64(math.MaxUint32)
	if wide {
		limit = math.MaxUint64
	}
	it := bmff.NewChunkOffsetIter(data, wide)
	patched := 0
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		if v < pivot {
			continue
		}
		var nv uint64
		if delta > 0 {
			if uint64(delta) > limit-v {
				return patched, fmt.Errorf("chunk offset %d + %d overflows: %w", v, delta, bmff.ErrUnsupported)
			}
			nv = v + uint64(delta)
		} else {
			if uint64(-delta) > v {
				return patched, fmt.Errorf("chunk offset %d - %d underflows: %w", v, -delta, bmff.ErrMalformed)
			}
			nv = v - uint64(-delta)
		}
		it.Set(nv)
		patched++
	}
	return patched, nil
}

// CheckSizes verifies that the boxes in buf tile it exactly, recursing into
// moov and the offset containers. It is the post-condition of every splice.
func CheckSizes(buf []byte) error {
	return checkRange(buf, 0, len(buf))
}

func checkRange(buf []byte, start, end int) error {
	pos := start
	for pos < end {
		if end-pos == 4 && start > 0 && bmff.Uint32At(buf, pos) == 0 {
			return nil // QuickTime container terminator
		}
		if end-pos < 8 {
			return fmt.Errorf("%d trailing bytes at %d: %w", end-pos, pos, bmff.ErrMalformed)
		}
		size := int64(bmff.Uint32At(buf, pos))
		t := bmff.TypeAt(buf, pos+4)
		hdr := 8
		switch size {
		case 0:
			size = int64(end - pos)
		case 1:
			if end-pos < 16 {
				return fmt.Errorf("%s at %d: %w", t, pos, bmff.ErrMalformed)
			}
			size = int64(bmff.Uint64At(buf, pos+8))
			hdr = 16
		}
		if size < int64(hdr) || size > int64(end-pos) {
			return fmt.Errorf("%s at %d declares %d bytes, %d available: %w", t, pos, size, end-pos, bmff.ErrMalformed)
		}
		if t == bmff.TypeMoov || isOffsetContainer(t) {
			if err := checkRange(buf, pos+hdr, pos+int(size)); err != nil {
				return err
			}
		}
		pos += int(size)
	}
	return nil
}

// Package splice mutates an in-memory movie header. Every operation returns a
// new buffer with all ancestor size fields already updated, so a sequence of
// insertions never has to reconcile overlapping deltas.
package splice

import (
	"fmt"
	"math"

	"github.com/tetsuo/mp4meta/bmff"
)

// InsertAt returns a new buffer with data spliced into buf at off.
func InsertAt(buf []byte, off int, data []byte) ([]byte, error) {
	return ReplaceRegion(buf, off, 0, data)
}

// ReplaceRegion returns a new buffer in which the n bytes of buf starting at
// off are replaced by data. The lengths may differ.
func ReplaceRegion(buf []byte, off, n int, data []byte) ([]byte, error) {
	if off < 0 || n < 0 || off > len(buf) || n > len(buf)-off {
		return nil, fmt.Errorf("replace [%d,+%d) in %d bytes: %w", off, n, len(buf), bmff.ErrUnexpectedEnd)
	}
	out := make([]byte, 0, len(buf)-n+len(data))
	out = append(out, buf[:off]...)
	out = append(out, data...)
	out = append(out, buf[off+n:]...)
	return out, nil
}

// root validates the header buffer and returns its children range.
func root(moov []byte) (start, end int, err error) {
	if len(moov) < 8 || bmff.TypeAt(moov, 4) != bmff.TypeMoov {
		return 0, 0, fmt.Errorf("header root: %w", bmff.ErrMalformed)
	}
	switch size := bmff.Uint32At(moov, 0); {
	case size == 1:
		return 0, 0, fmt.Errorf("header root uses a 64-bit size: %w", bmff.ErrUnsupported)
	case size != 0 && int64(size) != int64(len(moov)):
		return 0, 0, fmt.Errorf("header root declares %d bytes, have %d: %w", size, len(moov), bmff.ErrMalformed)
	}
	return 8, len(moov), nil
}

// setSize rewrites the 32-bit size field of the box at off.
func setSize(buf []byte, off int, size int) error {
	if size < 8 || size > math.MaxUint32 {
		return fmt.Errorf("box size %d: %w", size, bmff.ErrUnsupported)
	}
	bmff.PutUint32At(buf, off, uint32(size))
	return nil
}

// finish checks the grown header against the in-memory limit and patches the
// root size.
func finish(out []byte) ([]byte, error) {
	if len(out) > bmff.MaxInMemory {
		return nil, fmt.Errorf("header grows to %d bytes: %w", len(out), bmff.ErrUnsupported)
	}
	if err := setSize(out, 0, len(out)); err != nil {
		return nil, err
	}
	return out, nil
}

// InjectAtom places one text atom inside moov/udta. An existing child with the
// same type is replaced, otherwise the atom is appended to udta. A missing
// udta is created at the end of moov.
func InjectAtom(moov []byte, t bmff.BoxType, raw []byte) ([]byte, error) {
	start, end, err := root(moov)
	if err != nil {
		return nil, err
	}

	udta, ok := bmff.FindBox(moov, start, end, bmff.TypeUdta)
	if !ok {
		w := bmff.NewWriter(make([]byte, 0, 8+len(raw)))
		w.StartBox(bmff.TypeUdta)
		w.PutBytes(raw)
		w.EndBox()
		out, err := InsertAt(moov, end, w.Bytes())
		if err != nil {
			return nil, err
		}
		return finish(out)
	}
	if udta.Extended() {
		return nil, fmt.Errorf("udta uses a 64-bit size: %w", bmff.ErrUnsupported)
	}

	var out []byte
	delta := len(raw)
	if child, ok := bmff.FindBox(moov, udta.PayloadOffset(), udta.End(), t); ok {
		if child.Extended() {
			return nil, fmt.Errorf("%s uses a 64-bit size: %w", t, bmff.ErrUnsupported)
		}
		out, err = ReplaceRegion(moov, child.Offset, child.Size, raw)
		delta -= child.Size
	} else {
		out, err = InsertAt(moov, appendPoint(moov, udta), raw)
	}
	if err != nil {
		return nil, err
	}
	if err := setSize(out, udta.Offset, udta.Size+delta); err != nil {
		return nil, err
	}
	return finish(out)
}

// InjectMeta places a complete meta box as a direct child of moov, replacing
// any existing one.
func InjectMeta(moov []byte, meta []byte) ([]byte, error) {
	start, end, err := root(moov)
	if err != nil {
		return nil, err
	}
	var out []byte
	if old, ok := bmff.FindBox(moov, start, end, bmff.TypeMeta); ok {
		if old.Extended() {
			return nil, fmt.Errorf("meta uses a 64-bit size: %w", bmff.ErrUnsupported)
		}
		out, err = ReplaceRegion(moov, old.Offset, old.Size, meta)
	} else {
		out, err = InsertAt(moov, end, meta)
	}
	if err != nil {
		return nil, err
	}
	return finish(out)
}

// appendPoint returns where a new child of udta goes: the end of the box, or
// before a trailing 32-bit zero terminator when one is present.
func appendPoint(buf []byte, udta bmff.BoxInfo) int {
	end := udta.End()
	last := udta.PayloadOffset()
	r := bmff.NewRangeReader(buf, last, end)
	for r.Next() {
		last = r.End()
	}
	if end-last == 4 && bmff.Uint32At(buf, last) == 0 {
		return last
	}
	return end
}

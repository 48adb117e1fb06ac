package commit

import (
	"errors"
	"fmt"

	"github.com/tetsuo/mp4meta/bmff"
)

// DefaultChunkSize is the copy unit of a tail shift.
const DefaultChunkSize = 64 << 10

// ErrLocked is returned by Open when another handle holds the file lock.
// Locks are flock(2) on unix and LockFileEx on Windows. On platforms without
// either (aix, solaris, plan9, js, wasip1) Open never locks and concurrent
// writers go undetected.
var ErrLocked = errors.New("commit: file is locked by another process")

// Strategy is the write-back method chosen for a header.
type Strategy int

const (
	// Overwrite rewrites the header range in place; the size is unchanged.
	Overwrite Strategy = iota
	// Truncate rewrites the header and sets the file length; the header was
	// the last box.
	Truncate
	// AbsorbFree grows the header into the padding box that follows it.
	AbsorbFree
	// ShiftTail moves every byte after the header. Chunk offsets in the
	// header must already account for the move.
	ShiftTail
)

func (s Strategy) String() string {
	switch s {
	case Overwrite:
		return "overwrite"
	case Truncate:
		return "truncate"
	case AbsorbFree:
		return "absorb-free"
	case ShiftTail:
		return "shift-tail"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Plan describes how one header will be committed.
type Plan struct {
	Strategy Strategy
	Start    int64 // original header offset
	End      int64 // original header end
	Length   int64 // new header length
	FileSize int64 // file length before the commit

	// Padding is the absorbed free/skip box for AbsorbFree.
	Padding bmff.ScanEntry
	// paddingToEnd records a padding box declared with size 0.
	paddingToEnd bool
}

// Delta is the signed change of the header size.
func (p Plan) Delta() int64 { return p.Length - (p.End - p.Start) }

// Choose picks the cheapest strategy for replacing the header at
// [start, end) with newLen bytes:
//
//  1. same size: overwrite
//  2. header is last in the file: overwrite and set the length
//  3. growing into a following free/skip box of at least delta+8 bytes
//  4. otherwise shift the tail
func Choose(f File, start, end, newLen int64) (Plan, error) {
	size, err := f.Size()
	if err != nil {
		return Plan{}, err
	}
	if start < 0 || end < start || end > size {
		return Plan{}, fmt.Errorf("header [%d,%d) outside a %d-byte file: %w", start, end, size, bmff.ErrUnexpectedEnd)
	}
	p := Plan{Start: start, End: end, Length: newLen, FileSize: size}
	delta := p.Delta()

	switch {
	case delta == 0:
		p.Strategy = Overwrite
		return p, nil
	case end == size:
		p.Strategy = Truncate
		return p, nil
	}

	if delta > 0 && size-end >= 8 {
		var hdr [8]byte
		if err := bmff.ReadFullAt(f, hdr[:], end); err != nil {
			return Plan{}, err
		}
		t := bmff.TypeAt(hdr[:], 4)
		padSize := int64(bmff.Uint32At(hdr[:], 0))
		toEnd := padSize == 0
		if toEnd {
			padSize = size - end
		}
		if bmff.IsPadding(t) && padSize != 1 && padSize <= size-end && padSize >= delta+8 {
			p.Strategy = AbsorbFree
			p.Padding = bmff.ScanEntry{Type: t, Size: padSize, Offset: end, HeaderSize: 8}
			p.paddingToEnd = toEnd
			return p, nil
		}
	}

	p.Strategy = ShiftTail
	return p, nil
}

// Apply commits header according to p. chunk is the tail-shift copy unit.
//
// A ShiftTail commit is not atomic: an error or crash while the tail is being
// moved leaves the file inconsistent.
func Apply(f File, p Plan, header []byte, chunk int) error {
	if int64(len(header)) != p.Length {
		return fmt.Errorf("header is %d bytes, plan expects %d", len(header), p.Length)
	}
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	switch p.Strategy {
	case Overwrite:
		return writeFull(f, header, p.Start)

	case Truncate:
		if err := writeFull(f, header, p.Start); err != nil {
			return err
		}
		return f.Truncate(p.Start + p.Length)

	case AbsorbFree:
		var hdr [8]byte
		remaining := p.Padding.Size - p.Delta()
		if !p.paddingToEnd {
			bmff.PutUint32At(hdr[:], 0, uint32(remaining))
		}
		bmff.PutTypeAt(hdr[:], 4, p.Padding.Type)
		// The new padding header lies inside the old padding body, so it is
		// written before the header overwrites the old one.
		if err := writeFull(f, hdr[:], p.Start+p.Length); err != nil {
			return err
		}
		return writeFull(f, header, p.Start)

	case ShiftTail:
		if err := shiftTail(f, p, chunk); err != nil {
			return err
		}
		if err := writeFull(f, header, p.Start); err != nil {
			return err
		}
		if p.Delta() < 0 {
			return f.Truncate(p.FileSize + p.Delta())
		}
		return nil
	}
	return fmt.Errorf("unknown strategy %v", p.Strategy)
}

// shiftTail moves [End, FileSize) by Delta. Growing copies from the tail
// backward so no source byte is overwritten before it is read; shrinking
// copies from the head forward.
func shiftTail(f File, p Plan, chunk int) error {
	delta := p.Delta()
	buf := make([]byte, chunk)

	if delta > 0 {
		if err := f.Truncate(p.FileSize + delta); err != nil {
			return err
		}
		for pos := p.FileSize; pos > p.End; {
			n := min(int64(chunk), pos-p.End)
			pos -= n
			if err := bmff.ReadFullAt(f, buf[:n], pos); err != nil {
				return err
			}
			if err := writeFull(f, buf[:n], pos+delta); err != nil {
				return err
			}
		}
		return nil
	}

	for pos := p.End; pos < p.FileSize; {
		n := min(int64(chunk), p.FileSize-pos)
		if err := bmff.ReadFullAt(f, buf[:n], pos); err != nil {
			return err
		}
		if err := writeFull(f, buf[:n], pos+delta); err != nil {
			return err
		}
		pos += n
	}
	return nil
}

func writeFull(f File, p []byte, off int64) error {
	n, err := f.WriteAt(p, off)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("wrote %d of %d bytes at %d", n, len(p), off)
	}
	return nil
}

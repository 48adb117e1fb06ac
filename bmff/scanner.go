package bmff

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// ScanEntry represents a top-level box discovered by the Scanner.
type ScanEntry struct {
	Type       BoxType
	Size       int64 // total box size including header
	Offset     int64 // byte offset from start of file
	HeaderSize int   // header size (8 or 16 bytes)
}

// DataSize returns the size of the box data (excluding the header).
func (e ScanEntry) DataSize() int64 {
	return e.Size - int64(e.HeaderSize)
}

// End returns the offset one past the last byte of the box.
func (e ScanEntry) End() int64 {
	return e.Offset + e.Size
}

// Scanner reads top-level box headers from an io.ReaderAt without loading
// box contents into memory. Each header costs one positioned read, so the
// scanner never disturbs a shared file offset.
//
// Typical usage:
//
//	sc := bmff.NewScanner(f, size)
//	for sc.Next() {
//	    e := sc.Entry()
//	    if e.Type == bmff.TypeMoov {
//	        buf := make([]byte, e.Size)
//	        sc.ReadBox(buf)
//	    }
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	r     io.ReaderAt
	size  int64
	hdr   [16]byte // reusable header buffer
	entry ScanEntry
	err   error
	pos   int64 // offset of the next header
}

// NewScanner creates a Scanner over the first size bytes of r.
func NewScanner(r io.ReaderAt, size int64) Scanner {
	return Scanner{r: r, size: size}
}

// Next advances to the next top-level box. Returns false at end of file, on a
// malformed header or when an error occurs. Check Err() after the loop.
func (s *Scanner) Next() bool {
	if s.err != nil || s.size-s.pos < 8 {
		return false
	}
	if err := ReadFullAt(s.r, s.hdr[:8], s.pos); err != nil {
		s.err = err
		return false
	}

	boxStart := s.pos
	size := int64(be.Uint32(s.hdr[:4]))
	t := TypeAt(s.hdr[:], 4)
	headerSize := 8

	switch size {
	case 1:
		// Extended 64-bit size
		if s.size-s.pos < 16 {
			return false
		}
		if err := ReadFullAt(s.r, s.hdr[8:16], s.pos+8); err != nil {
			s.err = err
			return false
		}
		ext := be.Uint64(s.hdr[8:16])
		if ext > math.MaxInt64 {
			return false
		}
		size = int64(ext)
		headerSize = 16
	case 0:
		// Box extends to end of file
		size = s.size - boxStart
	}

	if size < int64(headerSize) {
		return false
	}

	s.entry = ScanEntry{
		Type:       t,
		Size:       size,
		Offset:     boxStart,
		HeaderSize: headerSize,
	}
	s.pos = boxStart + size
	return true
}

// Entry returns the current box entry. Only valid after Next returns true.
func (s *Scanner) Entry() ScanEntry {
	return s.entry
}

// Err returns the first read error encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

// ReadBox reads the current box's full data (including header) into buf.
// buf must be exactly Size bytes.
func (s *Scanner) ReadBox(buf []byte) error {
	if int64(len(buf)) != s.entry.Size {
		return fmt.Errorf("read %s: buffer is %d bytes, box is %d", s.entry.Type, len(buf), s.entry.Size)
	}
	return ReadFullAt(s.r, buf, s.entry.Offset)
}

// ReadBody reads the current box's data (excluding header) into buf.
// buf must be exactly DataSize() bytes.
func (s *Scanner) ReadBody(buf []byte) error {
	if int64(len(buf)) != s.entry.DataSize() {
		return fmt.Errorf("read %s: buffer is %d bytes, body is %d", s.entry.Type, len(buf), s.entry.DataSize())
	}
	return ReadFullAt(s.r, buf, s.entry.Offset+int64(s.entry.HeaderSize))
}

// Find scans the top level of r for the first box of type t.
// It returns ErrNotFound when no such box exists and ErrUnsupported when the
// box is too large to be held in memory.
func Find(r io.ReaderAt, size int64, t BoxType) (ScanEntry, error) {
	sc := NewScanner(r, size)
	for sc.Next() {
		e := sc.Entry()
		if e.Type != t {
			continue
		}
		if e.Size > MaxInMemory {
			return e, fmt.Errorf("%s is %d bytes: %w", t, e.Size, ErrUnsupported)
		}
		return e, nil
	}
	if err := sc.Err(); err != nil {
		return ScanEntry{}, err
	}
	return ScanEntry{}, fmt.Errorf("%s: %w", t, ErrNotFound)
}

// ReadFullAt reads exactly len(p) bytes at off. A short read is reported as
// ErrUnexpectedEnd.
func ReadFullAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("read %d bytes at %d, got %d: %w", len(p), off, n, ErrUnexpectedEnd)
	}
	return err
}

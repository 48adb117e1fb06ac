package bmff

// writerFrame tracks the start offset of a box for size backpatching.
type writerFrame struct {
	offset int
}

// Writer encodes ISOBMFF boxes into a byte buffer that grows as needed.
type Writer struct {
	buf   []byte
	stack [maxDepth]writerFrame
	depth int
}

// NewWriter creates a Writer that appends to buf[:0], reusing its capacity.
func NewWriter(buf []byte) Writer {
	return Writer{buf: buf[:0]}
}

// Bytes returns the written data.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Write appends raw bytes. Implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// PutUint8 appends a single byte.
func (w *Writer) PutUint8(v byte) {
	w.buf = append(w.buf, v)
}

// PutUint16 appends a big-endian uint16.
func (w *Writer) PutUint16(v uint16) {
	w.buf = be.AppendUint16(w.buf, v)
}

// PutUint32 appends a big-endian uint32.
func (w *Writer) PutUint32(v uint32) {
	w.buf = be.AppendUint32(w.buf, v)
}

// PutUint64 appends a big-endian uint64.
func (w *Writer) PutUint64(v uint64) {
	w.buf = be.AppendUint64(w.buf, v)
}

// PutZeros appends n zero bytes.
func (w *Writer) PutZeros(n int) {
	for range n {
		w.buf = append(w.buf, 0)
	}
}

// PutBytes appends raw bytes.
func (w *Writer) PutBytes(p []byte) {
	w.buf = append(w.buf, p...)
}

// PutType appends a box type code.
func (w *Writer) PutType(t BoxType) {
	w.buf = append(w.buf, t[:]...)
}

// Reset discards all written data.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.depth = 0
}

// StartBox begins a new box. Write content, then call EndBox.
func (w *Writer) StartBox(t BoxType) {
	w.stack[w.depth] = writerFrame{offset: len(w.buf)}
	w.depth++
	w.PutUint32(0) // placeholder size
	w.PutType(t)
}

// StartFullBox begins a new full box with version and flags.
func (w *Writer) StartFullBox(t BoxType, version uint8, flags uint32) {
	w.StartBox(t)
	vf := (uint32(version) << 24) | (flags & 0x00ffffff)
	w.PutUint32(vf)
}

// EndBox finishes the current box by backpatching its size.
func (w *Writer) EndBox() {
	w.depth--
	f := w.stack[w.depth]
	size := uint32(len(w.buf) - f.offset)
	be.PutUint32(w.buf[f.offset:], size)
}

// WriteFtyp writes a complete ftyp box.
func (w *Writer) WriteFtyp(brand BoxType, brandVersion uint32, compat ...BoxType) {
	w.StartBox(TypeFtyp)
	w.PutType(brand)
	w.PutUint32(brandVersion)
	for _, c := range compat {
		w.PutType(c)
	}
	w.EndBox()
}

// putMatrix writes the identity transformation matrix.
func (w *Writer) putMatrix() {
	w.PutUint32(0x00010000)
	w.PutZeros(12)
	w.PutUint32(0x00010000)
	w.PutZeros(12)
	w.PutUint32(0x40000000)
}

// WriteMvhd writes a complete mvhd box.
func (w *Writer) WriteMvhd(timescale uint32, duration uint64, nextTrackId uint32) {
	if duration > uint32Max {
		w.StartFullBox(TypeMvhd, 1, 0)
		w.PutUint64(0) // creation time
		w.PutUint64(0) // modification time
		w.PutUint32(timescale)
		w.PutUint64(duration)
	} else {
		w.StartFullBox(TypeMvhd, 0, 0)
		w.PutUint32(0) // creation time
		w.PutUint32(0) // modification time
		w.PutUint32(timescale)
		w.PutUint32(uint32(duration))
	}
	w.PutUint32(0x00010000) // rate 1.0
	w.PutUint16(0x0100)     // volume 1.0
	w.PutZeros(10)          // reserved
	w.putMatrix()
	w.PutZeros(24) // predefined
	w.PutUint32(nextTrackId)
	w.EndBox()
}

// WriteTkhd writes a complete tkhd box.
func (w *Writer) WriteTkhd(flags uint32, trackId uint32, duration uint64, width, height uint32) {
	if duration > uint32Max {
		w.StartFullBox(TypeTkhd, 1, flags)
		w.PutUint64(0)
		w.PutUint64(0)
		w.PutUint32(trackId)
		w.PutUint32(0) // reserved
		w.PutUint64(duration)
	} else {
		w.StartFullBox(TypeTkhd, 0, flags)
		w.PutUint32(0)
		w.PutUint32(0)
		w.PutUint32(trackId)
		w.PutUint32(0) // reserved
		w.PutUint32(uint32(duration))
	}
	w.PutZeros(8)  // reserved
	w.PutUint16(0) // layer
	w.PutUint16(0) // alternate group
	w.PutUint16(0) // volume
	w.PutUint16(0) // reserved
	w.putMatrix()
	w.PutUint32(width)
	w.PutUint32(height)
	w.EndBox()
}

// WriteMdhd writes a complete mdhd box.
func (w *Writer) WriteMdhd(timescale uint32, duration uint64, language uint16) {
	if duration > uint32Max {
		w.StartFullBox(TypeMdhd, 1, 0)
		w.PutUint64(0)
		w.PutUint64(0)
		w.PutUint32(timescale)
		w.PutUint64(duration)
	} else {
		w.StartFullBox(TypeMdhd, 0, 0)
		w.PutUint32(0)
		w.PutUint32(0)
		w.PutUint32(timescale)
		w.PutUint32(uint32(duration))
	}
	w.PutUint16(language)
	w.PutUint16(0) // quality
	w.EndBox()
}

// WriteHdlr writes a complete hdlr box. With an empty name the box is 33 bytes.
func (w *Writer) WriteHdlr(handlerType BoxType, name string) {
	w.StartFullBox(TypeHdlr, 0, 0)
	w.PutUint32(0) // predefined
	w.PutType(handlerType)
	w.PutZeros(12) // reserved
	w.PutBytes([]byte(name))
	w.PutUint8(0) // null terminator
	w.EndBox()
}

// WriteStco writes a 32-bit chunk offset table.
func (w *Writer) WriteStco(offsets []uint32) {
	w.StartFullBox(TypeStco, 0, 0)
	w.PutUint32(uint32(len(offsets)))
	for _, off := range offsets {
		w.PutUint32(off)
	}
	w.EndBox()
}

// WriteCo64 writes a 64-bit chunk offset table.
func (w *Writer) WriteCo64(offsets []uint64) {
	w.StartFullBox(TypeCo64, 0, 0)
	w.PutUint32(uint32(len(offsets)))
	for _, off := range offsets {
		w.PutUint64(off)
	}
	w.EndBox()
}

// WriteFree writes a free box of the given total size (at least 8).
func (w *Writer) WriteFree(size int) {
	w.StartBox(TypeFree)
	w.PutZeros(size - 8)
	w.EndBox()
}

// WriteBoxHeader writes a bare 8-byte box header with an explicit size, for
// boxes whose payload is produced elsewhere (e.g. mdat).
func (w *Writer) WriteBoxHeader(t BoxType, size uint32) {
	w.PutUint32(size)
	w.PutType(t)
}

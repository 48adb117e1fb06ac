package bmff

// maxDepth limits the reader nesting stack.
const maxDepth = 16

// readerFrame stores parent state when entering a container box.
type readerFrame struct {
	end    int // parent's iteration end boundary
	boxEnd int // position to resume after exiting this container
}

// Reader provides streaming parsing of ISOBMFF boxes held in memory.
type Reader struct {
	buf []byte
	pos int // next position to parse from
	end int // iteration end boundary

	// Current box state
	boxType    BoxType
	boxSize    uint64
	boxStart   int
	boxEnd     int
	headerSize int
	dataStart  int

	// Full box fields
	version uint8
	flags   uint32

	// Nesting stack
	stack [maxDepth]readerFrame
	depth int
}

// NewReader creates a Reader for the given buffer.
func NewReader(buf []byte) Reader {
	return Reader{
		buf: buf,
		end: len(buf),
	}
}

// NewRangeReader creates a Reader restricted to buf[start:end]. Offsets
// reported by the reader stay relative to buf.
func NewRangeReader(buf []byte, start, end int) Reader {
	if end > len(buf) {
		end = len(buf)
	}
	if start < 0 || start > end {
		start = end
	}
	return Reader{
		buf:    buf,
		pos:    start,
		end:    end,
		boxEnd: start,
	}
}

// Next advances to the next sibling box. Returns false if no more boxes or
// if the next header is malformed (declared size below the header length or
// past the end of the range).
func (r *Reader) Next() bool {
	// Skip past current box
	if r.boxEnd > r.pos {
		r.pos = r.boxEnd
	}

	if r.end-r.pos < 8 {
		return false
	}

	r.boxStart = r.pos
	size := uint64(be.Uint32(r.buf[r.pos:]))
	copy(r.boxType[:], r.buf[r.pos+4:r.pos+8])
	ptr := r.pos + 8

	// Extended size
	if size == 1 {
		if r.end-r.pos < 16 {
			return false
		}
		size = be.Uint64(r.buf[ptr:])
		ptr += 8
	}

	// Size 0 means box extends to end of data
	if size == 0 {
		size = uint64(r.end - r.pos)
	}

	if size < uint64(ptr-r.boxStart) || size > uint64(r.end-r.boxStart) {
		r.boxEnd = r.boxStart
		r.pos = r.end
		return false
	}

	r.boxSize = size
	r.boxEnd = r.boxStart + int(size)
	r.headerSize = ptr - r.boxStart

	// Parse full box header if applicable
	if IsFullBox(r.boxType) && r.boxEnd-ptr >= 4 {
		vf := be.Uint32(r.buf[ptr:])
		r.version = uint8(vf >> 24)
		r.flags = vf & 0x00ffffff
		ptr += 4
	} else {
		r.version = 0
		r.flags = 0
	}

	r.dataStart = ptr
	return true
}

// Type returns the current box's type.
func (r *Reader) Type() BoxType { return r.boxType }

// Size returns the current box's total size including header.
func (r *Reader) Size() uint64 { return r.boxSize }

// Version returns the version field for full boxes.
func (r *Reader) Version() uint8 { return r.version }

// Flags returns the flags field for full boxes.
func (r *Reader) Flags() uint32 { return r.flags }

// Offset returns the byte offset of the current box's start in the buffer.
func (r *Reader) Offset() int { return r.boxStart }

// End returns the byte offset one past the current box.
func (r *Reader) End() int { return r.boxEnd }

// DataOffset returns the byte offset where the current box's data begins,
// after the size/type header and, for full boxes, version and flags.
func (r *Reader) DataOffset() int { return r.dataStart }

// HeaderSize returns the size of the size/type header: 8, or 16 when the box
// uses a 64-bit extended size.
func (r *Reader) HeaderSize() int { return r.headerSize }

// Data returns the current box's data (after all headers).
// Note that, the returned slice points into the original buffer.
func (r *Reader) Data() []byte {
	return r.buf[r.dataStart:r.boxEnd]
}

// Payload returns everything after the size/type header, including the
// version and flags of full boxes.
func (r *Reader) Payload() []byte {
	return r.buf[r.boxStart+r.headerSize : r.boxEnd]
}

// RawBox returns the entire current box including headers.
// Note that, the returned slice points into the original buffer.
func (r *Reader) RawBox() []byte {
	return r.buf[r.boxStart:r.boxEnd]
}

// Depth returns the current nesting depth (0 at top level).
func (r *Reader) Depth() int { return r.depth }

// Enter descends into the current container box to iterate its children.
// After Enter, call Next to advance to the first child box.
// Call Exit when done to return to the parent level.
//
// For boxes like stsd or dref that have an entry count before child boxes,
// call Skip(4) after Enter to skip past the count field.
func (r *Reader) Enter() bool {
	if r.depth == maxDepth {
		return false
	}
	r.stack[r.depth] = readerFrame{
		end:    r.end,
		boxEnd: r.boxEnd,
	}
	r.depth++
	r.end = r.boxEnd
	r.pos = r.dataStart
	r.boxEnd = r.dataStart // prevent Next from skipping
	return true
}

// Exit returns to the parent container level.
// After Exit, the next call to Next will advance to the next sibling.
func (r *Reader) Exit() {
	r.depth--
	f := r.stack[r.depth]
	r.end = f.end
	r.pos = f.boxEnd
	r.boxEnd = f.boxEnd
}

// Skip advances the data position by n bytes within the current container.
// Use after Enter to skip fixed-size headers before child boxes.
func (r *Reader) Skip(n int) {
	r.pos += n
	r.boxEnd = r.pos
}

// EntryCount reads the uint32 entry count at the start of box data.
// Used for boxes like stsd, dref, stco and co64 that begin with a count field.
func (r *Reader) EntryCount() uint32 {
	data := r.Data()
	if len(data) < 4 {
		return 0
	}
	return be.Uint32(data[0:4])
}

// ReadMvhd extracts key fields from an mvhd box.
// Returns timescale, duration, and nextTrackId.
func (r *Reader) ReadMvhd() (timescale uint32, duration uint64, nextTrackId uint32) {
	data := r.Data()
	if r.Version() == 1 && len(data) >= 108 {
		timescale = be.Uint32(data[16:20])
		duration = be.Uint64(data[20:28])
		nextTrackId = be.Uint32(data[104:108])
	} else if len(data) >= 96 {
		timescale = be.Uint32(data[8:12])
		duration = uint64(be.Uint32(data[12:16]))
		nextTrackId = be.Uint32(data[92:96])
	}
	return
}

// ReadTkhd extracts the track ID and duration from a tkhd box.
func (r *Reader) ReadTkhd() (trackId uint32, duration uint64) {
	data := r.Data()
	if r.Version() == 1 && len(data) >= 32 {
		trackId = be.Uint32(data[16:20])
		duration = be.Uint64(data[24:32])
	} else if len(data) >= 20 {
		trackId = be.Uint32(data[8:12])
		duration = uint64(be.Uint32(data[16:20]))
	}
	return
}

// ReadHdlr extracts the handler type from an hdlr box.
func (r *Reader) ReadHdlr() BoxType {
	data := r.Data()
	if len(data) < 8 {
		return BoxType{}
	}
	return TypeAt(data, 4)
}

// ReadHdlrName extracts the handler name from an hdlr box.
func (r *Reader) ReadHdlrName() string {
	data := r.Data()
	if len(data) <= 20 {
		return ""
	}
	end := 20
	for end < len(data) && data[end] != 0 {
		end++
	}
	return string(data[20:end])
}

// BoxInfo locates a box inside an in-memory buffer.
type BoxInfo struct {
	Type       BoxType
	Offset     int // start of the box in the buffer
	Size       int // total size including header
	HeaderSize int // 8, or 16 for a 64-bit extended size
}

// End returns the offset one past the box.
func (b BoxInfo) End() int { return b.Offset + b.Size }

// PayloadOffset returns the offset of the first byte after the size/type header.
func (b BoxInfo) PayloadOffset() int { return b.Offset + b.HeaderSize }

// Extended reports whether the box header uses a 64-bit size field.
func (b BoxInfo) Extended() bool { return b.HeaderSize == 16 }

// FindBox returns the first box of type t among the siblings laid out in
// buf[start:end]. Scanning stops without error at a malformed header, in which
// case the box is reported as absent.
func FindBox(buf []byte, start, end int, t BoxType) (BoxInfo, bool) {
	r := NewRangeReader(buf, start, end)
	for r.Next() {
		if r.Type() == t {
			return BoxInfo{
				Type:       t,
				Offset:     r.Offset(),
				Size:       int(r.Size()),
				HeaderSize: r.HeaderSize(),
			}, true
		}
	}
	return BoxInfo{}, false
}

package bmff

// ChunkOffsetIter iterates over the entries of an stco or co64 box and can
// rewrite the entry it last returned. The data slice aliases the box, so Set
// patches the underlying buffer.
type ChunkOffsetIter struct {
	buf   []byte
	wide  bool // co64
	count uint32
	index uint32
	cur   int // byte offset of the last returned entry
}

// NewChunkOffsetIter creates an iterator from stco (wide=false) or co64
// (wide=true) box data, i.e. the bytes after version and flags.
func NewChunkOffsetIter(data []byte, wide bool) ChunkOffsetIter {
	if len(data) < 4 {
		return ChunkOffsetIter{}
	}
	return ChunkOffsetIter{
		buf:   data,
		wide:  wide,
		count: be.Uint32(data[0:4]),
		cur:   -1,
	}
}

// Count returns the declared number of entries.
func (it *ChunkOffsetIter) Count() uint32 { return it.count }

// Wide reports whether entries are 64-bit.
func (it *ChunkOffsetIter) Wide() bool { return it.wide }

// Next returns the next chunk offset. Returns (0, false) when done or when
// the table is shorter than its declared count.
func (it *ChunkOffsetIter) Next() (uint64, bool) {
	if it.index >= it.count {
		return 0, false
	}
	width := 4
	if it.wide {
		width = 8
	}
	offset := 4 + int(it.index)*width
	if offset+width > len(it.buf) {
		return 0, false
	}
	it.cur = offset
	it.index++
	if it.wide {
		return be.Uint64(it.buf[offset:]), true
	}
	return uint64(be.Uint32(it.buf[offset:])), true
}

// Set overwrites the entry last returned by Next. For stco tables the caller
// guarantees v fits in 32 bits.
func (it *ChunkOffsetIter) Set(v uint64) {
	if it.cur < 0 {
		return
	}
	if it.wide {
		be.PutUint64(it.buf[it.cur:], v)
		return
	}
	be.PutUint32(it.buf[it.cur:], uint32(v))
}

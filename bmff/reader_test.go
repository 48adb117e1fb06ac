package bmff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetsuo/mp4meta/bmff"
)

func sampleMoov() []byte {
	w := bmff.NewWriter(nil)
	w.StartBox(bmff.TypeMoov)
	w.WriteMvhd(600, 1200, 3)
	w.StartBox(bmff.TypeTrak)
	w.WriteTkhd(3, 7, 1200, 0, 0)
	w.StartBox(bmff.TypeMdia)
	w.WriteHdlr(bmff.MustFourCC("vide"), "Video")
	w.StartBox(bmff.TypeMinf)
	w.StartBox(bmff.TypeStbl)
	w.WriteStco([]uint32{100, 200})
	w.EndBox()
	w.EndBox()
	w.EndBox()
	w.EndBox()
	w.StartBox(bmff.TypeUdta)
	w.EndBox()
	w.EndBox()
	return w.Bytes()
}

func TestReaderWalk(t *testing.T) {
	moov := sampleMoov()
	r := bmff.NewReader(moov)
	require.True(t, r.Next())
	assert.Equal(t, bmff.TypeMoov, r.Type())
	assert.Equal(t, uint64(len(moov)), r.Size())
	require.True(t, r.Enter())

	var seen []string
	var walk func(r *bmff.Reader)
	walk = func(r *bmff.Reader) {
		for r.Next() {
			seen = append(seen, r.Type().String())
			switch r.Type() {
			case bmff.TypeMvhd:
				ts, dur, next := r.ReadMvhd()
				assert.Equal(t, uint32(600), ts)
				assert.Equal(t, uint64(1200), dur)
				assert.Equal(t, uint32(3), next)
				assert.Equal(t, 1, r.Depth())
			case bmff.TypeTkhd:
				id, _ := r.ReadTkhd()
				assert.Equal(t, uint32(7), id)
			case bmff.TypeHdlr:
				assert.Equal(t, "vide", r.ReadHdlr().String())
				assert.Equal(t, "Video", r.ReadHdlrName())
			case bmff.TypeStco:
				assert.Equal(t, uint32(2), r.EntryCount())
				assert.Equal(t, 5, r.Depth())
			}
			if bmff.IsContainerBox(r.Type()) && r.Enter() {
				walk(r)
				r.Exit()
			}
		}
	}
	walk(&r)
	r.Exit()
	assert.Zero(t, r.Depth())

	assert.Equal(t, []string{"mvhd", "trak", "tkhd", "mdia", "hdlr", "minf", "stbl", "stco", "udta"}, seen)
	assert.False(t, r.Next())
}

func TestFindBox(t *testing.T) {
	moov := sampleMoov()
	udta, ok := bmff.FindBox(moov, 8, len(moov), bmff.TypeUdta)
	require.True(t, ok)
	assert.Equal(t, 8, udta.Size)
	assert.Equal(t, len(moov), udta.End())
	assert.False(t, udta.Extended())

	_, ok = bmff.FindBox(moov, 8, len(moov), bmff.TypeMeta)
	assert.False(t, ok)

	_, ok = bmff.FindBox(moov, 8, len(moov)+100, bmff.TypeUdta)
	assert.True(t, ok, "end past the buffer is clamped")
}

func TestFindBoxStopsOnMalformed(t *testing.T) {
	buf := []byte{
		0, 0, 0, 3, 'b', 'a', 'd', '!',
		0, 0, 0, 8, 'u', 'd', 't', 'a',
	}
	_, ok := bmff.FindBox(buf, 0, len(buf), bmff.TypeUdta)
	assert.False(t, ok)

	buf = []byte{0, 0, 0, 99, 'u', 'd', 't', 'a'}
	_, ok = bmff.FindBox(buf, 0, len(buf), bmff.TypeUdta)
	assert.False(t, ok, "box overrunning the range")
}

func TestFindBoxSizeZero(t *testing.T) {
	buf := []byte{
		0, 0, 0, 8, 'f', 'r', 'e', 'e',
		0, 0, 0, 0, 'u', 'd', 't', 'a', 1, 2, 3,
	}
	b, ok := bmff.FindBox(buf, 0, len(buf), bmff.TypeUdta)
	require.True(t, ok)
	assert.Equal(t, 11, b.Size)
}

func TestReaderExtendedHeader(t *testing.T) {
	buf := []byte{
		0, 0, 0, 1, 'u', 'd', 't', 'a',
		0, 0, 0, 0, 0, 0, 0, 18,
		0xAB, 0xCD,
	}
	r := bmff.NewReader(buf)
	require.True(t, r.Next())
	assert.Equal(t, 16, r.HeaderSize())
	assert.Equal(t, []byte{0xAB, 0xCD}, r.Data())
	assert.Equal(t, r.Data(), r.Payload())
}

func TestChunkOffsetIter(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteCo64([]uint64{1 << 40, 5})
	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())

	it := bmff.NewChunkOffsetIter(r.Data(), true)
	assert.True(t, it.Wide())
	assert.Equal(t, uint32(2), it.Count())
	v, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(1<<40), v)
	it.Set(v + 3)
	v, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(5), v)
	_, ok = it.Next()
	assert.False(t, ok)

	it = bmff.NewChunkOffsetIter(r.Data(), true)
	v, _ = it.Next()
	assert.Equal(t, uint64(1<<40+3), v)
}

func TestChunkOffsetIterShortTable(t *testing.T) {
	data := []byte{0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 9}
	// version/flags stripped by the caller
	it := bmff.NewChunkOffsetIter(data[4:], false)
	assert.False(t, it.Wide())
	v, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(9), v)
	_, ok = it.Next()
	assert.False(t, ok)
}

package mp4meta_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/require"

	"github.com/tetsuo/mp4meta/atom"
	"github.com/tetsuo/mp4meta/bmff"
)

const (
	chunkCount = 4
	chunkSize  = 1024
)

type clip struct {
	moovLast bool              // ftyp|mdat|moov instead of ftyp|moov|free|mdat
	free     int               // size of the padding box after moov, 0 for none
	co64     bool              // use a 64-bit chunk offset table
	udta     map[string]string // pre-existing text atoms
}

// chunkPattern is the payload byte at position i of chunk k.
func chunkPattern(k, i int) byte { return byte(k*31 + i) }

func mdatBox() []byte {
	w := bmff.NewWriter(nil)
	w.WriteBoxHeader(bmff.TypeMdat, uint32(8+chunkCount*chunkSize))
	for k := range chunkCount {
		for i := range chunkSize {
			w.PutUint8(chunkPattern(k, i))
		}
	}
	return w.Bytes()
}

func (c clip) moov(mdatPayload int64) []byte {
	w := bmff.NewWriter(nil)
	w.StartBox(bmff.TypeMoov)
	w.WriteMvhd(1000, 4000, 2)
	w.StartBox(bmff.TypeTrak)
	w.WriteTkhd(3, 1, 4000, 0, 0)
	w.StartBox(bmff.TypeMdia)
	w.WriteMdhd(1000, 4000, atom.LanguageUndetermined)
	w.WriteHdlr(bmff.MustFourCC("vide"), "VideoHandler")
	w.StartBox(bmff.TypeMinf)
	w.StartBox(bmff.TypeStbl)
	if c.co64 {
		offs := make([]uint64, chunkCount)
		for k := range offs {
			offs[k] = uint64(mdatPayload) + uint64(k*chunkSize)
		}
		w.WriteCo64(offs)
	} else {
		offs := make([]uint32, chunkCount)
		for k := range offs {
			offs[k] = uint32(mdatPayload) + uint32(k*chunkSize)
		}
		w.WriteStco(offs)
	}
	w.EndBox()
	w.EndBox()
	w.EndBox()
	w.EndBox()
	if c.udta != nil {
		w.StartBox(bmff.TypeUdta)
		texts, err := atom.BuildTexts(c.udta)
		if err != nil {
			panic(err)
		}
		for _, a := range texts {
			w.PutBytes(a.Raw)
		}
		w.EndBox()
	}
	w.EndBox()
	return w.Bytes()
}

func (c clip) bytes() []byte {
	w := bmff.NewWriter(nil)
	w.WriteFtyp(bmff.MustFourCC("isom"), 0x200, bmff.MustFourCC("isom"), bmff.MustFourCC("mp41"))
	ftyp := int64(w.Len())
	mdat := mdatBox()

	if c.moovLast {
		w.PutBytes(mdat)
		w.PutBytes(c.moov(ftyp + 8))
		return w.Bytes()
	}

	moovLen := int64(len(c.moov(0)))
	mdatPayload := ftyp + moovLen + int64(c.free) + 8
	w.PutBytes(c.moov(mdatPayload))
	if c.free > 0 {
		w.WriteFree(c.free)
	}
	w.PutBytes(mdat)
	return w.Bytes()
}

func (c clip) write(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, c.bytes(), 0o644))
	return path
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// topLevel returns the first top-level box of type typ.
func topLevel(t *testing.T, data []byte, typ bmff.BoxType) bmff.ScanEntry {
	t.Helper()
	e, err := bmff.Find(bytes.NewReader(data), int64(len(data)), typ)
	require.NoError(t, err)
	return e
}

// chunkOffsets decodes the stco or co64 table of the single track with mp4ff.
func chunkOffsets(t *testing.T, data []byte) []uint64 {
	t.Helper()
	moov := topLevel(t, data, bmff.TypeMoov)
	raw := data[moov.Offset:moov.End()]
	stbl := find(t, raw, bmff.TypeTrak, bmff.TypeMdia, bmff.TypeMinf, bmff.TypeStbl)

	var out []uint64
	if b, ok := bmff.FindBox(raw, stbl.PayloadOffset(), stbl.End(), bmff.TypeStco); ok {
		box, err := mp4.DecodeBox(0, bytes.NewReader(raw[b.Offset:b.End()]))
		require.NoError(t, err)
		for _, v := range box.(*mp4.StcoBox).ChunkOffset {
			out = append(out, uint64(v))
		}
		return out
	}
	b, ok := bmff.FindBox(raw, stbl.PayloadOffset(), stbl.End(), bmff.TypeCo64)
	require.True(t, ok)
	box, err := mp4.DecodeBox(0, bytes.NewReader(raw[b.Offset:b.End()]))
	require.NoError(t, err)
	return box.(*mp4.Co64Box).ChunkOffset
}

func find(t *testing.T, buf []byte, path ...bmff.BoxType) bmff.BoxInfo {
	t.Helper()
	cur := bmff.BoxInfo{Size: len(buf), HeaderSize: 8}
	for _, typ := range path {
		next, ok := bmff.FindBox(buf, cur.PayloadOffset(), cur.End(), typ)
		require.True(t, ok, typ.String())
		cur = next
	}
	return cur
}

// requireChunksIntact checks that every chunk offset points at its payload.
func requireChunksIntact(t *testing.T, data []byte) {
	t.Helper()
	offs := chunkOffsets(t, data)
	require.Len(t, offs, chunkCount)
	for k, off := range offs {
		require.Less(t, off+chunkSize-1, uint64(len(data)))
		for i := range chunkSize {
			require.Equal(t, chunkPattern(k, i), data[off+uint64(i)], "chunk %d byte %d", k, i)
		}
	}
}

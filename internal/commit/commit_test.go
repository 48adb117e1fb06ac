package commit

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetsuo/mp4meta/bmff"
)

// memFile is an in-memory File that records how many bytes were written.
type memFile struct {
	data    []byte
	written int
	failAt  int // fail the n-th WriteAt (1-based), 0 disables
	writes  int
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, errors.New("eof")
	}
	return copy(p, m.data[off:]), nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	m.writes++
	if m.failAt == m.writes {
		return 0, errors.New("disk full")
	}
	if end := int(off) + len(p); end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	m.written += len(p)
	return copy(m.data[off:], p), nil
}

func (m *memFile) Truncate(size int64) error {
	if int(size) <= len(m.data) {
		m.data = m.data[:size]
		return nil
	}
	m.data = append(m.data, make([]byte, int(size)-len(m.data))...)
	return nil
}

func (m *memFile) Size() (int64, error) { return int64(len(m.data)), nil }

// layout builds: 8-byte ftyp | header of hdrLen bytes | optional padding | tail bytes.
func layout(hdrLen, padding int, padType bmff.BoxType, tail []byte) []byte {
	w := bmff.NewWriter(nil)
	w.WriteBoxHeader(bmff.TypeFtyp, 8)
	w.WriteBoxHeader(bmff.TypeMoov, uint32(hdrLen))
	w.PutZeros(hdrLen - 8)
	if padding > 0 {
		w.WriteBoxHeader(padType, uint32(padding))
		w.PutZeros(padding - 8)
	}
	w.PutBytes(tail)
	return w.Bytes()
}

func header(n int, fill byte) []byte {
	h := bytes.Repeat([]byte{fill}, n)
	bmff.PutUint32At(h, 0, uint32(n))
	bmff.PutTypeAt(h, 4, bmff.TypeMoov)
	return h
}

func commitVia(t *testing.T, f File, start, end int64, hdr []byte, chunk int) Plan {
	t.Helper()
	p, err := Choose(f, start, end, int64(len(hdr)))
	require.NoError(t, err)
	require.NoError(t, Apply(f, p, hdr, chunk))
	return p
}

func TestOverwrite(t *testing.T) {
	tail := []byte("mdat-payload")
	f := &memFile{data: layout(32, 0, bmff.TypeFree, tail)}
	size := len(f.data)

	p := commitVia(t, f, 8, 40, header(32, 0xAA), 0)
	assert.Equal(t, Overwrite, p.Strategy)
	assert.Len(t, f.data, size)
	assert.Equal(t, 32, f.written)
	assert.Equal(t, tail, f.data[40:])
}

func TestTruncateWhenLast(t *testing.T) {
	f := &memFile{data: layout(32, 0, bmff.TypeFree, nil)}

	p := commitVia(t, f, 8, 40, header(48, 0xBB), 0)
	assert.Equal(t, Truncate, p.Strategy)
	assert.Len(t, f.data, 8+48)

	p = commitVia(t, f, 8, 56, header(16, 0xCC), 0)
	assert.Equal(t, Truncate, p.Strategy)
	assert.Len(t, f.data, 8+16)
}

func TestAbsorbFree(t *testing.T) {
	tail := []byte("samples")
	f := &memFile{data: layout(32, 40, bmff.TypeFree, tail)}
	size := len(f.data)

	p := commitVia(t, f, 8, 40, header(56, 0xDD), 0)
	require.Equal(t, AbsorbFree, p.Strategy)
	assert.Len(t, f.data, size, "file length unchanged")
	assert.Equal(t, 56+8, f.written, "no tail copy")

	padAt := 8 + 56
	assert.Equal(t, uint32(40-24), bmff.Uint32At(f.data, padAt))
	assert.Equal(t, bmff.TypeFree, bmff.TypeAt(f.data, padAt+4))
	assert.Equal(t, tail, f.data[len(f.data)-len(tail):])
}

func TestAbsorbKeepsSkipType(t *testing.T) {
	f := &memFile{data: layout(32, 16, bmff.TypeSkip, []byte{1})}
	p := commitVia(t, f, 8, 40, header(40, 1), 0)
	require.Equal(t, AbsorbFree, p.Strategy)
	assert.Equal(t, uint32(8), bmff.Uint32At(f.data, 48))
	assert.Equal(t, bmff.TypeSkip, bmff.TypeAt(f.data, 52))
}

func TestPaddingTooSmallShifts(t *testing.T) {
	tail := []byte("0123456789")
	f := &memFile{data: layout(32, 16, bmff.TypeFree, tail)}
	size := len(f.data)

	// delta 9 needs at least 17 bytes of padding
	p := commitVia(t, f, 8, 40, header(41, 0xEE), 4)
	require.Equal(t, ShiftTail, p.Strategy)
	assert.Len(t, f.data, size+9)
	assert.Equal(t, tail, f.data[len(f.data)-len(tail):])
	assert.Equal(t, bmff.TypeFree, bmff.TypeAt(f.data, 8+41+4))
}

func TestShiftTailGrowAndShrink(t *testing.T) {
	tail := make([]byte, 1000)
	for i := range tail {
		tail[i] = byte(i * 7)
	}
	f := &memFile{data: layout(64, 0, bmff.TypeFree, tail)}
	size := len(f.data)

	p := commitVia(t, f, 8, 72, header(64+333, 0x11), 100)
	require.Equal(t, ShiftTail, p.Strategy)
	assert.Equal(t, int64(333), p.Delta())
	assert.Len(t, f.data, size+333)
	assert.Equal(t, tail, f.data[8+64+333:])
	assert.Equal(t, header(64+333, 0x11), f.data[8:8+64+333])

	p = commitVia(t, f, 8, 8+64+333, header(20, 0x22), 64)
	require.Equal(t, ShiftTail, p.Strategy)
	assert.Len(t, f.data, 8+20+len(tail))
	assert.Equal(t, tail, f.data[28:])
}

func TestChooseRejectsRangeOutsideFile(t *testing.T) {
	f := &memFile{data: layout(32, 0, bmff.TypeFree, nil)}
	_, err := Choose(f, 8, 100, 10)
	assert.ErrorIs(t, err, bmff.ErrUnexpectedEnd)
}

func TestApplyLengthMismatch(t *testing.T) {
	f := &memFile{data: layout(32, 0, bmff.TypeFree, nil)}
	p, err := Choose(f, 8, 40, 32)
	require.NoError(t, err)
	assert.Error(t, Apply(f, p, header(16, 0), 0))
}

func TestApplyPropagatesWriteFailure(t *testing.T) {
	f := &memFile{data: layout(32, 0, bmff.TypeFree, []byte("tail")), failAt: 1}
	p, err := Choose(f, 8, 40, 48)
	require.NoError(t, err)
	assert.EqualError(t, Apply(f, p, header(48, 0), 0), "disk full")
}

func TestAsyncMatchesBlocking(t *testing.T) {
	tail := bytes.Repeat([]byte("xyz"), 500)
	cases := []struct {
		name    string
		padding int
		newLen  int
	}{
		{"overwrite", 0, 64},
		{"absorb", 100, 90},
		{"shift-grow", 0, 200},
		{"shift-shrink", 0, 24},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			blocking := &memFile{data: layout(64, tc.padding, bmff.TypeFree, tail)}
			commitVia(t, blocking, 8, 72, header(tc.newLen, 0x5A), 128)

			base := &memFile{data: layout(64, tc.padding, bmff.TypeFree, tail)}
			async := Suspend(base)
			commitVia(t, async, 8, 72, header(tc.newLen, 0x5A), 128)
			require.NoError(t, async.Close())

			assert.Equal(t, blocking.data, base.data)
		})
	}
}

func TestAsyncClosed(t *testing.T) {
	a := Suspend(&memFile{})
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_, err := a.Size()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = a.WriteAt([]byte{1}, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOSFileCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	tail := []byte("media data here")
	require.NoError(t, os.WriteFile(path, layout(32, 0, bmff.TypeFree, tail), 0o644))

	f, err := Open(path, true)
	require.NoError(t, err)
	p := commitVia(t, f, 8, 40, header(50, 0x33), 0)
	assert.Equal(t, ShiftTail, p.Strategy)
	require.NoError(t, f.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 8+50+len(tail))
	assert.Equal(t, tail, got[58:])
}

func TestOpenExclusiveLock(t *testing.T) {
	if !lockSupported {
		t.Skip("no file locking on " + runtime.GOOS)
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, layout(16, 0, bmff.TypeFree, nil), 0o644))

	f, err := Open(path, true)
	require.NoError(t, err)
	defer f.Close()

	_, err = Open(path, true)
	assert.ErrorIs(t, err, ErrLocked)
	_, err = Open(path, false)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.mp4"), false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "absorb-free", AbsorbFree.String())
	assert.Equal(t, "Strategy(9)", Strategy(9).String())
}

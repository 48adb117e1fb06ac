package bmff_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetsuo/mp4meta/bmff"
)

func sampleFile() []byte {
	w := bmff.NewWriter(nil)
	w.WriteFtyp(bmff.MustFourCC("isom"), 0x200, bmff.MustFourCC("mp41"))
	w.StartBox(bmff.TypeMoov)
	w.WriteMvhd(1000, 5000, 2)
	w.EndBox()
	w.WriteFree(16)
	w.WriteBoxHeader(bmff.TypeMdat, 12)
	w.PutBytes([]byte{1, 2, 3, 4})
	return w.Bytes()
}

func TestScannerTopLevel(t *testing.T) {
	data := sampleFile()
	sc := bmff.NewScanner(bytes.NewReader(data), int64(len(data)))

	var types []string
	var total int64
	for sc.Next() {
		e := sc.Entry()
		types = append(types, e.Type.String())
		assert.Equal(t, total, e.Offset)
		assert.Equal(t, 8, e.HeaderSize)
		total += e.Size
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"ftyp", "moov", "free", "mdat"}, types)
	assert.Equal(t, int64(len(data)), total)
}

func TestScannerSizeZeroExtendsToEnd(t *testing.T) {
	data := []byte{
		0, 0, 0, 8, 'f', 't', 'y', 'p',
		0, 0, 0, 0, 'm', 'd', 'a', 't', 9, 9, 9, 9, 9,
	}
	e, err := bmff.Find(bytes.NewReader(data), int64(len(data)), bmff.TypeMdat)
	require.NoError(t, err)
	assert.Equal(t, int64(8), e.Offset)
	assert.Equal(t, int64(13), e.Size)
	assert.Equal(t, int64(len(data)), e.End())
}

func TestScannerExtendedSize(t *testing.T) {
	data := []byte{
		0, 0, 0, 1, 'm', 'd', 'a', 't',
		0, 0, 0, 0, 0, 0, 0, 20,
		1, 2, 3, 4,
		0, 0, 0, 8, 'm', 'o', 'o', 'v',
	}
	sc := bmff.NewScanner(bytes.NewReader(data), int64(len(data)))
	require.True(t, sc.Next())
	assert.Equal(t, 16, sc.Entry().HeaderSize)
	assert.Equal(t, int64(4), sc.Entry().DataSize())

	body := make([]byte, 4)
	require.NoError(t, sc.ReadBody(body))
	assert.Equal(t, []byte{1, 2, 3, 4}, body)

	require.True(t, sc.Next())
	assert.Equal(t, bmff.TypeMoov, sc.Entry().Type)
	assert.Equal(t, int64(20), sc.Entry().Offset)
	assert.False(t, sc.Next())
}

func TestScannerStopsOnMalformed(t *testing.T) {
	data := []byte{
		0, 0, 0, 8, 'f', 't', 'y', 'p',
		0, 0, 0, 4, 'j', 'u', 'n', 'k',
		0, 0, 0, 8, 'm', 'o', 'o', 'v',
	}
	_, err := bmff.Find(bytes.NewReader(data), int64(len(data)), bmff.TypeMoov)
	assert.ErrorIs(t, err, bmff.ErrNotFound)
}

func TestFindNotFound(t *testing.T) {
	data := []byte{
		0, 0, 0, 8, 'f', 't', 'y', 'p',
		0, 0, 0, 8, 'm', 'd', 'a', 't',
	}
	_, err := bmff.Find(bytes.NewReader(data), int64(len(data)), bmff.TypeMoov)
	assert.ErrorIs(t, err, bmff.ErrNotFound)
}

func TestFindTooLarge(t *testing.T) {
	data := []byte{
		0, 0, 0, 1, 'm', 'o', 'o', 'v',
		0, 0, 0, 1, 0, 0, 0, 0,
	}
	_, err := bmff.Find(bytes.NewReader(data), int64(len(data)), bmff.TypeMoov)
	assert.ErrorIs(t, err, bmff.ErrUnsupported)
}

func TestReadBoxTruncated(t *testing.T) {
	data := []byte{0, 0, 0, 64, 'm', 'o', 'o', 'v', 0, 0}
	sc := bmff.NewScanner(bytes.NewReader(data), int64(len(data)))
	require.True(t, sc.Next())
	buf := make([]byte, 64)
	assert.ErrorIs(t, sc.ReadBox(buf), bmff.ErrUnexpectedEnd)
}

package atom

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/tetsuo/mp4meta/bmff"
)

// LanguageUndetermined is the packed ISO-639-2 code "und" stored in text atoms.
const LanguageUndetermined = 0x15C7

// textHeaderSize covers size, type, string length and language.
const textHeaderSize = 12

// ErrValueTooLong is returned for a value that does not fit the 16-bit
// length field of a text atom.
var ErrValueTooLong = errors.New("atom value too long")

// Atom is one ready-to-splice box.
type Atom struct {
	Type bmff.BoxType
	Raw  []byte
}

// Tag returns the atom's type as a text tag such as "©nam".
func (a Atom) Tag() string { return a.Type.String() }

// Text builds a QuickTime text atom:
//
//	[size:4][tag:4][length:2][language:2][utf-8 value]
func Text(tag, value string) (Atom, error) {
	t, err := bmff.FourCC(tag)
	if err != nil {
		return Atom{}, err
	}
	if len(value) > math.MaxUint16 {
		return Atom{}, fmt.Errorf("atom %s: %d bytes, limit %d: %w", tag, len(value), math.MaxUint16, ErrValueTooLong)
	}
	w := bmff.NewWriter(make([]byte, 0, textHeaderSize+len(value)))
	w.StartBox(t)
	w.PutUint16(uint16(len(value)))
	w.PutUint16(LanguageUndetermined)
	w.PutBytes([]byte(value))
	w.EndBox()
	return Atom{Type: t, Raw: w.Bytes()}, nil
}

// BuildTexts converts an atom set into text atoms sorted by tag. Entries with
// an empty value or a tag that is not four Latin-1 characters are dropped.
// Any other entry that cannot be built fails the whole set.
func BuildTexts(atoms map[string]string) ([]Atom, error) {
	tags := make([]string, 0, len(atoms))
	for tag, v := range atoms {
		if v != "" {
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)

	out := make([]Atom, 0, len(tags))
	for _, tag := range tags {
		if _, err := bmff.FourCC(tag); err != nil {
			continue
		}
		a, err := Text(tag, atoms[tag])
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseTexts collects the text atoms among the children laid out in
// buf[start:end], normally the payload of a udta box. Only boxes whose type
// begins with 0xA9 and that carry more than the 12-byte header are read; the
// value length is clamped to the box.
func ParseTexts(buf []byte, start, end int) map[string]string {
	out := make(map[string]string)
	r := bmff.NewRangeReader(buf, start, end)
	for r.Next() {
		if !r.Type().IsTextAtom() || r.HeaderSize() != 8 || r.Size() <= textHeaderSize {
			continue
		}
		p := r.Payload()
		n := min(int(bmff.Uint16At(p, 0)), len(p)-4)
		if n <= 0 {
			continue
		}
		out[r.Type().String()] = string(p[4 : 4+n])
	}
	return out
}

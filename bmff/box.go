// Package bmff implements the box-level primitives of the ISO Base Media File Format
// (ISOBMFF, MP4/MOV) needed to locate and rewrite metadata: box type codes, big-endian
// field access, a top-level file scanner, an in-memory box reader and a box writer.
package bmff

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// BoxType is a 4-byte box type identifier.
type BoxType [4]byte

// String decodes the type as Latin-1, so QuickTime text atom types such as
// 0xA9 'n' 'a' 'm' render as "©nam".
func (t BoxType) String() string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(t[:])
	if err != nil {
		return string(t[:])
	}
	return string(s)
}

// Uint32 returns the type as a big-endian integer.
func (t BoxType) Uint32() uint32 {
	return be.Uint32(t[:])
}

// IsTextAtom reports whether t follows the QuickTime copyright-sign convention
// (first byte 0xA9) used by udta text atoms.
func (t BoxType) IsTextAtom() bool {
	return t[0] == 0xA9
}

// TypeFromUint32 converts a big-endian integer back into a BoxType.
func TypeFromUint32(v uint32) BoxType {
	var t BoxType
	be.PutUint32(t[:], v)
	return t
}

// FourCC encodes a 4-character code. Characters are mapped through Latin-1, so
// "©xyz" becomes 0xA9 'x' 'y' 'z'. Codes that are not exactly four Latin-1
// characters are rejected.
func FourCC(s string) (BoxType, error) {
	var t BoxType
	if utf8.RuneCountInString(s) != 4 {
		return t, fmt.Errorf("fourcc %q: want 4 characters: %w", s, ErrInvalidType)
	}
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil || len(b) != 4 {
		return t, fmt.Errorf("fourcc %q: not latin-1: %w", s, ErrInvalidType)
	}
	copy(t[:], b)
	return t, nil
}

// MustFourCC is like FourCC but panics on invalid input. Intended for package-level
// constants.
func MustFourCC(s string) BoxType {
	t, err := FourCC(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Known box types.
var (
	TypeFtyp = BoxType{'f', 't', 'y', 'p'}
	TypeMoov = BoxType{'m', 'o', 'o', 'v'}
	TypeMvhd = BoxType{'m', 'v', 'h', 'd'}
	TypeTrak = BoxType{'t', 'r', 'a', 'k'}
	TypeTkhd = BoxType{'t', 'k', 'h', 'd'}
	TypeEdts = BoxType{'e', 'd', 't', 's'}
	TypeMdia = BoxType{'m', 'd', 'i', 'a'}
	TypeMdhd = BoxType{'m', 'd', 'h', 'd'}
	TypeHdlr = BoxType{'h', 'd', 'l', 'r'}
	TypeMinf = BoxType{'m', 'i', 'n', 'f'}
	TypeVmhd = BoxType{'v', 'm', 'h', 'd'}
	TypeSmhd = BoxType{'s', 'm', 'h', 'd'}
	TypeDinf = BoxType{'d', 'i', 'n', 'f'}
	TypeDref = BoxType{'d', 'r', 'e', 'f'}
	TypeStbl = BoxType{'s', 't', 'b', 'l'}
	TypeStsd = BoxType{'s', 't', 's', 'd'}
	TypeStts = BoxType{'s', 't', 't', 's'}
	TypeStsc = BoxType{'s', 't', 's', 'c'}
	TypeStsz = BoxType{'s', 't', 's', 'z'}
	TypeStco = BoxType{'s', 't', 'c', 'o'}
	TypeCo64 = BoxType{'c', 'o', '6', '4'}
	TypeStss = BoxType{'s', 't', 's', 's'}
	// Metadata boxes
	TypeMeta = BoxType{'m', 'e', 't', 'a'}
	TypeUdta = BoxType{'u', 'd', 't', 'a'}
	TypeKeys = BoxType{'k', 'e', 'y', 's'}
	TypeIlst = BoxType{'i', 'l', 's', 't'}
	TypeData = BoxType{'d', 'a', 't', 'a'}
	// Handler and key namespace for Apple rich metadata
	TypeMdta = BoxType{'m', 'd', 't', 'a'}
	// Data boxes
	TypeMdat = BoxType{'m', 'd', 'a', 't'}
	TypeFree = BoxType{'f', 'r', 'e', 'e'}
	TypeSkip = BoxType{'s', 'k', 'i', 'p'}
)

// IsFullBox returns true if the box type has version and flags fields.
func IsFullBox(t BoxType) bool {
	switch t {
	case TypeMvhd, TypeTkhd, TypeMdhd, TypeHdlr,
		TypeVmhd, TypeSmhd, TypeDref, TypeStsd,
		TypeStts, TypeStsc, TypeStsz, TypeStco,
		TypeCo64, TypeStss, TypeMeta, TypeKeys:
		return true
	}
	return false
}

// IsContainerBox returns true if the box type is a container that holds child boxes.
func IsContainerBox(t BoxType) bool {
	switch t {
	case TypeMoov, TypeTrak, TypeEdts, TypeMdia,
		TypeMinf, TypeDinf, TypeStbl, TypeUdta,
		TypeMeta, TypeIlst:
		return true
	}
	return false
}

// IsPadding reports whether t is a free-space box that may be absorbed or resized.
func IsPadding(t BoxType) bool {
	return t == TypeFree || t == TypeSkip
}

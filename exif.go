package mp4meta

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// MetadataFromEXIF builds a Metadata record from the EXIF block of a JPEG or
// TIFF stream, so a still's capture details can be copied onto a clip.
func MetadataFromEXIF(r io.Reader) (*Metadata, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode exif: %w", err)
	}

	m := &Metadata{
		Vendor:          exifString(x, exif.Make),
		Model:           exifString(x, exif.Model),
		Software:        exifString(x, exif.Software),
		CameraOwnerName: exifString(x, exif.Artist),
	}
	if tag, err := x.Get(exif.UserComment); err == nil {
		m.UserComment = userComment(tag)
	}
	if t, err := x.DateTime(); err == nil {
		m.DateTimeOriginal = t.UTC()
	}
	if lat, lon, err := x.LatLong(); err == nil {
		ApplyGPSCoordinates(m, lat, lon)
	}
	return m, nil
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// userComment decodes an EXIF UserComment: an 8-byte character code followed
// by the text. Only the ASCII and undefined codes are decoded.
func userComment(tag *tiff.Tag) string {
	v := tag.Val
	if len(v) <= 8 {
		return ""
	}
	code := string(bytes.TrimRight(v[:8], "\x00"))
	if code != "ASCII" && code != "" {
		return ""
	}
	return strings.TrimSpace(string(bytes.TrimRight(v[8:], "\x00 ")))
}

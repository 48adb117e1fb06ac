package mp4meta

import (
	"math"
	"strings"
	"time"
)

// DateLayout is how capture dates are stored in the date atom.
const DateLayout = "2006-01-02T15:04:05Z"

// Metadata is a structured capture record, shaped after the EXIF fields a
// camera pipeline produces.
type Metadata struct {
	Software         string
	Vendor           string // camera make
	Model            string
	DateTimeOriginal time.Time
	UserComment      string
	CameraOwnerName  string

	// GPS coordinates. EXIF style magnitudes with a reference letter
	// (N/S, E/W) and signed values without one are both accepted.
	GPSLatitude     *float64
	GPSLongitude    *float64
	GPSLatitudeRef  string
	GPSLongitudeRef string
}

// MetadataToAtoms maps m onto text atom tags. Empty fields are omitted, and
// a location is only produced when both coordinates are set and not both zero.
func MetadataToAtoms(m *Metadata) map[string]string {
	if m == nil {
		return nil
	}
	atoms := make(map[string]string)
	set := func(tag, v string) {
		if v != "" {
			atoms[tag] = v
		}
	}
	set(TagSoftware, m.Software)
	set(TagMake, m.Vendor)
	set(TagModel, m.Model)
	if !m.DateTimeOriginal.IsZero() {
		atoms[TagDate] = m.DateTimeOriginal.UTC().Format(DateLayout)
	}
	set(TagComment, m.UserComment)
	set(TagArtist, m.CameraOwnerName)

	if m.GPSLatitude != nil && m.GPSLongitude != nil && (*m.GPSLatitude != 0 || *m.GPSLongitude != 0) {
		lat := signed(*m.GPSLatitude, m.GPSLatitudeRef, "S")
		lon := signed(*m.GPSLongitude, m.GPSLongitudeRef, "W")
		atoms[TagLocation] = FormatISO6709(lat, lon)
	}
	return atoms
}

// signed applies a GPS reference letter. The negative reference forces a
// negative value; any other reference keeps the value's own sign.
func signed(v float64, ref, negative string) float64 {
	if strings.EqualFold(strings.TrimSpace(ref), negative) {
		return -math.Abs(v)
	}
	return v
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02 15:04:05",
	"2006-01-02",
}

// AtomsToMetadata is the inverse of MetadataToAtoms. Unparseable dates and
// locations are left unset.
func AtomsToMetadata(atoms map[string]string) *Metadata {
	m := &Metadata{
		Software:        atoms[TagSoftware],
		Vendor:          atoms[TagMake],
		Model:           atoms[TagModel],
		UserComment:     atoms[TagComment],
		CameraOwnerName: atoms[TagArtist],
	}
	if s := strings.TrimSpace(atoms[TagDate]); s != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				m.DateTimeOriginal = t.UTC()
				break
			}
		}
	}
	if lat, lon, ok := ParseISO6709(atoms[TagLocation]); ok {
		ApplyGPSCoordinates(m, lat, lon)
	}
	return m
}

// ApplyGPSCoordinates stores signed coordinates on m as magnitudes with N/S
// and E/W references.
func ApplyGPSCoordinates(m *Metadata, lat, lon float64) {
	latAbs, lonAbs := math.Abs(lat), math.Abs(lon)
	m.GPSLatitude, m.GPSLongitude = &latAbs, &lonAbs
	m.GPSLatitudeRef, m.GPSLongitudeRef = "N", "E"
	if lat < 0 {
		m.GPSLatitudeRef = "S"
	}
	if lon < 0 {
		m.GPSLongitudeRef = "W"
	}
}

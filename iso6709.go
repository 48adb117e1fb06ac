package mp4meta

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errZeroLocation = errors.New("location 0,0 is treated as no fix")
	errBadLocation  = errors.New("location out of range")
)

// FormatISO6709 renders a coordinate pair as ±DD.DDDD±DDD.DDDD/.
func FormatISO6709(lat, lon float64) string {
	return fmt.Sprintf("%+08.4f%+09.4f/", lat, lon)
}

// ParseISO6709 parses the latitude and longitude of an ISO 6709 string such
// as "+37.3349-122.0090/" or "+37.3349-122.0090+012.000/". Any altitude
// component is ignored. Malformed strings, including a missing leading sign
// and coordinates out of range, return ok=false.
func ParseISO6709(s string) (lat, lon float64, ok bool) {
	s = strings.TrimRight(s, "/")
	if len(s) < 3 || !isSign(s[0]) {
		return 0, 0, false
	}
	lonStart := strings.IndexAny(s[1:], "+-") + 1
	if lonStart <= 0 {
		return 0, 0, false
	}
	latStr, lonStr := s[:lonStart], s[lonStart:]
	if alt := strings.IndexAny(lonStr[1:], "+-"); alt >= 0 {
		lonStr = lonStr[:alt+1]
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

func isSign(c byte) bool { return c == '+' || c == '-' }

// locationAtoms builds the single-atom set written by InjectLocation.
func locationAtoms(lat, lon float64) (map[string]string, error) {
	if lat == 0 && lon == 0 {
		return nil, errZeroLocation
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return nil, fmt.Errorf("%v,%v: %w", lat, lon, errBadLocation)
	}
	return map[string]string{TagLocation: FormatISO6709(lat, lon)}, nil
}

package bmff

import "errors"

var (
	// ErrNotFound is returned when a requested box does not exist.
	ErrNotFound = errors.New("box not found")
	// ErrUnexpectedEnd is returned when fewer bytes are available than a box declares.
	ErrUnexpectedEnd = errors.New("unexpected end of data")
	// ErrUnsupported is returned for boxes that cannot be mutated in memory, such as
	// header regions above 2 GiB or containers using a 64-bit size field.
	ErrUnsupported = errors.New("unsupported box layout")
	// ErrMalformed is returned when a box header is inconsistent with its surroundings.
	ErrMalformed = errors.New("malformed box")
	// ErrInvalidType is returned for type codes that are not four Latin-1 characters.
	ErrInvalidType = errors.New("invalid box type")
)

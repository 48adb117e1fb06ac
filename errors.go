package mp4meta

import (
	"errors"
	"fmt"

	"github.com/tetsuo/mp4meta/atom"
	"github.com/tetsuo/mp4meta/bmff"
)

// Kind classifies a failed operation.
type Kind int

const (
	// KindIO is an open, read, write or truncate failure of the file itself.
	KindIO Kind = iota
	// KindNotFound means the file has no moov box.
	KindNotFound
	// KindUnexpectedEnd means the file holds fewer bytes than a box declares.
	KindUnexpectedEnd
	// KindUnsupported means the header cannot be mutated in memory.
	KindUnsupported
	// KindInvalid means the caller's input or the header structure is invalid.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindNotFound:
		return "not_found"
	case KindUnexpectedEnd:
		return "unexpected_end"
	case KindUnsupported:
		return "unsupported"
	case KindInvalid:
		return "invalid"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// errNothingToWrite is returned when an atom set has no materializable entry.
var errNothingToWrite = errors.New("no non-empty atom with a four-character tag")

// Error is returned by the error-reporting methods of Injector.
type Error struct {
	Op   string // operation, e.g. "inject" or "read"
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("mp4meta: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mp4meta: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func newError(op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, bmff.ErrNotFound):
		return KindNotFound
	case errors.Is(err, bmff.ErrUnexpectedEnd):
		return KindUnexpectedEnd
	case errors.Is(err, bmff.ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, bmff.ErrMalformed),
		errors.Is(err, bmff.ErrInvalidType),
		errors.Is(err, atom.ErrValueTooLong),
		errors.Is(err, errNothingToWrite),
		errors.Is(err, errEmptyPath),
		errors.Is(err, errZeroLocation),
		errors.Is(err, errBadLocation):
		return KindInvalid
	}
	return KindIO
}

// Package mp4meta embeds and extracts textual metadata in ISO-BMFF (MP4/MOV)
// files in place. Only the moov box is read into memory; the media data is
// moved only when the rewritten header cannot fit where the old one was.
//
// Every value is written twice: as a QuickTime text atom under moov/udta,
// read by legacy players, and as an Apple mdta entry under moov/meta, read by
// photo galleries.
//
//	ok := mp4meta.InjectAtoms("clip.mp4", map[string]string{
//	    mp4meta.TagArtist: "Ann",
//	    mp4meta.TagModel:  "Pixel 8",
//	})
package mp4meta

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tetsuo/mp4meta/atom"
	"github.com/tetsuo/mp4meta/bmff"
	"github.com/tetsuo/mp4meta/internal/commit"
	"github.com/tetsuo/mp4meta/internal/splice"
)

// Text atom tags understood by the metadata mapping.
const (
	TagLocation    = atom.TagLocation
	TagArtist      = atom.TagArtist
	TagTitle       = atom.TagTitle
	TagSoftware    = atom.TagSoftware
	TagComment     = atom.TagComment
	TagDate        = atom.TagDate
	TagDescription = atom.TagDescription
	TagMake        = atom.TagMake
	TagModel       = atom.TagModel
)

var errEmptyPath = errors.New("empty path")

// Injector runs read and inject operations. The zero value is ready to use
// and logs nothing.
type Injector struct {
	// Logger receives one error-level line per failed operation.
	Logger zerolog.Logger
	// ChunkSize is the copy unit when the media data has to be shifted.
	// Zero selects 64 KiB.
	ChunkSize int
}

// Default is the Injector behind the package-level functions.
var Default = &Injector{Logger: zerolog.Nop()}

// SetLogger replaces the logger of Default. Call it before any operation runs.
func SetLogger(l zerolog.Logger) {
	Default.Logger = l
}

// fail logs err at the orchestration boundary and returns it as an *Error.
func (in *Injector) fail(op, path string, err error) error {
	e := newError(op, path, err)
	in.Logger.Error().
		Err(e.Err).
		Str("op", op).
		Str("path", path).
		Str("kind", e.Kind.String()).
		Msg("mp4meta: " + op + " failed")
	return e
}

// opener abstracts how a file handle is produced, so the blocking and the
// suspending modes share every step after it.
type opener func(path string, writable bool) (commit.File, func() error, error)

func openBlocking(path string, writable bool) (commit.File, func() error, error) {
	f, err := commit.Open(path, writable)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func openSuspending(path string, writable bool) (commit.File, func() error, error) {
	f, err := commit.Open(path, writable)
	if err != nil {
		return nil, nil, err
	}
	a := commit.Suspend(f)
	return a, func() error {
		a.Close()
		return f.Close()
	}, nil
}

// readHeader locates moov and loads it.
func readHeader(f commit.File) (bmff.ScanEntry, []byte, error) {
	size, err := f.Size()
	if err != nil {
		return bmff.ScanEntry{}, nil, err
	}
	e, err := bmff.Find(f, size, bmff.TypeMoov)
	if err != nil {
		return bmff.ScanEntry{}, nil, err
	}
	buf := make([]byte, e.Size)
	if err := bmff.ReadFullAt(f, buf, e.Offset); err != nil {
		return bmff.ScanEntry{}, nil, err
	}
	return e, buf, nil
}

// rewriteHeader applies every text atom, then the Apple meta box, to moov.
func rewriteHeader(moov []byte, atoms map[string]string) ([]byte, error) {
	texts, err := atom.BuildTexts(atoms)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, errNothingToWrite
	}
	for _, a := range texts {
		if moov, err = splice.InjectAtom(moov, a.Type, a.Raw); err != nil {
			return nil, fmt.Errorf("inject %s: %w", a.Tag(), err)
		}
	}
	if meta := atom.BuildMeta(atoms); meta != nil {
		if moov, err = splice.InjectMeta(moov, meta); err != nil {
			return nil, fmt.Errorf("inject meta: %w", err)
		}
	}
	return moov, nil
}

func (in *Injector) inject(open opener, path string, atoms map[string]string) (err error) {
	if path == "" {
		return errEmptyPath
	}
	texts, err := atom.BuildTexts(atoms)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return errNothingToWrite
	}

	f, closeFile, err := open(path, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFile(); err == nil {
			err = cerr
		}
	}()

	e, moov, err := readHeader(f)
	if err != nil {
		return err
	}
	moov, err = rewriteHeader(moov, atoms)
	if err != nil {
		return err
	}

	plan, err := commit.Choose(f, e.Offset, e.End(), int64(len(moov)))
	if err != nil {
		return err
	}
	if plan.Strategy == commit.ShiftTail {
		if _, err := splice.AdjustChunkOffsets(moov, plan.Delta(), uint64(e.End())); err != nil {
			return err
		}
	}
	return commit.Apply(f, plan, moov, in.ChunkSize)
}

func (in *Injector) readAtoms(open opener, path string) (map[string]string, error) {
	e, moov, err := in.loadHeader(open, path)
	if err != nil {
		return nil, err
	}
	udta, ok := bmff.FindBox(moov, e.HeaderSize, len(moov), bmff.TypeUdta)
	if !ok {
		return map[string]string{}, nil
	}
	return atom.ParseTexts(moov, udta.PayloadOffset(), udta.End()), nil
}

func (in *Injector) readApple(open opener, path string) (map[string]string, error) {
	e, moov, err := in.loadHeader(open, path)
	if err != nil {
		return nil, err
	}
	meta, ok := bmff.FindBox(moov, e.HeaderSize, len(moov), bmff.TypeMeta)
	if !ok {
		return nil, fmt.Errorf("moov meta: %w", bmff.ErrNotFound)
	}
	return atom.ParseMeta(moov[meta.Offset:meta.End()])
}

func (in *Injector) loadHeader(open opener, path string) (e bmff.ScanEntry, moov []byte, err error) {
	if path == "" {
		return e, nil, errEmptyPath
	}
	f, closeFile, err := open(path, false)
	if err != nil {
		return e, nil, err
	}
	defer func() {
		if cerr := closeFile(); err == nil {
			err = cerr
		}
	}()
	return readHeader(f)
}

func (in *Injector) readLocation(open opener, path string) (float64, float64, error) {
	atoms, err := in.readAtoms(open, path)
	if err != nil {
		return 0, 0, err
	}
	s, ok := atoms[TagLocation]
	if lat, lon, valid := ParseISO6709(s); ok && valid {
		return lat, lon, nil
	}

	// A missing or unparseable udta location falls back to the mdta key.
	apple, err := in.readApple(open, path)
	if key, found := apple[atom.KeyLocation]; err == nil && found {
		if lat, lon, valid := ParseISO6709(key); valid {
			return lat, lon, nil
		}
		s, ok = key, true
	}
	if ok {
		return 0, 0, fmt.Errorf("location %q: %w", s, bmff.ErrMalformed)
	}
	return 0, 0, fmt.Errorf("location: %w", bmff.ErrNotFound)
}

// Package commit writes a rewritten movie header back into its file, moving as
// few bytes as possible.
package commit

import (
	"fmt"
	"io"
	"os"
)

// File is the capability the write-back engine needs from a file handle.
type File interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Size() (int64, error)
}

// OSFile is a blocking File over *os.File holding an advisory lock for its
// lifetime: exclusive when opened for writing, shared otherwise.
type OSFile struct {
	f *os.File
}

// Open opens path for reading, or for reading and writing, and takes the
// matching lock without waiting. A file already locked by another process
// fails with ErrLocked.
func Open(path string, writable bool) (*OSFile, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	if err := lock(f, writable); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &OSFile{f: f}, nil
}

func (o *OSFile) ReadAt(p []byte, off int64) (int, error)  { return o.f.ReadAt(p, off) }
func (o *OSFile) WriteAt(p []byte, off int64) (int, error) { return o.f.WriteAt(p, off) }
func (o *OSFile) Truncate(size int64) error                { return o.f.Truncate(size) }

// Size returns the current file length.
func (o *OSFile) Size() (int64, error) {
	fi, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Name returns the path the file was opened with.
func (o *OSFile) Name() string { return o.f.Name() }

// Close releases the lock and closes the file.
func (o *OSFile) Close() error {
	unlock(o.f)
	return o.f.Close()
}

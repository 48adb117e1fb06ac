package commit

import (
	"errors"
	"sync"
)

// ErrClosed is returned by an AsyncFile after Close.
var ErrClosed = errors.New("commit: file closed")

// AsyncFile is the suspending adapter: every call is handed to a dedicated
// I/O goroutine and the caller parks until the result comes back. Control
// therefore leaves the calling goroutine only at read, write, truncate and
// size boundaries, and the write-back logic runs unchanged over it.
type AsyncFile struct {
	base File
	reqs chan func()

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Suspend starts the I/O goroutine for base. Close stops it; base itself is
// not closed.
func Suspend(base File) *AsyncFile {
	a := &AsyncFile{
		base: base,
		reqs: make(chan func()),
		done: make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *AsyncFile) loop() {
	defer close(a.done)
	for fn := range a.reqs {
		fn()
	}
}

// do runs fn on the I/O goroutine and waits for it.
func (a *AsyncFile) do(fn func()) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	ready := make(chan struct{})
	a.reqs <- func() {
		fn()
		close(ready)
	}
	<-ready
	return nil
}

func (a *AsyncFile) ReadAt(p []byte, off int64) (n int, err error) {
	if cerr := a.do(func() { n, err = a.base.ReadAt(p, off) }); cerr != nil {
		return 0, cerr
	}
	return n, err
}

func (a *AsyncFile) WriteAt(p []byte, off int64) (n int, err error) {
	if cerr := a.do(func() { n, err = a.base.WriteAt(p, off) }); cerr != nil {
		return 0, cerr
	}
	return n, err
}

func (a *AsyncFile) Truncate(size int64) (err error) {
	if cerr := a.do(func() { err = a.base.Truncate(size) }); cerr != nil {
		return cerr
	}
	return err
}

func (a *AsyncFile) Size() (size int64, err error) {
	if cerr := a.do(func() { size, err = a.base.Size() }); cerr != nil {
		return 0, cerr
	}
	return size, err
}

// Close stops the I/O goroutine after pending calls finish.
func (a *AsyncFile) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.reqs)
	a.mu.Unlock()
	<-a.done
	return nil
}

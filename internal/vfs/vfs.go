// Package vfs provides a minimal filesystem abstraction for the read path:
// creating a file to hold test fixtures and an SST builder's output, and
// opening an existing file for positional (random-access) reads.
//
// This is deliberately narrower than a general virtual filesystem: the read
// path never needs sequential reads, directory listing, or file locking,
// since SSTs are immutable once built and never share a live writer.
package vfs

import (
	"io"
	"os"
)

// FS is the filesystem interface consumed by the SST reader and by test
// fixture construction.
type FS interface {
	// Create creates a new writable file, truncating it if it exists.
	Create(name string) (WritableFile, error)

	// OpenRandomAccess opens an existing file for random-access reading.
	OpenRandomAccess(name string) (RandomAccessFile, error)

	// Remove deletes a file.
	Remove(name string) error

	// Stat returns file info.
	Stat(name string) (os.FileInfo, error)
}

// WritableFile is a file that can be written to, used only by test fixture
// construction in this read-path module.
type WritableFile interface {
	io.Writer
	io.Closer

	// Sync flushes the file contents to stable storage.
	Sync() error
}

// RandomAccessFile is a file that can be read at any offset.
type RandomAccessFile interface {
	io.ReaderAt
	io.Closer

	// Size returns the file size.
	Size() int64
}

// osFS implements FS using the OS filesystem.
type osFS struct{}

// Default returns the default OS filesystem.
func Default() FS {
	return &osFS{}
}

func (fs *osFS) Create(name string) (WritableFile, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &osWritableFile{f: f}, nil
}

func (fs *osFS) OpenRandomAccess(name string) (RandomAccessFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &osRandomAccessFile{f: f, size: info.Size()}, nil
}

func (fs *osFS) Remove(name string) error {
	return os.Remove(name)
}

func (fs *osFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// osWritableFile wraps os.File for WritableFile interface.
type osWritableFile struct {
	f *os.File
}

func (wf *osWritableFile) Write(p []byte) (int, error) {
	return wf.f.Write(p)
}

func (wf *osWritableFile) Close() error {
	return wf.f.Close()
}

func (wf *osWritableFile) Sync() error {
	return wf.f.Sync()
}

// osRandomAccessFile wraps os.File for RandomAccessFile interface.
type osRandomAccessFile struct {
	f    *os.File
	size int64
}

func (rf *osRandomAccessFile) ReadAt(p []byte, off int64) (int, error) {
	return rf.f.ReadAt(p, off)
}

func (rf *osRandomAccessFile) Close() error {
	return rf.f.Close()
}

func (rf *osRandomAccessFile) Size() int64 {
	return rf.size
}

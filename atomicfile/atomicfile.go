// Package atomicfile replaces whole files so that readers see either
// the old or the new content, never a partial write.
//
// Data goes to a temporary file in the destination directory. Close
// syncs it, sets the final mode and renames it over the destination.
// Any failure removes the temporary file and leaves the destination
// untouched.
package atomicfile

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrCancelled is returned by Close after RemoveIfNotClosed
	ErrCancelled = errors.New("cancelled")

	_ io.WriteCloser = &File{}
)

type File struct {
	dstPath string
	dir     string
	perm    fs.FileMode
	tmpFile *os.File
	tmpPath string
	// first error, sticky
	err error
}

// New starts writing a replacement for path. The file gets mode perm
// when it is renamed into place
func New(path string, perm fs.FileMode) (*File, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	tmpFile, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		perm:    perm,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
	}, nil
}

func (f *File) fail(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.fail(err)
}

func (f *File) closed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed drops the temporary file without touching the
// destination. Meant for defer; a no-op after Close
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.closed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close commits the write. Calling it again returns the first error
func (f *File) Close() error {
	if f.closed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	errChmod := tmpFile.Chmod(f.perm)
	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}
	err := errors.Join(errChmod, errSync, errClose)
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = err == nil
	}
	if didRename {
		// the rename itself must survive a crash
		if fdir, _ := os.Open(f.dir); fdir != nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}
	f.err = err
	return err
}

// WriteFile is like os.WriteFile but replaces path atomically
func WriteFile(path string, d []byte, perm fs.FileMode) error {
	f, err := New(path, perm)
	if err != nil {
		return err
	}
	defer f.RemoveIfNotClosed()
	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
}

package mfs

import (
	"io"
	"os"

	"github.com/absfs/absfs"
)

// overlayDir is the handle the absfs view returns for directories. Its
// entries are the overlay listing of the directory, loaded on first read.
type overlayDir struct {
	mfs     *FileSystem
	path    Path
	entries []os.FileInfo
	offset  int
	closed  bool
}

var _ absfs.File = (*overlayDir)(nil)

func newOverlayDir(mfs *FileSystem, p Path) *overlayDir {
	return &overlayDir{mfs: mfs, path: p}
}

// Close closes the directory
func (d *overlayDir) Close() error {
	d.closed = true
	return nil
}

func (d *overlayDir) Read(p []byte) (n int, err error) {
	return 0, &os.PathError{Op: "read", Path: d.path.Path, Err: os.ErrInvalid}
}

func (d *overlayDir) ReadAt(p []byte, off int64) (n int, err error) {
	return 0, &os.PathError{Op: "read", Path: d.path.Path, Err: os.ErrInvalid}
}

// Seek seeks to an offset in the directory listing
func (d *overlayDir) Seek(offset int64, whence int) (int64, error) {
	if d.closed {
		return 0, os.ErrClosed
	}

	switch whence {
	case io.SeekStart:
		d.offset = int(offset)
	case io.SeekCurrent:
		d.offset += int(offset)
	case io.SeekEnd:
		if err := d.load(); err != nil {
			return 0, err
		}
		d.offset = len(d.entries) + int(offset)
	}

	if d.offset < 0 {
		d.offset = 0
	}

	return int64(d.offset), nil
}

func (d *overlayDir) Write(p []byte) (n int, err error) {
	return 0, &os.PathError{Op: "write", Path: d.path.Path, Err: os.ErrInvalid}
}

func (d *overlayDir) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, &os.PathError{Op: "write", Path: d.path.Path, Err: os.ErrInvalid}
}

func (d *overlayDir) WriteString(s string) (ret int, err error) {
	return 0, &os.PathError{Op: "write", Path: d.path.Path, Err: os.ErrInvalid}
}

// Name returns the name the directory was opened with
func (d *overlayDir) Name() string {
	return d.path.Path
}

// Readdir reads directory entries
func (d *overlayDir) Readdir(count int) ([]os.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	if err := d.load(); err != nil {
		return nil, err
	}

	if d.offset >= len(d.entries) {
		if count > 0 {
			return nil, io.EOF
		}
		return []os.FileInfo{}, nil
	}

	end := len(d.entries)
	if count > 0 && d.offset+count < end {
		end = d.offset + count
	}

	result := d.entries[d.offset:end]
	d.offset = end
	return result, nil
}

// Readdirnames reads directory entry names
func (d *overlayDir) Readdirnames(count int) ([]string, error) {
	infos, err := d.Readdir(count)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}

	return names, nil
}

// Stat returns the FileInfo for the directory
func (d *overlayDir) Stat() (os.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	return d.mfs.GetFileStatus(d.path)
}

// Sync is a no-op for directories
func (d *overlayDir) Sync() error {
	return nil
}

func (d *overlayDir) Truncate(size int64) error {
	return &os.PathError{Op: "truncate", Path: d.path.Path, Err: os.ErrInvalid}
}

func (d *overlayDir) load() error {
	if d.entries != nil {
		return nil
	}
	entries, err := d.mfs.ReadDir(d.path)
	if err != nil {
		return err
	}
	d.entries = entries
	return nil
}

package mfs

import (
	"os"
	"time"

	"github.com/absfs/absfs"
	"github.com/spf13/afero"
)

// aferoFiler lifts an afero.Fs into an absfs.Filer so afero filesystems can
// serve as either backend.
type aferoFiler struct {
	fs afero.Fs
}

var _ absfs.Filer = (*aferoFiler)(nil)

// FromAfero returns an absfs.FileSystem backed by fsys.
//
// Example:
//
//	j := mfs.FromAfero(afero.NewMemMapFs())
func FromAfero(fsys afero.Fs) absfs.FileSystem {
	return absfs.ExtendFiler(&aferoFiler{fs: fsys})
}

func (a *aferoFiler) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	f, err := a.fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (a *aferoFiler) Mkdir(name string, perm os.FileMode) error {
	return a.fs.Mkdir(name, perm)
}

func (a *aferoFiler) MkdirAll(name string, perm os.FileMode) error {
	return a.fs.MkdirAll(name, perm)
}

func (a *aferoFiler) Remove(name string) error {
	return a.fs.Remove(name)
}

func (a *aferoFiler) RemoveAll(name string) error {
	return a.fs.RemoveAll(name)
}

func (a *aferoFiler) Rename(oldpath, newpath string) error {
	return a.fs.Rename(oldpath, newpath)
}

func (a *aferoFiler) Stat(name string) (os.FileInfo, error) {
	return a.fs.Stat(name)
}

func (a *aferoFiler) Chmod(name string, mode os.FileMode) error {
	return a.fs.Chmod(name, mode)
}

func (a *aferoFiler) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return a.fs.Chtimes(name, atime, mtime)
}

func (a *aferoFiler) Chown(name string, uid, gid int) error {
	return a.fs.Chown(name, uid, gid)
}

// Truncate resizes the named file; afero.Fs only truncates open files.
func (a *aferoFiler) Truncate(name string, size int64) error {
	f, err := a.fs.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

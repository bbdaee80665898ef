package mfs

import (
	"os"
	"strconv"
	"time"

	"github.com/absfs/absfs"
)

// absFSAdapter exposes a FileSystem through the absfs.Filer interface. Names
// are public path components; relative names resolve against the adapter's
// working directory, which Chdir and Getwd share with the FileSystem.
type absFSAdapter struct {
	mfs *FileSystem
}

// Ensure absFSAdapter implements absfs.Filer interface at compile time
var _ absfs.Filer = (*absFSAdapter)(nil)

// AbsFS returns an absfs.FileSystem view of the federation. Reads are
// dispatched between H and J, directories list the overlay of both and all
// writes land on H.
//
// Example:
//
//	view := mfs.AbsFS()
//	f, err := view.Open("/warehouse/part-0000")
func (mfs *FileSystem) AbsFS() absfs.FileSystem {
	return absfs.ExtendFiler(&absFSAdapter{mfs: mfs})
}

// OpenFile implements absfs.Filer
func (a *absFSAdapter) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	return a.mfs.OpenFile(NewPath(name), flag, perm)
}

// Mkdir implements absfs.Filer
func (a *absFSAdapter) Mkdir(name string, perm os.FileMode) error {
	return a.mfs.Mkdir(NewPath(name), perm)
}

// MkdirAll creates name and its parents on H.
func (a *absFSAdapter) MkdirAll(name string, perm os.FileMode) error {
	return a.mfs.Mkdirs(NewPath(name), perm)
}

// Remove implements absfs.Filer
func (a *absFSAdapter) Remove(name string) error {
	return a.mfs.Delete(NewPath(name), false)
}

// RemoveAll removes name and everything below it.
func (a *absFSAdapter) RemoveAll(name string) error {
	return a.mfs.Delete(NewPath(name), true)
}

// Rename implements absfs.Filer
func (a *absFSAdapter) Rename(oldpath, newpath string) error {
	return a.mfs.Rename(NewPath(oldpath), NewPath(newpath))
}

// Stat implements absfs.Filer
func (a *absFSAdapter) Stat(name string) (os.FileInfo, error) {
	return a.mfs.GetFileStatus(NewPath(name))
}

// Chmod implements absfs.Filer
func (a *absFSAdapter) Chmod(name string, mode os.FileMode) error {
	return a.mfs.SetPermission(NewPath(name), mode)
}

// Chtimes implements absfs.Filer
func (a *absFSAdapter) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return a.mfs.SetTimes(NewPath(name), mtime, atime)
}

// Chown implements absfs.Filer
func (a *absFSAdapter) Chown(name string, uid, gid int) error {
	return a.mfs.SetOwner(NewPath(name), strconv.Itoa(uid), strconv.Itoa(gid))
}

// Truncate changes the size of the named file on H.
func (a *absFSAdapter) Truncate(name string, size int64) error {
	return a.mfs.Truncate(NewPath(name), size)
}

// Chdir changes the adapter's working directory.
func (a *absFSAdapter) Chdir(dir string) error {
	p := NewPath(dir)
	st, err := a.mfs.GetFileStatus(p)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return &os.PathError{Op: "chdir", Path: dir, Err: os.ErrInvalid}
	}
	a.mfs.SetWorkingDirectory(p)
	return nil
}

// Getwd returns the adapter's working directory.
func (a *absFSAdapter) Getwd() (string, error) {
	return a.mfs.WorkingDirectory().Path, nil
}

// TempDir returns the directory used for temporary files.
func (a *absFSAdapter) TempDir() string {
	return "/tmp"
}

// Separator returns the path separator (always forward slash for virtual paths)
func (a *absFSAdapter) Separator() uint8 {
	return '/'
}

// ListSeparator returns the path list separator (always colon for virtual paths)
func (a *absFSAdapter) ListSeparator() uint8 {
	return ':'
}

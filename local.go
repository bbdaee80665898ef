package mfs

import (
	"io"
	"os"
	"path"

	"github.com/absfs/absfs"
)

// requireSynced fails with ErrNotSynced unless J holds name.
func (mfs *FileSystem) requireSynced(name string) error {
	ok, err := mfs.existsJ(name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSynced
	}
	return nil
}

// CopyToLocalFile copies src, a file or a directory tree, from J to the local
// path dst. When dst is an existing directory the copy is placed inside it.
// With delSrc the J copy is removed once the copy succeeds.
func (mfs *FileSystem) CopyToLocalFile(delSrc bool, src Path, dst string) error {
	name := mfs.resolve(src)
	if err := mfs.requireSynced(name); err != nil {
		return err
	}
	mfs.trace("copyToLocalFile", name, mfs.secondary())

	if info, err := mfs.local.Stat(dst); err == nil && info.IsDir() {
		dst = path.Join(dst, path.Base(name))
	}
	if err := mfs.copyTree(mfs.j, name, mfs.local, dst); err != nil {
		return err
	}
	if delSrc {
		return mfs.j.RemoveAll(name)
	}
	return nil
}

// StartLocalOutput returns the local path a caller writes to before
// publishing out with CompleteLocalOutput. J must already hold out.
func (mfs *FileSystem) StartLocalOutput(out Path, tmpLocal string) (string, error) {
	name := mfs.resolve(out)
	if err := mfs.requireSynced(name); err != nil {
		return "", err
	}
	mfs.trace("startLocalOutput", name, mfs.secondary())
	return tmpLocal, nil
}

// CompleteLocalOutput moves the local file tmpLocal to out on J.
func (mfs *FileSystem) CompleteLocalOutput(out Path, tmpLocal string) error {
	name := mfs.resolve(out)
	if err := mfs.requireSynced(name); err != nil {
		return err
	}
	mfs.trace("completeLocalOutput", name, mfs.secondary())

	if err := mfs.copyTree(mfs.local, tmpLocal, mfs.j, name); err != nil {
		return err
	}
	return mfs.local.RemoveAll(tmpLocal)
}

// CopyFromLocalFile is not supported.
func (mfs *FileSystem) CopyFromLocalFile(delSrc bool, src string, dst Path) error {
	return ErrUnsupportedOperation
}

// CopyFromLocalFileOverwrite is not supported.
func (mfs *FileSystem) CopyFromLocalFileOverwrite(delSrc, overwrite bool, src string, dst Path) error {
	return ErrUnsupportedOperation
}

// CopyFromLocalFiles is not supported.
func (mfs *FileSystem) CopyFromLocalFiles(delSrc, overwrite bool, srcs []string, dst Path) error {
	return ErrUnsupportedOperation
}

// copyTree copies the file or directory from on src to to on dst.
func (mfs *FileSystem) copyTree(src absfs.FileSystem, from string, dst absfs.FileSystem, to string) error {
	info, err := src.Stat(from)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return mfs.copyFile(src, from, dst, to, info)
	}

	if err := dst.MkdirAll(to, info.Mode().Perm()); err != nil {
		return err
	}
	entries, err := readDir(src, from)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := mfs.copyTree(src, path.Join(from, e.Name()), dst, path.Join(to, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (mfs *FileSystem) copyFile(src absfs.FileSystem, from string, dst absfs.FileSystem, to string, info os.FileInfo) error {
	srcFile, err := src.Open(from)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := dst.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	size := mfs.copyBufferSize
	if size <= 0 {
		size = 32 * 1024
	}
	if _, err := io.CopyBuffer(dstFile, srcFile, make([]byte, size)); err != nil {
		return err
	}

	if err := dst.Chtimes(to, info.ModTime(), info.ModTime()); err != nil {
		mfs.log.WithError(err).WithField("path", to).Warn("preserve modification time")
	}
	return nil
}

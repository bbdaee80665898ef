package mfs

import (
	"io/fs"
	"math"
	"os"
	"path"

	"github.com/absfs/absfs"
	"github.com/apex/log"
	"github.com/pkg/errors"
)

// backend is one of the two filesystems together with its namespace.
type backend struct {
	absfs.FileSystem
	ns Namespace
}

func (mfs *FileSystem) primary() backend   { return backend{mfs.h, mfs.tr.H} }
func (mfs *FileSystem) secondary() backend { return backend{mfs.j, mfs.tr.J} }

func isNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, fs.ErrNotExist)
}

// exists reports whether b holds name. Only not-found counts as absent;
// every other failure is returned.
func exists(b absfs.FileSystem, name string) (bool, error) {
	_, err := b.Stat(name)
	switch {
	case err == nil:
		return true, nil
	case isNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

// existsH is the dispatch discriminator. Every call issues its own Stat on H
// unless the probe cache holds a live answer. A result is cached only when
// no write invalidated the cache while the Stat was in flight.
func (mfs *FileSystem) existsH(name string) (bool, error) {
	if ok, hit := mfs.cache.lookup(name); hit {
		return ok, nil
	}
	gen := mfs.cache.generation()
	ok, err := exists(mfs.h, name)
	if err != nil {
		return false, err
	}
	mfs.cache.storeAt(name, ok, gen)
	return ok, nil
}

func (mfs *FileSystem) existsJ(name string) (bool, error) {
	return exists(mfs.j, name)
}

// route picks H when it holds name and J otherwise.
func (mfs *FileSystem) route(op, name string) (backend, error) {
	ok, err := mfs.existsH(name)
	if err != nil {
		return backend{}, err
	}
	b := mfs.secondary()
	if ok {
		b = mfs.primary()
	}
	mfs.trace(op, name, b)
	return b, nil
}

func (mfs *FileSystem) trace(op, name string, b backend) {
	mfs.log.WithFields(log.Fields{
		"op":      op,
		"path":    name,
		"backend": b.ns.Scheme,
	}).Debug("dispatch")
}

// invalidateLineage drops cached probes for name and all of its ancestors.
func (mfs *FileSystem) invalidateLineage(name string) {
	for {
		mfs.cache.invalidate(name)
		parent := path.Dir(name)
		if parent == name {
			return
		}
		name = parent
	}
}

// Open opens p for reading from H, or from J when H does not hold p.
func (mfs *FileSystem) Open(p Path) (absfs.File, error) {
	name := mfs.resolve(p)
	b, err := mfs.route("open", name)
	if err != nil {
		return nil, err
	}
	mfs.stats.IncrementReadOps(1)
	f, err := b.Open(name)
	if err != nil {
		return nil, err
	}
	return newCountingFile(f, mfs.stats), nil
}

// GetFileStatus returns the status of p from H, falling back to J when H
// reports not-found. A not-found is returned only when neither has p.
func (mfs *FileSystem) GetFileStatus(p Path) (*FileStatus, error) {
	name := mfs.resolve(p)
	pub := mfs.tr.Pub.Reparent(NewPath(name))
	mfs.stats.IncrementReadOps(1)

	info, err := mfs.h.Stat(name)
	if err == nil {
		mfs.trace("getFileStatus", name, mfs.primary())
		return statusFromInfo(info, pub), nil
	}
	if !isNotExist(err) {
		return nil, err
	}

	mfs.trace("getFileStatus", name, mfs.secondary())
	info, err = mfs.j.Stat(name)
	if err != nil {
		return nil, err
	}
	return statusFromInfo(info, pub), nil
}

// GetFileBlockLocations returns the locations of the bytes [start,
// start+length) of the file described by st. Backends without a
// BlockLocator report the whole file on a single local host.
func (mfs *FileSystem) GetFileBlockLocations(st *FileStatus, start, length int64) ([]BlockLocation, error) {
	if st == nil {
		return nil, nil
	}
	name := mfs.resolve(st.Path)
	b, err := mfs.route("getFileBlockLocations", name)
	if err != nil {
		return nil, err
	}
	if bl, ok := b.FileSystem.(BlockLocator); ok {
		return bl.BlockLocations(name, start, length)
	}
	return localBlockLocations(st, start, length)
}

// GetPathBlockLocations is GetFileBlockLocations for the file at p.
func (mfs *FileSystem) GetPathBlockLocations(p Path, start, length int64) ([]BlockLocation, error) {
	st, err := mfs.GetFileStatus(p)
	if err != nil {
		return nil, err
	}
	return mfs.GetFileBlockLocations(st, start, length)
}

func localBlockLocations(st *FileStatus, start, length int64) ([]BlockLocation, error) {
	if start < 0 || length < 0 {
		return nil, errors.Errorf("invalid start %d or length %d", start, length)
	}
	if st.Length <= start {
		return []BlockLocation{}, nil
	}
	return []BlockLocation{{
		Hosts:  []string{"localhost"},
		Names:  []string{"localhost:9866"},
		Offset: 0,
		Length: st.Length,
	}}, nil
}

// GetFileChecksum returns the checksum of the whole file at p.
func (mfs *FileSystem) GetFileChecksum(p Path) (*FileChecksum, error) {
	return mfs.GetFileChecksumLength(p, math.MaxInt64)
}

// GetFileChecksumLength returns the checksum of the first length bytes of p.
func (mfs *FileSystem) GetFileChecksumLength(p Path, length int64) (*FileChecksum, error) {
	name := mfs.resolve(p)
	b, err := mfs.route("getFileChecksum", name)
	if err != nil {
		return nil, err
	}
	cs, ok := b.FileSystem.(Checksummer)
	if !ok {
		return nil, unsupported("getFileChecksum", b.ns.Scheme)
	}
	return cs.FileChecksum(name, length)
}

// GetStatus reports the capacity of the filesystem holding p.
func (mfs *FileSystem) GetStatus(p Path) (FsStatus, error) {
	name := mfs.resolve(p)
	b, err := mfs.route("getStatus", name)
	if err != nil {
		return FsStatus{}, err
	}
	sr, ok := b.FileSystem.(StatusReporter)
	if !ok {
		return FsStatus{}, unsupported("getStatus", b.ns.Scheme)
	}
	return sr.Status(name)
}

// GetContentSummary sums up the tree rooted at p on the backend serving p.
func (mfs *FileSystem) GetContentSummary(p Path) (ContentSummary, error) {
	name := mfs.resolve(p)
	b, err := mfs.route("getContentSummary", name)
	if err != nil {
		return ContentSummary{}, err
	}
	if s, ok := b.FileSystem.(Summarizer); ok {
		return s.ContentSummary(name)
	}
	cs := ContentSummary{Quota: -1, SpaceQuota: -1}
	if err := summarize(b, name, &cs); err != nil {
		return ContentSummary{}, err
	}
	cs.SpaceConsumed = cs.Length
	return cs, nil
}

func summarize(fsys absfs.FileSystem, name string, cs *ContentSummary) error {
	info, err := fsys.Stat(name)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		cs.Length += info.Size()
		cs.FileCount++
		return nil
	}
	cs.DirectoryCount++

	entries, err := readDir(fsys, name)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := summarize(fsys, path.Join(name, e.Name()), cs); err != nil {
			return err
		}
	}
	return nil
}

// readDir returns the entries of the directory name on fsys.
func readDir(fsys absfs.FileSystem, name string) ([]os.FileInfo, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, err
	}
	out := infos[:0]
	for _, info := range infos {
		if n := info.Name(); n == "." || n == ".." {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// Delete removes p from H, first removing J's copy if it has one. Failures
// on J are logged and do not affect the result. Deleting a path H does not
// hold succeeds without touching either backend.
func (mfs *FileSystem) Delete(p Path, recursive bool) error {
	name := mfs.resolve(p)
	ok, err := mfs.existsH(name)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	mfs.stats.IncrementWriteOps(1)

	if inJ, err := mfs.existsJ(name); err != nil {
		mfs.log.WithError(err).WithField("path", name).Warn("probe secondary before delete")
	} else if inJ {
		mfs.trace("delete", name, mfs.secondary())
		if err := mfs.j.RemoveAll(name); err != nil {
			mfs.log.WithError(err).WithField("path", name).Warn("delete from secondary")
		}
	}

	mfs.trace("delete", name, mfs.primary())
	if recursive {
		err = mfs.h.RemoveAll(name)
	} else {
		err = mfs.h.Remove(name)
	}
	mfs.cache.invalidateTree(name)
	return err
}

// Rename moves src to dst on H, creating dst's parent first. Renaming a
// path H does not hold succeeds and leaves J untouched.
func (mfs *FileSystem) Rename(src, dst Path) error {
	from, to := mfs.resolve(src), mfs.resolve(dst)
	ok, err := mfs.existsH(from)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return mfs.rename(from, to)
}

// RenameWithOptions moves src to dst on H without probing H first. Unless
// overwrite is set an existing dst fails the rename with fs.ErrExist; with
// overwrite an existing file at dst is replaced.
func (mfs *FileSystem) RenameWithOptions(src, dst Path, overwrite bool) error {
	from, to := mfs.resolve(src), mfs.resolve(dst)
	if info, err := mfs.h.Stat(to); err == nil {
		if !overwrite {
			return &os.LinkError{Op: "rename", Old: from, New: to, Err: fs.ErrExist}
		}
		if !info.IsDir() {
			if _, err := mfs.h.Stat(from); err != nil {
				return err
			}
			if err := mfs.h.Remove(to); err != nil {
				return err
			}
		}
	}
	return mfs.rename(from, to)
}

func (mfs *FileSystem) rename(from, to string) error {
	mfs.stats.IncrementWriteOps(1)
	mfs.trace("rename", from, mfs.primary())

	if err := mfs.h.MkdirAll(path.Dir(to), 0755); err != nil {
		return err
	}
	err := mfs.h.Rename(from, to)
	mfs.cache.invalidateTree(from)
	mfs.cache.invalidateTree(to)
	mfs.invalidateLineage(to)
	return err
}

// OpenFile opens p with the given flags. Read-only opens are dispatched like
// Open and return an overlay listing handle for directories. Every other open
// goes to H; with os.O_CREATE missing parent directories are created first.
func (mfs *FileSystem) OpenFile(p Path, flag int, perm os.FileMode) (absfs.File, error) {
	name := mfs.resolve(p)
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) == 0 {
		b, err := mfs.route("open", name)
		if err != nil {
			return nil, err
		}
		info, err := b.Stat(name)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return newOverlayDir(mfs, mfs.tr.Pub.Reparent(NewPath(name))), nil
		}
		mfs.stats.IncrementReadOps(1)
		f, err := b.Open(name)
		if err != nil {
			return nil, err
		}
		return newCountingFile(f, mfs.stats), nil
	}

	if flag&os.O_CREATE != 0 {
		parent := path.Dir(name)
		ok, err := mfs.existsH(parent)
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := mfs.Mkdirs(mfs.tr.Pub.Reparent(NewPath(parent)), 0755); err != nil {
				return nil, err
			}
		}
	}

	mfs.stats.IncrementWriteOps(1)
	mfs.trace("create", name, mfs.primary())
	f, err := mfs.h.OpenFile(name, flag, perm)
	mfs.invalidateLineage(name)
	if err != nil {
		return nil, err
	}
	return newCountingFile(f, mfs.stats), nil
}

// Create creates or truncates the file p on H. Missing parent directories
// are created on H first. Without overwrite an existing file is an error.
func (mfs *FileSystem) Create(p Path, perm os.FileMode, overwrite bool) (absfs.File, error) {
	flag := os.O_CREATE | os.O_RDWR | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	return mfs.OpenFile(p, flag, perm)
}

// Append opens the existing file p on H for appending.
func (mfs *FileSystem) Append(p Path) (absfs.File, error) {
	name := mfs.resolve(p)
	mfs.stats.IncrementWriteOps(1)
	mfs.trace("append", name, mfs.primary())
	f, err := mfs.h.OpenFile(name, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, err
	}
	return newCountingFile(f, mfs.stats), nil
}

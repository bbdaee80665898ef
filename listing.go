package mfs

import (
	"os"
	"path"

	mapset "github.com/deckarep/golang-set/v2"
)

// PathFilter selects entries of a located listing by public path.
type PathFilter func(p Path) bool

// ListStatus lists the directory p. When H holds p its entries come first,
// followed by the directories J has under p that H does not list. J's files
// are ignored unless H's listing is empty, in which case J's listing is
// returned as is. Listing a file yields the file's own status.
func (mfs *FileSystem) ListStatus(p Path) ([]*FileStatus, error) {
	entries, err := mfs.listStatus(p)
	if err != nil {
		mfs.log.WithError(err).WithField("path", p.String()).Error("list status")
		return nil, err
	}
	return entries, nil
}

func (mfs *FileSystem) listStatus(p Path) ([]*FileStatus, error) {
	name := mfs.resolve(p)
	mfs.stats.IncrementLargeReadOps(1)

	var lh []*FileStatus
	ok, err := mfs.existsH(name)
	if err != nil {
		return nil, err
	}
	if ok {
		mfs.trace("listStatus", name, mfs.primary())
		if lh, err = mfs.list(mfs.primary(), name); err != nil {
			return nil, err
		}
	}

	inJ, err := mfs.existsJ(name)
	if err != nil {
		return nil, err
	}

	if len(lh) == 0 {
		if !inJ {
			return []*FileStatus{}, nil
		}
		mfs.trace("listStatus", name, mfs.secondary())
		return mfs.list(mfs.secondary(), name)
	}
	if !inJ {
		return lh, nil
	}

	mfs.trace("listStatus", name, mfs.secondary())
	lj, err := mfs.list(mfs.secondary(), name)
	if err != nil {
		return nil, err
	}

	names := mapset.NewThreadUnsafeSetWithSize[string](len(lh))
	for _, st := range lh {
		names.Add(st.Name())
	}
	for _, st := range lj {
		if st.IsDir() && !names.Contains(st.Name()) {
			lh = append(lh, st)
		}
	}
	return lh, nil
}

// list returns the entries of name on b, in the backend's order, with their
// paths in the public namespace.
func (mfs *FileSystem) list(b backend, name string) ([]*FileStatus, error) {
	info, err := b.Stat(name)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []*FileStatus{statusFromInfo(info, mfs.tr.Pub.Reparent(NewPath(name)))}, nil
	}

	infos, err := readDir(b, name)
	if err != nil {
		return nil, err
	}
	out := make([]*FileStatus, 0, len(infos))
	for _, info := range infos {
		out = append(out, statusFromInfo(info, mfs.tr.Pub.Reparent(NewPath(path.Join(name, info.Name())))))
	}
	return out, nil
}

// StatusIterator walks a listing once. It is not safe for concurrent use.
type StatusIterator struct {
	entries []*FileStatus
	cur     *FileStatus
	err     error
}

// Next advances to the next entry and reports whether there is one.
func (it *StatusIterator) Next() bool {
	if it.err != nil || len(it.entries) == 0 {
		it.cur = nil
		return false
	}
	it.cur, it.entries = it.entries[0], it.entries[1:]
	return true
}

// Status returns the current entry.
func (it *StatusIterator) Status() *FileStatus { return it.cur }

// Err returns the error that stopped the iteration, if any.
func (it *StatusIterator) Err() error { return it.err }

// ListStatusIterator is ListStatus as a single-pass iterator.
func (mfs *FileSystem) ListStatusIterator(p Path) (*StatusIterator, error) {
	entries, err := mfs.ListStatus(p)
	if err != nil {
		return nil, err
	}
	return &StatusIterator{entries: entries}, nil
}

// LocatedStatusIterator walks a located listing once. Block locations of a
// file are fetched when the iterator reaches it.
type LocatedStatusIterator struct {
	mfs     *FileSystem
	entries []*FileStatus
	cur     *LocatedFileStatus
	err     error
}

// Next advances to the next entry and reports whether there is one. It
// returns false when the listing is exhausted or a lookup failed; check Err.
func (it *LocatedStatusIterator) Next() bool {
	it.cur = nil
	if it.err != nil || len(it.entries) == 0 {
		return false
	}
	st := it.entries[0]
	it.entries = it.entries[1:]

	located := &LocatedFileStatus{FileStatus: st}
	if st.IsFile() {
		locs, err := it.mfs.GetFileBlockLocations(st, 0, st.Length)
		if err != nil {
			it.err = err
			return false
		}
		located.Locations = locs
	}
	it.cur = located
	return true
}

// Status returns the current entry.
func (it *LocatedStatusIterator) Status() *LocatedFileStatus { return it.cur }

// Err returns the error that stopped the iteration, if any.
func (it *LocatedStatusIterator) Err() error { return it.err }

// ListLocatedStatus lists p like ListStatus, keeping only the entries whose
// public path filter accepts. A nil filter keeps everything.
func (mfs *FileSystem) ListLocatedStatus(p Path, filter PathFilter) (*LocatedStatusIterator, error) {
	listing, err := mfs.ListStatus(p)
	if err != nil {
		return nil, err
	}
	entries := listing[:0]
	for _, st := range listing {
		if filter == nil || filter(st.Path) {
			entries = append(entries, st)
		}
	}
	return &LocatedStatusIterator{mfs: mfs, entries: entries}, nil
}

// ReadDir returns the overlay listing of p as os.FileInfo values.
func (mfs *FileSystem) ReadDir(p Path) ([]os.FileInfo, error) {
	entries, err := mfs.ListStatus(p)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, len(entries))
	for i, st := range entries {
		infos[i] = st
	}
	return infos, nil
}

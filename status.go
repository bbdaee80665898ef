package mfs

import (
	"os"
	"time"
)

// FileStatus describes a file or directory as reported by a backend. Only
// Path is ever rewritten by the adapter; every other attribute is passed
// through as the backend reported it.
type FileStatus struct {
	Length           int64
	Directory        bool
	Replication      int16
	BlockSize        int64
	ModificationTime time.Time
	AccessTime       time.Time
	Permission       os.FileMode
	Owner            string
	Group            string
	Path             Path
}

var _ os.FileInfo = (*FileStatus)(nil)

// Name implements os.FileInfo.
func (st *FileStatus) Name() string {
	if st.Path.IsRoot() {
		return "/"
	}
	return st.Path.Name()
}

// Size implements os.FileInfo.
func (st *FileStatus) Size() int64 { return st.Length }

// Mode implements os.FileInfo.
func (st *FileStatus) Mode() os.FileMode {
	if st.Directory {
		return st.Permission | os.ModeDir
	}
	return st.Permission
}

// IsDir implements os.FileInfo.
func (st *FileStatus) IsDir() bool { return st.Directory }

// Sys returns the status itself so that a FileStatus survives being passed
// around as an os.FileInfo.
func (st *FileStatus) Sys() interface{} { return st }

// ModTime implements os.FileInfo.
func (st *FileStatus) ModTime() time.Time { return st.ModificationTime }

// IsFile reports whether the status describes a regular file.
func (st *FileStatus) IsFile() bool { return !st.Directory }

// statusFromInfo converts a backend os.FileInfo for the file at p.
func statusFromInfo(info os.FileInfo, p Path) *FileStatus {
	if st, ok := info.(*FileStatus); ok {
		out := *st
		out.Path = p
		return &out
	}
	if st, ok := info.Sys().(*FileStatus); ok && st != nil {
		out := *st
		out.Path = p
		return &out
	}
	return &FileStatus{
		Length:           info.Size(),
		Directory:        info.IsDir(),
		Replication:      1,
		ModificationTime: info.ModTime(),
		AccessTime:       info.ModTime(),
		Permission:       info.Mode().Perm(),
		Path:             p,
	}
}

// BlockLocation names the hosts holding a byte range of a file.
type BlockLocation struct {
	Hosts  []string
	Names  []string
	Offset int64
	Length int64
}

// LocatedFileStatus is a FileStatus together with the block locations of the
// file. Directories carry no locations.
type LocatedFileStatus struct {
	*FileStatus
	Locations []BlockLocation
}

// ContentSummary aggregates the size of a directory tree.
type ContentSummary struct {
	Length         int64
	FileCount      int64
	DirectoryCount int64
	Quota          int64
	SpaceConsumed  int64
	SpaceQuota     int64
}

// FsStatus reports the capacity of a filesystem.
type FsStatus struct {
	Capacity  int64
	Used      int64
	Remaining int64
}

// FileChecksum is an opaque checksum computed by a backend.
type FileChecksum struct {
	Algorithm string
	Bytes     []byte
}

// AclEntryScope distinguishes access entries from default entries.
type AclEntryScope int

const (
	AclScopeAccess AclEntryScope = iota
	AclScopeDefault
)

// AclEntryType is the kind of principal an ACL entry applies to.
type AclEntryType int

const (
	AclUser AclEntryType = iota
	AclGroup
	AclMask
	AclOther
)

// AclEntry is a single access control entry.
type AclEntry struct {
	Scope      AclEntryScope
	Type       AclEntryType
	Name       string
	Permission os.FileMode
}

// AclStatus is the ACL state of a file.
type AclStatus struct {
	Owner      string
	Group      string
	StickyBit  bool
	Entries    []AclEntry
	Permission os.FileMode
}

// XAttrSetFlag controls whether SetXAttr may create or replace an attribute.
type XAttrSetFlag int

const (
	XAttrCreate XAttrSetFlag = 1 << iota
	XAttrReplace
)

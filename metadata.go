package mfs

import (
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/absfs/inode"
)

// The operations in this file always go to H.

// SetReplication changes the replication factor of p.
func (mfs *FileSystem) SetReplication(p Path, replication int16) (bool, error) {
	name := mfs.resolve(p)
	mfs.trace("setReplication", name, mfs.primary())
	r, ok := mfs.h.(Replicator)
	if !ok {
		return false, unsupported("setReplication", mfs.tr.H.Scheme)
	}
	mfs.stats.IncrementWriteOps(1)
	return r.SetReplication(name, replication)
}

// SetOwner changes the owner and group of p. An empty user or group leaves
// that attribute unchanged. Backends without an OwnerSetter only accept
// numeric ids.
func (mfs *FileSystem) SetOwner(p Path, user, group string) error {
	name := mfs.resolve(p)
	mfs.trace("setOwner", name, mfs.primary())
	mfs.stats.IncrementWriteOps(1)
	if setter, ok := mfs.h.(OwnerSetter); ok {
		return setter.SetOwner(name, user, group)
	}

	uid, uerr := numericID(user)
	gid, gerr := numericID(group)
	if uerr != nil || gerr != nil {
		return unsupported("setOwner by name", mfs.tr.H.Scheme)
	}
	if uid < 0 || gid < 0 {
		info, err := mfs.h.Stat(name)
		if err != nil {
			return err
		}
		cur := ownerOf(info)
		if uid < 0 {
			uid = cur.uid
		}
		if gid < 0 {
			gid = cur.gid
		}
	}
	return mfs.h.Chown(name, uid, gid)
}

func numericID(s string) (int, error) {
	if s == "" {
		return -1, nil
	}
	return strconv.Atoi(s)
}

type owner struct{ uid, gid int }

// ownerOf extracts numeric ownership from info when the backend exposes it.
func ownerOf(info os.FileInfo) owner {
	switch sys := info.Sys().(type) {
	case *inode.Inode:
		return owner{int(atomic.LoadUint32(&sys.Uid)), int(atomic.LoadUint32(&sys.Gid))}
	case interface {
		Uid() uint32
		Gid() uint32
	}:
		return owner{int(sys.Uid()), int(sys.Gid())}
	}
	return owner{}
}

// SetPermission changes the permission bits of p.
func (mfs *FileSystem) SetPermission(p Path, perm os.FileMode) error {
	name := mfs.resolve(p)
	mfs.trace("setPermission", name, mfs.primary())
	mfs.stats.IncrementWriteOps(1)
	return mfs.h.Chmod(name, perm)
}

// SetTimes changes the modification and access times of p. A zero time
// leaves the corresponding attribute unchanged.
func (mfs *FileSystem) SetTimes(p Path, mtime, atime time.Time) error {
	name := mfs.resolve(p)
	mfs.trace("setTimes", name, mfs.primary())
	mfs.stats.IncrementWriteOps(1)
	if mtime.IsZero() || atime.IsZero() {
		info, err := mfs.h.Stat(name)
		if err != nil {
			return err
		}
		cur := statusFromInfo(info, p)
		if mtime.IsZero() {
			mtime = cur.ModificationTime
		}
		if atime.IsZero() {
			atime = cur.AccessTime
		}
	}
	return mfs.h.Chtimes(name, atime, mtime)
}

// Truncate changes the size of the file p on H.
func (mfs *FileSystem) Truncate(p Path, size int64) error {
	name := mfs.resolve(p)
	mfs.trace("truncate", name, mfs.primary())
	mfs.stats.IncrementWriteOps(1)
	return mfs.h.Truncate(name, size)
}

// Mkdirs creates p and any missing parents on H.
func (mfs *FileSystem) Mkdirs(p Path, perm os.FileMode) error {
	name := mfs.resolve(p)
	mfs.trace("mkdirs", name, mfs.primary())
	mfs.stats.IncrementWriteOps(1)
	err := mfs.h.MkdirAll(name, perm)
	mfs.invalidateLineage(name)
	return err
}

// Mkdir creates the single directory p on H.
func (mfs *FileSystem) Mkdir(p Path, perm os.FileMode) error {
	name := mfs.resolve(p)
	mfs.trace("mkdir", name, mfs.primary())
	mfs.stats.IncrementWriteOps(1)
	err := mfs.h.Mkdir(name, perm)
	mfs.cache.invalidate(name)
	return err
}

func (mfs *FileSystem) xattrer(op, name string) (XAttrer, error) {
	mfs.trace(op, name, mfs.primary())
	x, ok := mfs.h.(XAttrer)
	if !ok {
		return nil, unsupported(op, mfs.tr.H.Scheme)
	}
	return x, nil
}

// SetXAttr sets the extended attribute attr of p. Without flags the
// attribute is created or replaced.
func (mfs *FileSystem) SetXAttr(p Path, attr string, value []byte, flags ...XAttrSetFlag) error {
	name := mfs.resolve(p)
	x, err := mfs.xattrer("setXAttr", name)
	if err != nil {
		return err
	}
	flag := XAttrCreate | XAttrReplace
	if len(flags) > 0 {
		flag = 0
		for _, f := range flags {
			flag |= f
		}
	}
	return x.SetXAttr(name, attr, value, flag)
}

// GetXAttr returns the value of the extended attribute attr of p.
func (mfs *FileSystem) GetXAttr(p Path, attr string) ([]byte, error) {
	name := mfs.resolve(p)
	x, err := mfs.xattrer("getXAttr", name)
	if err != nil {
		return nil, err
	}
	return x.GetXAttr(name, attr)
}

// GetXAttrs returns the named extended attributes of p, or all of them when
// no names are given.
func (mfs *FileSystem) GetXAttrs(p Path, attrs ...string) (map[string][]byte, error) {
	name := mfs.resolve(p)
	x, err := mfs.xattrer("getXAttrs", name)
	if err != nil {
		return nil, err
	}
	return x.GetXAttrs(name, attrs)
}

// ListXAttrs returns the names of the extended attributes of p.
func (mfs *FileSystem) ListXAttrs(p Path) ([]string, error) {
	name := mfs.resolve(p)
	x, err := mfs.xattrer("listXAttrs", name)
	if err != nil {
		return nil, err
	}
	return x.ListXAttrs(name)
}

// RemoveXAttr removes the extended attribute attr of p.
func (mfs *FileSystem) RemoveXAttr(p Path, attr string) error {
	name := mfs.resolve(p)
	x, err := mfs.xattrer("removeXAttr", name)
	if err != nil {
		return err
	}
	return x.RemoveXAttr(name, attr)
}

func (mfs *FileSystem) acler(op, name string) (ACLer, error) {
	mfs.trace(op, name, mfs.primary())
	a, ok := mfs.h.(ACLer)
	if !ok {
		return nil, unsupported(op, mfs.tr.H.Scheme)
	}
	return a, nil
}

// GetAclStatus returns the ACL of p.
func (mfs *FileSystem) GetAclStatus(p Path) (AclStatus, error) {
	name := mfs.resolve(p)
	a, err := mfs.acler("getAclStatus", name)
	if err != nil {
		return AclStatus{}, err
	}
	return a.AclStatus(name)
}

// ModifyAclEntries merges aclSpec into the ACL of p.
func (mfs *FileSystem) ModifyAclEntries(p Path, aclSpec []AclEntry) error {
	name := mfs.resolve(p)
	a, err := mfs.acler("modifyAclEntries", name)
	if err != nil {
		return err
	}
	return a.ModifyAclEntries(name, aclSpec)
}

// RemoveAclEntries removes aclSpec from the ACL of p.
func (mfs *FileSystem) RemoveAclEntries(p Path, aclSpec []AclEntry) error {
	name := mfs.resolve(p)
	a, err := mfs.acler("removeAclEntries", name)
	if err != nil {
		return err
	}
	return a.RemoveAclEntries(name, aclSpec)
}

// RemoveDefaultAcl removes the default entries of the ACL of p.
func (mfs *FileSystem) RemoveDefaultAcl(p Path) error {
	name := mfs.resolve(p)
	a, err := mfs.acler("removeDefaultAcl", name)
	if err != nil {
		return err
	}
	return a.RemoveDefaultAcl(name)
}

// RemoveAcl removes every extended entry of the ACL of p.
func (mfs *FileSystem) RemoveAcl(p Path) error {
	name := mfs.resolve(p)
	a, err := mfs.acler("removeAcl", name)
	if err != nil {
		return err
	}
	return a.RemoveAcl(name)
}

// SetAcl replaces the ACL of p with aclSpec.
func (mfs *FileSystem) SetAcl(p Path, aclSpec []AclEntry) error {
	name := mfs.resolve(p)
	a, err := mfs.acler("setAcl", name)
	if err != nil {
		return err
	}
	return a.SetAcl(name, aclSpec)
}

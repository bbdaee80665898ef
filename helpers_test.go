package mfs

import (
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/apex/log/handlers/memory"
)

var (
	testH = Namespace{Scheme: "hdfs", Authority: "nn:8020"}
	testJ = Namespace{Scheme: JuiceFSScheme, Authority: "vol"}
)

// mustNewMemFS creates a new memfs or panics
func mustNewMemFS() absfs.FileSystem {
	fs, err := memfs.NewFS()
	if err != nil {
		panic(err)
	}
	return fs
}

// quietLogger discards everything.
func quietLogger() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.DebugLevel}
}

// memoryLogger records entries for inspection.
func memoryLogger() (log.Interface, *memory.Handler) {
	h := memory.New()
	return &log.Logger{Handler: h, Level: log.DebugLevel}, h
}

// newTestFS federates h and j under mfs://sz-cluster with a memfs local
// filesystem and private statistics.
func newTestFS(t testing.TB, h, j absfs.FileSystem, opts ...Option) *FileSystem {
	t.Helper()
	base := []Option{
		WithPrimary(testH, h),
		WithSecondary(testJ, j),
		WithLogger(quietLogger()),
		WithLocalFS(mustNewMemFS()),
		WithStatistics(&Statistics{scheme: testH.Scheme}),
	}
	fs, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return fs
}

// writeFile writes data to name, creating parent directories
func writeFile(t testing.TB, fs absfs.FileSystem, name string, data []byte) {
	t.Helper()
	if dir := path.Dir(name); dir != "/" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll %s failed: %v", dir, err)
		}
	}
	f, err := fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatalf("OpenFile %s failed: %v", name, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Write %s failed: %v", name, err)
	}
}

// mkdir creates name and its parents
func mkdir(t testing.TB, fs absfs.FileSystem, name string) {
	t.Helper()
	if err := fs.MkdirAll(name, 0755); err != nil {
		t.Fatalf("MkdirAll %s failed: %v", name, err)
	}
}

// readAll reads an open file to the end and closes it
func readAll(t testing.TB, f absfs.File) []byte {
	t.Helper()
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return data
}

// present reports whether name is present on fs
func present(fs absfs.FileSystem, name string) bool {
	_, err := fs.Stat(name)
	return err == nil
}

// names returns the entry names of a listing
func names(entries []*FileStatus) []string {
	out := make([]string, len(entries))
	for i, st := range entries {
		out[i] = st.Name()
	}
	return out
}

// journal collects calls from several recordingFS values in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// recordingFS wraps a filesystem and records every call made to it.
type recordingFS struct {
	absfs.FileSystem

	mu    sync.Mutex
	calls []string

	// tag and shared, when set, also log each call to a shared journal
	tag    string
	shared *journal
}

func newRecordingFS() *recordingFS {
	return &recordingFS{FileSystem: mustNewMemFS()}
}

func (r *recordingFS) record(op, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+" "+name)
	if r.shared != nil {
		r.shared.add(r.tag + " " + op + " " + name)
	}
}

// ops returns the recorded calls and forgets them.
func (r *recordingFS) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.calls
	r.calls = nil
	return out
}

// called reports whether any recorded call was op, without forgetting them.
func (r *recordingFS) called(op string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if strings.HasPrefix(c, op+" ") {
			return true
		}
	}
	return false
}

func (r *recordingFS) Stat(name string) (os.FileInfo, error) {
	r.record("stat", name)
	return r.FileSystem.Stat(name)
}

func (r *recordingFS) Open(name string) (absfs.File, error) {
	r.record("open", name)
	return r.FileSystem.Open(name)
}

func (r *recordingFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	r.record("openfile", name)
	return r.FileSystem.OpenFile(name, flag, perm)
}

func (r *recordingFS) Remove(name string) error {
	r.record("remove", name)
	return r.FileSystem.Remove(name)
}

func (r *recordingFS) RemoveAll(name string) error {
	r.record("removeall", name)
	return r.FileSystem.RemoveAll(name)
}

func (r *recordingFS) Rename(oldpath, newpath string) error {
	r.record("rename", oldpath+" "+newpath)
	return r.FileSystem.Rename(oldpath, newpath)
}

func (r *recordingFS) Mkdir(name string, perm os.FileMode) error {
	r.record("mkdir", name)
	return r.FileSystem.Mkdir(name, perm)
}

func (r *recordingFS) MkdirAll(name string, perm os.FileMode) error {
	r.record("mkdirall", name)
	return r.FileSystem.MkdirAll(name, perm)
}

func (r *recordingFS) Chmod(name string, mode os.FileMode) error {
	r.record("chmod", name)
	return r.FileSystem.Chmod(name, mode)
}

func (r *recordingFS) Chtimes(name string, atime, mtime time.Time) error {
	r.record("chtimes", name)
	return r.FileSystem.Chtimes(name, atime, mtime)
}

func (r *recordingFS) Chown(name string, uid, gid int) error {
	r.record("chown", name)
	return r.FileSystem.Chown(name, uid, gid)
}

func (r *recordingFS) Truncate(name string, size int64) error {
	r.record("truncate", name)
	return r.FileSystem.Truncate(name, size)
}

// brokenFS fails every Stat with a permission error.
type brokenFS struct {
	absfs.FileSystem
}

func (b *brokenFS) Stat(name string) (os.FileInfo, error) {
	return nil, &os.PathError{Op: "stat", Path: name, Err: syscall.EACCES}
}

// capableFS is a memfs that implements every optional backend capability.
type capableFS struct {
	absfs.FileSystem

	mu        sync.Mutex
	xattrs    map[string]map[string][]byte
	acls      map[string][]AclEntry
	owners    map[string][2]string
	repl      map[string]int16
	onExit    []string
	stats     *Statistics
	checkPath func(Path) error
}

func newCapableFS() *capableFS {
	return &capableFS{
		FileSystem: mustNewMemFS(),
		xattrs:     make(map[string]map[string][]byte),
		acls:       make(map[string][]AclEntry),
		owners:     make(map[string][2]string),
		repl:       make(map[string]int16),
		stats:      &Statistics{scheme: "capable"},
	}
}

func (c *capableFS) BlockLocations(name string, start, length int64) ([]BlockLocation, error) {
	return []BlockLocation{{Hosts: []string{"dn1", "dn2"}, Names: []string{"dn1:9866", "dn2:9866"}, Offset: start, Length: length}}, nil
}

func (c *capableFS) FileChecksum(name string, length int64) (*FileChecksum, error) {
	return &FileChecksum{Algorithm: "MD5-of-0MD5-of-512CRC32C", Bytes: []byte(name)}, nil
}

func (c *capableFS) Status(name string) (FsStatus, error) {
	return FsStatus{Capacity: 100, Used: 40, Remaining: 60}, nil
}

func (c *capableFS) ContentSummary(name string) (ContentSummary, error) {
	return ContentSummary{Length: 7, FileCount: 1, DirectoryCount: 1, Quota: 10, SpaceConsumed: 21, SpaceQuota: 100}, nil
}

func (c *capableFS) SetReplication(name string, replication int16) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repl[name] = replication
	return true, nil
}

func (c *capableFS) SetOwner(name, user, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[name] = [2]string{user, group}
	return nil
}

func (c *capableFS) DeleteOnExit(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExit = append(c.onExit, name)
	return nil
}

func (c *capableFS) SetXAttr(name, attr string, value []byte, flag XAttrSetFlag) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	attrs := c.xattrs[name]
	if attrs == nil {
		attrs = make(map[string][]byte)
		c.xattrs[name] = attrs
	}
	_, exists := attrs[attr]
	if exists && flag&XAttrReplace == 0 {
		return os.ErrExist
	}
	if !exists && flag&XAttrCreate == 0 {
		return os.ErrNotExist
	}
	attrs[attr] = value
	return nil
}

func (c *capableFS) GetXAttr(name, attr string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.xattrs[name][attr]
	if !ok {
		return nil, os.ErrNotExist
	}
	return v, nil
}

func (c *capableFS) GetXAttrs(name string, attrs []string) (map[string][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]byte)
	for k, v := range c.xattrs[name] {
		if len(attrs) == 0 {
			out[k] = v
			continue
		}
		for _, a := range attrs {
			if a == k {
				out[k] = v
			}
		}
	}
	return out, nil
}

func (c *capableFS) ListXAttrs(name string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k := range c.xattrs[name] {
		out = append(out, k)
	}
	return out, nil
}

func (c *capableFS) RemoveXAttr(name, attr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.xattrs[name], attr)
	return nil
}

func (c *capableFS) AclStatus(name string) (AclStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return AclStatus{Owner: "hdfs", Group: "supergroup", Entries: c.acls[name]}, nil
}

func (c *capableFS) ModifyAclEntries(name string, aclSpec []AclEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acls[name] = append(c.acls[name], aclSpec...)
	return nil
}

func (c *capableFS) RemoveAclEntries(name string, aclSpec []AclEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.acls[name][:0]
	for _, e := range c.acls[name] {
		drop := false
		for _, s := range aclSpec {
			if e.Scope == s.Scope && e.Type == s.Type && e.Name == s.Name {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, e)
		}
	}
	c.acls[name] = kept
	return nil
}

func (c *capableFS) RemoveDefaultAcl(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.acls[name][:0]
	for _, e := range c.acls[name] {
		if e.Scope != AclScopeDefault {
			kept = append(kept, e)
		}
	}
	c.acls[name] = kept
	return nil
}

func (c *capableFS) RemoveAcl(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.acls, name)
	return nil
}

func (c *capableFS) SetAcl(name string, aclSpec []AclEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acls[name] = append([]AclEntry(nil), aclSpec...)
	return nil
}

func (c *capableFS) CheckPath(p Path) error {
	if c.checkPath != nil {
		return c.checkPath(p)
	}
	return nil
}

func (c *capableFS) HomeDir() string {
	return "/home/tester"
}

func (c *capableFS) Statistics() *Statistics {
	return c.stats
}

// closingFS records whether it was closed.
type closingFS struct {
	absfs.FileSystem
	closed bool
}

func (c *closingFS) Close() error {
	c.closed = true
	return nil
}

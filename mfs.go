package mfs

import (
	"io"
	"net/url"
	"os"
	"os/user"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absfs/absfs"
	"github.com/absfs/osfs"
	"github.com/apex/log"
	"github.com/pkg/errors"
)

const (
	// DefaultScheme is the scheme the adapter advertises.
	DefaultScheme = "mfs"
	// DefaultAuthority is the authority the adapter advertises.
	DefaultAuthority = "sz-cluster"
	// JuiceFSScheme is the scheme of the secondary backend.
	JuiceFSScheme = "jfs"
)

// FileSystem federates a primary backend H and a secondary backend J behind
// a single namespace. H owns writes and metadata; J serves reads of files H
// does not have. Every public operation accepts paths in the public
// namespace and returns paths rewritten into it.
type FileSystem struct {
	tr    Translator
	h     absfs.FileSystem
	j     absfs.FileSystem
	local absfs.FileSystem

	stats    *Statistics
	cache    *probeCache
	log      log.Interface
	conf     *Configuration
	registry *Registry

	copyBufferSize int

	wd atomic.Pointer[Path]

	exitMu sync.Mutex
	onExit []string
}

// Option configures a FileSystem.
type Option func(*FileSystem)

// WithPrimary sets backend H and the namespace it is addressed by.
func WithPrimary(ns Namespace, fsys absfs.FileSystem) Option {
	return func(mfs *FileSystem) {
		mfs.tr.H = ns
		mfs.h = fsys
	}
}

// WithSecondary sets backend J. An empty scheme defaults to JuiceFSScheme.
func WithSecondary(ns Namespace, fsys absfs.FileSystem) Option {
	return func(mfs *FileSystem) {
		if ns.Scheme == "" {
			ns.Scheme = JuiceFSScheme
		}
		mfs.tr.J = ns
		mfs.j = fsys
	}
}

// WithPublicNamespace overrides the advertised scheme and authority.
func WithPublicNamespace(ns Namespace) Option {
	return func(mfs *FileSystem) {
		mfs.tr.Pub = ns
	}
}

// WithLogger sets the logger. The default is the apex/log package logger.
func WithLogger(l log.Interface) Option {
	return func(mfs *FileSystem) {
		mfs.log = l
	}
}

// WithProbeCache caches the outcome of existence probes against H. Writes
// made through the adapter invalidate the affected entries; writes made to H
// directly are only seen once an entry expires.
func WithProbeCache(enabled bool, ttl, negativeTTL time.Duration, maxEntries int) Option {
	return func(mfs *FileSystem) {
		mfs.cache = newProbeCache(enabled, ttl, negativeTTL, maxEntries)
	}
}

// WithLocalFS sets the filesystem local-output operations write to. The
// default is the operating system filesystem.
func WithLocalFS(fsys absfs.FileSystem) Option {
	return func(mfs *FileSystem) {
		mfs.local = fsys
	}
}

// WithCopyBufferSize sets the buffer size used when copying between J and
// the local filesystem.
func WithCopyBufferSize(size int) Option {
	return func(mfs *FileSystem) {
		mfs.copyBufferSize = size
	}
}

// WithStatistics sets the statistics the adapter charges operations to.
func WithStatistics(stats *Statistics) Option {
	return func(mfs *FileSystem) {
		mfs.stats = stats
	}
}

// WithConfiguration attaches conf to the adapter.
func WithConfiguration(conf *Configuration) Option {
	return func(mfs *FileSystem) {
		mfs.conf = conf
	}
}

// WithRegistry sets the backend registry Initialize resolves backends from.
func WithRegistry(r *Registry) Option {
	return func(mfs *FileSystem) {
		mfs.registry = r
	}
}

// New builds an adapter from explicit backends.
func New(opts ...Option) (*FileSystem, error) {
	mfs := &FileSystem{
		tr: Translator{
			Pub: Namespace{Scheme: DefaultScheme, Authority: DefaultAuthority},
			J:   Namespace{Scheme: JuiceFSScheme},
		},
		cache:          newProbeCache(false, 0, 0, 0),
		log:            log.Log,
		registry:       DefaultRegistry,
		copyBufferSize: 32 * 1024,
	}
	for _, opt := range opts {
		opt(mfs)
	}

	if mfs.h == nil {
		return nil, errors.Wrap(ErrNoBackend, "primary")
	}
	if mfs.j == nil {
		return nil, errors.Wrap(ErrNoBackend, "secondary")
	}
	if mfs.conf == nil {
		mfs.conf = NewConfiguration(nil)
	}
	if mfs.local == nil {
		local, err := osfs.NewFS()
		if err != nil {
			return nil, errors.Wrap(err, "open local filesystem")
		}
		mfs.local = local
	}
	if mfs.stats == nil {
		if sp, ok := mfs.h.(StatisticsProvider); ok {
			mfs.stats = sp.Statistics()
		} else {
			mfs.stats = StatisticsFor(mfs.tr.H.Scheme)
		}
	}

	wd := mfs.tr.H.Reparent(NewPath("/"))
	if dir, err := mfs.h.Getwd(); err == nil && path.IsAbs(dir) {
		wd = mfs.tr.H.Reparent(NewPath(dir))
	}
	mfs.wd.Store(&wd)

	mfs.log.WithFields(log.Fields{
		"uri":       mfs.tr.Pub.String(),
		"primary":   mfs.tr.H.String(),
		"secondary": mfs.tr.J.String(),
	}).Info("init new mfs filesystem")

	return mfs, nil
}

// Initialize builds an adapter the way a hosting framework does: H is the
// filesystem named by fs.defaultFS and J is jfs://<juicefs.name>/, both
// resolved through the backend registry. conf is not modified; the copy
// handed to backend factories has instance caching disabled for the hdfs and
// jfs schemes.
func Initialize(name *url.URL, conf *Configuration, opts ...Option) (*FileSystem, error) {
	if name == nil || name.Scheme == "" {
		return nil, errors.Wrapf(ErrInvalidURI, "filesystem name %v", name)
	}
	if conf == nil {
		conf = NewConfiguration(nil)
	}
	conf = conf.Clone()
	conf.Set(disableCacheKey("hdfs"), "true")
	conf.Set(disableCacheKey(JuiceFSScheme), "true")

	hURI, err := url.Parse(conf.GetKeyWithDefault(KeyDefaultFS, defaultFS))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "%s: %v", KeyDefaultFS, err)
	}
	if hURI.Scheme == "" {
		return nil, errors.Wrapf(ErrInvalidURI, "%s %q has no scheme", KeyDefaultFS, hURI.String())
	}
	jName := conf.GetKey(KeyJuiceFSName)
	if jName == "" {
		return nil, errors.Wrapf(ErrInvalidURI, "%s is not set", KeyJuiceFSName)
	}
	jURI := &url.URL{Scheme: JuiceFSScheme, Host: jName, Path: "/"}

	probe := WithProbeCache(
		conf.GetBool(KeyProbeCacheEnabled, false),
		conf.GetDuration(KeyProbeCacheTTL, 5*time.Second),
		conf.GetDuration(KeyProbeCacheNegTTL, time.Second),
		conf.GetIntKeyWithDefault(KeyProbeCacheMaxItems, 1000),
	)

	// Options may replace the registry, so look it up after applying them.
	staged := &FileSystem{registry: DefaultRegistry}
	for _, opt := range opts {
		opt(staged)
	}

	h, err := staged.registry.Get(hURI, conf)
	if err != nil {
		return nil, err
	}
	j, err := staged.registry.Get(jURI, conf)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithPrimary(namespaceOf(hURI), h),
		WithSecondary(namespaceOf(jURI), j),
		WithConfiguration(conf),
		probe,
	}
	return New(append(base, opts...)...)
}

// URI returns the public root URI, e.g. mfs://sz-cluster/.
func (mfs *FileSystem) URI() *url.URL { return mfs.tr.Pub.URI() }

// Scheme returns the public scheme.
func (mfs *FileSystem) Scheme() string { return mfs.tr.Pub.Scheme }

// Name returns the public root URI as a string.
func (mfs *FileSystem) Name() string { return mfs.URI().String() }

// Translator returns the namespaces the adapter translates between.
func (mfs *FileSystem) Translator() Translator { return mfs.tr }

// Configuration returns the configuration the adapter was built with.
func (mfs *FileSystem) Configuration() *Configuration { return mfs.conf }

// Statistics returns the statistics shared with H.
func (mfs *FileSystem) Statistics() *Statistics { return mfs.stats }

// SupportsSymlinks always reports false.
func (mfs *FileSystem) SupportsSymlinks() bool { return false }

// Access performs no check and always succeeds.
func (mfs *FileSystem) Access(p Path, mode os.FileMode) error { return nil }

// resolve returns the absolute path component of p, resolving relative
// paths against the working directory.
func (mfs *FileSystem) resolve(p Path) string {
	if p.IsAbs() {
		return p.Path
	}
	return path.Join(mfs.wd.Load().Path, p.Path)
}

// MakeQualified returns p as a fully qualified public path.
func (mfs *FileSystem) MakeQualified(p Path) Path {
	h := mfs.tr.ToH(p)
	h.Path = mfs.resolve(h)
	return mfs.tr.ToPub(h)
}

// CheckPath validates p against H's rules.
func (mfs *FileSystem) CheckPath(p Path) error {
	h := mfs.tr.ToH(p)
	if pc, ok := mfs.h.(PathChecker); ok {
		return pc.CheckPath(h)
	}
	if h.Path == "" || strings.IndexByte(h.Path, 0) >= 0 {
		return &os.PathError{Op: "checkpath", Path: p.String(), Err: os.ErrInvalid}
	}
	return nil
}

// ResolvePath returns the fully qualified public path of an existing file.
func (mfs *FileSystem) ResolvePath(p Path) (Path, error) {
	if err := mfs.CheckPath(p); err != nil {
		mfs.log.WithError(err).WithField("path", p.String()).Error("resolve path")
		return Path{}, err
	}
	st, err := mfs.GetFileStatus(p)
	if err != nil {
		mfs.log.WithError(err).WithField("path", p.String()).Error("resolve path")
		return Path{}, err
	}
	return st.Path, nil
}

// WorkingDirectory returns the working directory in the public namespace.
func (mfs *FileSystem) WorkingDirectory() Path {
	return mfs.tr.ToPub(*mfs.wd.Load())
}

// SetWorkingDirectory changes the working directory. Relative paths are
// resolved against the current one. The directory is not required to exist.
func (mfs *FileSystem) SetWorkingDirectory(p Path) {
	wd := mfs.tr.ToH(p)
	wd.Path = mfs.resolve(wd)
	mfs.wd.Store(&wd)
}

// HomeDirectory returns the current user's home directory in the public
// namespace.
func (mfs *FileSystem) HomeDirectory() Path {
	if hd, ok := mfs.h.(HomeDirer); ok {
		return mfs.tr.ToPub(NewPath(hd.HomeDir()))
	}
	return mfs.tr.ToPub(NewPath("/user/" + currentUser()))
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "nobody"
}

// DeleteOnExit schedules p for deletion when the adapter is closed. It is a
// no-op when H does not hold p.
func (mfs *FileSystem) DeleteOnExit(p Path) error {
	name := mfs.resolve(p)
	ok, err := mfs.existsH(name)
	if err != nil || !ok {
		return err
	}
	if ed, isED := mfs.h.(ExitDeleter); isED {
		return ed.DeleteOnExit(name)
	}

	mfs.exitMu.Lock()
	defer mfs.exitMu.Unlock()
	for _, n := range mfs.onExit {
		if n == name {
			return nil
		}
	}
	mfs.onExit = append(mfs.onExit, name)
	return nil
}

// CancelDeleteOnExit removes p from the adapter's delete-on-exit set.
func (mfs *FileSystem) CancelDeleteOnExit(p Path) bool {
	name := mfs.resolve(p)

	mfs.exitMu.Lock()
	defer mfs.exitMu.Unlock()
	for i, n := range mfs.onExit {
		if n == name {
			mfs.onExit = append(mfs.onExit[:i], mfs.onExit[i+1:]...)
			return true
		}
	}
	return false
}

// Close deletes the paths scheduled with DeleteOnExit and releases J. H is
// left open; it belongs to whoever created it.
func (mfs *FileSystem) Close() error {
	mfs.exitMu.Lock()
	names := mfs.onExit
	mfs.onExit = nil
	mfs.exitMu.Unlock()

	var first error
	for _, name := range names {
		if _, err := mfs.h.Stat(name); err != nil {
			continue
		}
		if err := mfs.h.RemoveAll(name); err != nil {
			mfs.log.WithError(err).WithField("path", name).Warn("delete on exit")
			if first == nil {
				first = err
			}
		}
	}
	mfs.cache.clear()

	if c, ok := mfs.j.(io.Closer); ok {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// InvalidateCache drops the cached probe result for p.
func (mfs *FileSystem) InvalidateCache(p Path) {
	mfs.cache.invalidate(mfs.resolve(p))
}

// InvalidateCacheTree drops the cached probe results for p and everything
// below it.
func (mfs *FileSystem) InvalidateCacheTree(p Path) {
	mfs.cache.invalidateTree(mfs.resolve(p))
}

// ClearCache drops every cached probe result.
func (mfs *FileSystem) ClearCache() {
	mfs.cache.clear()
}

// CacheStats returns probe cache statistics.
func (mfs *FileSystem) CacheStats() CacheStats {
	return mfs.cache.Stats()
}

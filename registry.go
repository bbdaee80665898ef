package mfs

import (
	"net/url"
	"sync"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
	"github.com/absfs/osfs"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Factory builds the filesystem named by u.
type Factory func(u *url.URL, conf *Configuration) (absfs.FileSystem, error)

// Registry resolves filesystem URIs to backends. Instances are cached per
// scheme and authority unless fs.<scheme>.impl.disable.cache is true.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]absfs.FileSystem
}

// DefaultRegistry is the registry Initialize uses unless WithRegistry is
// given.
var DefaultRegistry = NewRegistry()

// NewRegistry returns a registry with the builtin factories: file (the
// operating system filesystem), mem (an absfs memfs) and memmap (an afero
// MemMapFs).
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]absfs.FileSystem),
	}
	r.Register("file", func(*url.URL, *Configuration) (absfs.FileSystem, error) {
		return osfs.NewFS()
	})
	r.Register("mem", func(*url.URL, *Configuration) (absfs.FileSystem, error) {
		return memfs.NewFS()
	})
	r.Register("memmap", func(*url.URL, *Configuration) (absfs.FileSystem, error) {
		return FromAfero(afero.NewMemMapFs()), nil
	})
	return r
}

// Register binds name to f, replacing any earlier binding.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Register binds name to f in DefaultRegistry.
func Register(name string, f Factory) {
	DefaultRegistry.Register(name, f)
}

// Get returns the filesystem for u. The factory is the one registered under
// the value of fs.<scheme>.impl, or under the scheme itself when that key is
// unset.
func (r *Registry) Get(u *url.URL, conf *Configuration) (absfs.FileSystem, error) {
	if u == nil || u.Scheme == "" {
		return nil, errors.Wrapf(ErrInvalidURI, "no scheme in %v", u)
	}
	if conf == nil {
		conf = NewConfiguration(nil)
	}
	name := conf.GetKeyWithDefault("fs."+u.Scheme+".impl", u.Scheme)
	cached := !conf.GetBool(disableCacheKey(u.Scheme), false)
	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached {
		if fsys, ok := r.instances[key]; ok {
			return fsys, nil
		}
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, errors.Wrapf(ErrNoBackend, "no filesystem for scheme %q", u.Scheme)
	}
	fsys, err := f(u, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "create filesystem %s", key)
	}
	if cached {
		r.instances[key] = fsys
	}
	return fsys, nil
}
